package pla

import "math"

// Key is the set of key types a segment can cover: any ordered numeric type
// whose differences fit the float64 position space used by the segmenter.
type Key interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Segment is a linear model over a contiguous run of keys. It predicts the
// rank of a key k as floor(Slope*(k-Key)) + Intercept. Flooring the slope
// term (rather than rounding) biases the prediction low by less than one,
// which together with the rounded intercept keeps the true rank within
// [pos-epsilon, pos+epsilon+1] of the prediction pos.
type Segment[K Key] struct {
	Key       K       // first key covered by the segment
	Slope     float64 // rank delta per key unit
	Intercept int64   // predicted rank at Key
}

// Predict returns the predicted rank of k. The result is not clamped; keys
// far outside the segment's run may predict negative ranks.
func (s Segment[K]) Predict(k K) int64 {
	return int64(math.Floor(s.Slope*(float64(k)-float64(s.Key)))) + s.Intercept
}
