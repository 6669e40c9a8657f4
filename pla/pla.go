package pla

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnsortedKeys is returned when a key is added out of order.
var ErrUnsortedKeys = errors.New("pla: keys must be strictly increasing")

// ErrInvalidEpsilon indicates a negative error bound.
type ErrInvalidEpsilon struct {
	Epsilon int
}

func (e *ErrInvalidEpsilon) Error() string {
	return fmt.Sprintf("pla: invalid epsilon: %d", e.Epsilon)
}

// point is a vertex of the feasibility hulls in float64 position space.
type point struct {
	x, y float64
}

// grad is a direction between two hull points. Comparisons cross-multiply,
// which orders true slopes as long as both dx share a sign; every comparison
// below satisfies that.
type grad struct {
	dx, dy float64
}

func sub(p, q point) grad { return grad{p.x - q.x, p.y - q.y} }

func (a grad) less(b grad) bool    { return a.dy*b.dx < b.dy*a.dx }
func (a grad) greater(b grad) bool { return a.dy*b.dx > b.dy*a.dx }

// cross is the z component of (a-o) x (b-o).
func cross(o, a, b point) float64 {
	return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
}

// Segmenter consumes (key, rank) pairs in strictly increasing key order and
// emits the minimum number of segments whose prediction error is bounded by
// the configured epsilon.
//
// All hull arithmetic is carried out in float64. Integer keys above 2^53
// lose precision when widened; the epsilon guarantee then degrades by the
// rounding error of the widening, which tests on 64-bit keys must tolerate.
type Segmenter[K Key] struct {
	epsilon float64
	out     []Segment[K]

	inHull   int // points covered by the open segment's hulls
	firstKey K
	lastKey  K

	// rect holds the extreme corners of the feasible (slope, intercept)
	// region: rect[0]-rect[2] span the minimum slope, rect[1]-rect[3] the
	// maximum.
	rect       [4]point
	upper      []point
	lower      []point
	upperStart int
	lowerStart int
}

// NewSegmenter creates a segmenter with the given error bound. Epsilon zero
// is allowed and yields exact (collinear) segments; rank indexing at the
// data level wants epsilon >= 1.
func NewSegmenter[K Key](epsilon int) (*Segmenter[K], error) {
	if epsilon < 0 {
		return nil, &ErrInvalidEpsilon{Epsilon: epsilon}
	}
	return &Segmenter[K]{epsilon: float64(epsilon)}, nil
}

// Add feeds the next (key, rank) pair. When the pair cannot join the open
// segment, that segment is emitted and a new one starts at this pair.
func (s *Segmenter[K]) Add(k K, rank int) error {
	if s.inHull > 0 && k <= s.lastKey {
		return ErrUnsortedKeys
	}
	if !s.addPoint(k, rank) {
		s.out = append(s.out, s.segment())
		s.resetHull()
		s.addPoint(k, rank) // a fresh hull accepts any single point
	}
	return nil
}

// Finish closes the open segment and returns every segment emitted so far.
// The segmenter is reset and may be reused.
func (s *Segmenter[K]) Finish() []Segment[K] {
	if s.inHull > 0 {
		s.out = append(s.out, s.segment())
		s.resetHull()
	}
	out := s.out
	s.out = nil
	return out
}

func (s *Segmenter[K]) resetHull() {
	s.inHull = 0
	s.upper = s.upper[:0]
	s.lower = s.lower[:0]
	s.upperStart = 0
	s.lowerStart = 0
}

// addPoint updates the hulls with (k, rank) and reports whether the open
// segment stays feasible. On infeasibility no state is modified, so the
// closed segment can still be read from the hull state.
func (s *Segmenter[K]) addPoint(k K, rank int) bool {
	x, y := float64(k), float64(rank)
	p1 := point{x, y + s.epsilon}
	p2 := point{x, y - s.epsilon}

	if s.inHull == 0 {
		s.firstKey = k
		s.lastKey = k
		s.rect[0] = p1
		s.rect[1] = p2
		s.upper = append(s.upper[:0], p1)
		s.lower = append(s.lower[:0], p2)
		s.upperStart = 0
		s.lowerStart = 0
		s.inHull = 1
		return true
	}

	if s.inHull == 1 {
		s.rect[2] = p2
		s.rect[3] = p1
		s.upper = append(s.upper, p1)
		s.lower = append(s.lower, p2)
		s.lastKey = k
		s.inHull++
		return true
	}

	minSlope := sub(s.rect[2], s.rect[0])
	maxSlope := sub(s.rect[3], s.rect[1])
	if sub(p1, s.rect[2]).less(minSlope) || sub(p2, s.rect[3]).greater(maxSlope) {
		return false
	}

	if sub(p1, s.rect[1]).less(maxSlope) {
		// The maximum slope tightens: it now passes through p1 and the
		// lower-hull vertex minimizing the slope towards p1.
		minG := sub(s.lower[s.lowerStart], p1)
		minI := s.lowerStart
		for i := s.lowerStart + 1; i < len(s.lower); i++ {
			g := sub(s.lower[i], p1)
			if g.greater(minG) {
				break
			}
			minG = g
			minI = i
		}
		s.rect[1] = s.lower[minI]
		s.rect[3] = p1
		s.lowerStart = minI

		end := len(s.upper)
		for end >= s.upperStart+2 && cross(s.upper[end-2], s.upper[end-1], p1) <= 0 {
			end--
		}
		s.upper = append(s.upper[:end], p1)
	}

	if sub(p2, s.rect[0]).greater(minSlope) {
		// The minimum slope tightens symmetrically against the upper hull.
		maxG := sub(s.upper[s.upperStart], p2)
		maxI := s.upperStart
		for i := s.upperStart + 1; i < len(s.upper); i++ {
			g := sub(s.upper[i], p2)
			if g.less(maxG) {
				break
			}
			maxG = g
			maxI = i
		}
		s.rect[0] = s.upper[maxI]
		s.rect[2] = p2
		s.upperStart = maxI

		end := len(s.lower)
		for end >= s.lowerStart+2 && cross(s.lower[end-2], s.lower[end-1], p2) >= 0 {
			end--
		}
		s.lower = append(s.lower[:end], p2)
	}

	s.lastKey = k
	s.inHull++
	return true
}

// segment materializes the open segment. The slope is the midpoint of the
// feasible slope interval; the intercept comes from the intersection of the
// interval's extreme lines, projected to the segment's first key.
func (s *Segmenter[K]) segment() Segment[K] {
	if s.inHull == 1 {
		mid := (s.rect[0].y + s.rect[1].y) / 2
		return Segment[K]{Key: s.firstKey, Slope: 0, Intercept: int64(math.Round(mid))}
	}

	ix, iy := s.intersection()
	minSlope := (s.rect[2].y - s.rect[0].y) / (s.rect[2].x - s.rect[0].x)
	maxSlope := (s.rect[3].y - s.rect[1].y) / (s.rect[3].x - s.rect[1].x)
	slope := (minSlope + maxSlope) / 2
	intercept := iy - (ix-float64(s.firstKey))*slope

	return Segment[K]{Key: s.firstKey, Slope: slope, Intercept: int64(math.Round(intercept))}
}

// intersection returns the point where the extreme slope lines meet. When
// they are parallel the feasible region is a band and any corner serves.
func (s *Segmenter[K]) intersection() (float64, float64) {
	d1 := sub(s.rect[2], s.rect[0])
	d2 := sub(s.rect[3], s.rect[1])
	a := d1.dx*d2.dy - d1.dy*d2.dx
	if a == 0 {
		return s.rect[0].x, s.rect[0].y
	}
	v := sub(s.rect[1], s.rect[0])
	b := (v.dx*d2.dy - v.dy*d2.dx) / a
	return s.rect[0].x + b*d1.dx, s.rect[0].y + b*d1.dy
}

// Segmentation segments a non-decreasing key slice in one pass. Duplicate
// keys are collapsed to their first occurrence; the epsilon window absorbs
// the remaining ties.
func Segmentation[K Key](keys []K, epsilon int) ([]Segment[K], error) {
	sg, err := NewSegmenter[K](epsilon)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		if i > 0 {
			if k < keys[i-1] {
				return nil, ErrUnsortedKeys
			}
			if k == keys[i-1] {
				continue
			}
		}
		if err := sg.Add(k, i); err != nil {
			return nil, err
		}
	}
	return sg.Finish(), nil
}
