// Package static provides the immutable recursive learned index over a
// sorted key sequence.
package static

import (
	"sort"

	"github.com/hupe1980/pgmgo/pla"
)

// Options contains configuration options for the static index.
type Options struct {
	// Epsilon is the data-level error bound. It must be >= 1 and caps the
	// width of the range returned by Search at 2*Epsilon+2.
	Epsilon int

	// EpsilonRecursive is the error bound used when indexing the segments
	// themselves. Zero disables the recursion: the data-level segments are
	// then located by plain binary search.
	EpsilonRecursive int
}

// DefaultOptions contains the default configuration options for the static index.
var DefaultOptions = Options{
	Epsilon:          64,
	EpsilonRecursive: 4,
}

// ApproxRange is the answer to a search: the true rank of the query lies in
// [Lo, Hi), and Pos is the predicted rank within that window.
type ApproxRange struct {
	Lo  int
	Hi  int
	Pos int
}

// Index is a learned index over a sorted key sequence. It stores only the
// piecewise linear models, not the keys; the caller finishes a lookup with a
// bounded binary search over its own key storage.
//
// An Index is immutable after Build and safe for concurrent readers.
type Index[K pla.Key] struct {
	n        int
	opts     Options
	levels   [][]pla.Segment[K] // levels[0] is the data level; the last has one segment
	firstKey K
	lastKey  K
}

// Build constructs the index for a non-decreasing key slice. Duplicate keys
// are collapsed to their first occurrence before segmentation; the epsilon
// window keeps every duplicate inside the returned range.
func Build[K pla.Key](keys []K, optFns ...func(o *Options)) (*Index[K], error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Epsilon < 1 {
		return nil, &pla.ErrInvalidEpsilon{Epsilon: opts.Epsilon}
	}
	if opts.EpsilonRecursive < 0 {
		return nil, &pla.ErrInvalidEpsilon{Epsilon: opts.EpsilonRecursive}
	}

	ix := &Index[K]{n: len(keys), opts: opts}
	if len(keys) == 0 {
		return ix, nil
	}
	ix.firstKey = keys[0]
	ix.lastKey = keys[len(keys)-1]

	level, err := pla.Segmentation(keys, opts.Epsilon)
	if err != nil {
		return nil, err
	}
	ix.levels = append(ix.levels, level)

	if opts.EpsilonRecursive > 0 {
		for len(level) > 1 {
			firstKeys := make([]K, len(level))
			for i, s := range level {
				firstKeys[i] = s.Key
			}
			next, err := pla.Segmentation(firstKeys, opts.EpsilonRecursive)
			if err != nil {
				return nil, err
			}
			ix.levels = append(ix.levels, next)
			level = next
		}
	}

	return ix, nil
}

// FromLevels reassembles an index from its serialized parts. It is used by
// the persistence layer; levels must be ordered data level first.
func FromLevels[K pla.Key](n int, opts Options, levels [][]pla.Segment[K], firstKey, lastKey K) *Index[K] {
	return &Index[K]{
		n:        n,
		opts:     opts,
		levels:   levels,
		firstKey: firstKey,
		lastKey:  lastKey,
	}
}

// Len returns the number of indexed keys, duplicates included.
func (ix *Index[K]) Len() int { return ix.n }

// Epsilon returns the data-level error bound.
func (ix *Index[K]) Epsilon() int { return ix.opts.Epsilon }

// EpsilonRecursive returns the internal-level error bound.
func (ix *Index[K]) EpsilonRecursive() int { return ix.opts.EpsilonRecursive }

// Levels exposes the segment levels, data level first. The returned slices
// are the index's own storage and must not be modified.
func (ix *Index[K]) Levels() [][]pla.Segment[K] { return ix.levels }

// FirstKey returns the smallest indexed key. Only valid when Len() > 0.
func (ix *Index[K]) FirstKey() K { return ix.firstKey }

// LastKey returns the largest indexed key. Only valid when Len() > 0.
func (ix *Index[K]) LastKey() K { return ix.lastKey }

// Search returns a range [Lo, Hi) guaranteed to contain the rank of q, with
// Hi-Lo <= 2*Epsilon+2. Queries above the last key return the empty range at
// n; queries below the first key clamp to the start.
func (ix *Index[K]) Search(q K) ApproxRange {
	if ix.n == 0 {
		return ApproxRange{}
	}
	if q > ix.lastKey {
		return ApproxRange{Lo: ix.n, Hi: ix.n, Pos: ix.n}
	}
	k := q
	if k < ix.firstKey {
		k = ix.firstKey
	}

	seg := ix.segmentForKey(k)

	data := ix.levels[0]
	pos := clampPredict(data, seg, k, ix.n)
	lo := pos - ix.opts.Epsilon
	if lo < 0 {
		lo = 0
	}
	hi := pos + ix.opts.Epsilon + 2
	if hi > ix.n {
		hi = ix.n
	}
	return ApproxRange{Lo: lo, Hi: hi, Pos: pos}
}

// segmentForKey descends the internal levels and returns the position of the
// data-level segment responsible for k.
func (ix *Index[K]) segmentForKey(k K) int {
	data := ix.levels[0]
	if len(ix.levels) == 1 {
		j := sort.Search(len(data), func(i int) bool { return data[i].Key > k }) - 1
		if j < 0 {
			j = 0
		}
		return j
	}

	epsR := ix.opts.EpsilonRecursive
	idx := 0
	for l := len(ix.levels) - 1; l > 0; l-- {
		segs := ix.levels[l]
		lower := ix.levels[l-1]
		pos := clampPredict(segs, idx, k, len(lower)-1)
		lo := pos - epsR - 1
		if lo < 0 {
			lo = 0
		}
		hi := pos + epsR + 2
		if hi > len(lower) {
			hi = len(lower)
		}
		j := lo + sort.Search(hi-lo, func(i int) bool { return lower[lo+i].Key > k }) - 1
		if j < lo {
			j = lo
		}
		if lower[j].Key > k {
			// The prediction window missed; fall back to a full binary
			// search over the level. Only reachable when float64 widening
			// of 64-bit keys has eaten into the epsilon slack.
			j = sort.Search(len(lower), func(i int) bool { return lower[i].Key > k }) - 1
			if j < 0 {
				j = 0
			}
		}
		idx = j
	}
	return idx
}

// clampPredict evaluates segs[i] at k and clamps the prediction to
// [0, limit], additionally capping it at the next segment's intercept the
// way a sentinel segment would.
func clampPredict[K pla.Key](segs []pla.Segment[K], i int, k K, limit int) int {
	p := segs[i].Predict(k)
	if p < 0 {
		p = 0
	}
	if i+1 < len(segs) && p > segs[i+1].Intercept {
		p = segs[i+1].Intercept
	}
	if p > int64(limit) {
		p = int64(limit)
	}
	return int(p)
}
