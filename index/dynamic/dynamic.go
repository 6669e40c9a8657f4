// Package dynamic provides a mutable learned index: a logarithmic cascade
// of sorted record buffers, each optionally carrying a static learned index
// over its keys.
//
// The cascade follows the Logarithmic Method: level i holds up to
// BaseCapacity*2^i records. Inserts go to the lowest level with room; when
// a level overflows, it and everything below it are merged one level up.
// Deletions insert tombstones that shadow older records until a merge into
// the highest occupied level drops them.
package dynamic

import (
	"fmt"
	"iter"
	"sort"

	"github.com/hupe1980/pgmgo/pla"
)

// Options contains configuration options for the dynamic index.
type Options struct {
	// BaseCapacity is the record capacity of level 0. Must be >= 2.
	BaseCapacity int

	// MinIndexedLevel is the level index at and above which levels carry an
	// attached static index and membership bitmap. Lower levels are small
	// enough that plain binary search wins.
	MinIndexedLevel int

	// Epsilon is the data-level error bound of attached static indexes.
	Epsilon int

	// EpsilonRecursive is the internal-level error bound of attached
	// static indexes.
	EpsilonRecursive int
}

// DefaultOptions contains the default configuration options for the dynamic index.
var DefaultOptions = Options{
	BaseCapacity:     8,
	MinIndexedLevel:  6,
	Epsilon:          64,
	EpsilonRecursive: 4,
}

// ErrInvalidCapacity indicates a base capacity too small to cascade.
type ErrInvalidCapacity struct {
	Capacity int
}

func (e *ErrInvalidCapacity) Error() string {
	return fmt.Sprintf("dynamic: invalid base capacity: %d", e.Capacity)
}

// Entry is a key/value pair yielded by queries and iteration.
type Entry[K pla.Key, V any] struct {
	Key   K
	Value V
}

// Index is a sorted associative container over numeric keys. It is not
// internally synchronized; concurrent use requires external locking.
type Index[K pla.Key, V any] struct {
	opts   Options
	levels []*level[K, V]
	size   int // live keys (newest record is a non-tombstone)
}

// New creates an empty dynamic index.
func New[K pla.Key, V any](optFns ...func(o *Options)) (*Index[K, V], error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BaseCapacity < 2 {
		return nil, &ErrInvalidCapacity{Capacity: opts.BaseCapacity}
	}
	if opts.Epsilon < 1 {
		return nil, &pla.ErrInvalidEpsilon{Epsilon: opts.Epsilon}
	}
	if opts.EpsilonRecursive < 0 {
		return nil, &pla.ErrInvalidEpsilon{Epsilon: opts.EpsilonRecursive}
	}
	return &Index[K, V]{opts: opts}, nil
}

// NewFromSorted bulk-loads the index from entries sorted by key. Entries
// with duplicate keys keep the first occurrence. The records are placed in
// the smallest level that fits, so a bulk load costs one index build.
func NewFromSorted[K pla.Key, V any](entries []Entry[K, V], optFns ...func(o *Options)) (*Index[K, V], error) {
	ix, err := New[K, V](optFns...)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return ix, nil
	}

	records := make([]Record[K, V], 0, len(entries))
	for i, e := range entries {
		if i > 0 {
			if e.Key < entries[i-1].Key {
				return nil, pla.ErrUnsortedKeys
			}
			if e.Key == entries[i-1].Key {
				continue
			}
		}
		records = append(records, Record[K, V]{Key: e.Key, Value: e.Value})
	}

	j := 0
	for ix.capacity(j) < len(records) {
		j++
	}
	ix.ensureLevel(j)
	ix.levels[j].records = records
	ix.size = len(records)
	if j >= ix.opts.MinIndexedLevel {
		if err := ix.levels[j].attach(ix.opts.Epsilon, ix.opts.EpsilonRecursive); err != nil {
			return nil, err
		}
	}
	return ix, nil
}

// Size returns the number of live keys.
func (ix *Index[K, V]) Size() int { return ix.size }

// InsertOrAssign inserts k with value v, replacing any current value.
func (ix *Index[K, V]) InsertOrAssign(k K, v V) error {
	if rec, ok := ix.findRecord(k); !ok || rec.Tombstone {
		ix.size++
	}
	return ix.insert(Record[K, V]{Key: k, Value: v})
}

// Erase removes k. Erasing an absent key is a no-op beyond the tombstone it
// records.
func (ix *Index[K, V]) Erase(k K) error {
	if rec, ok := ix.findRecord(k); ok && !rec.Tombstone {
		ix.size--
	}
	return ix.insert(Record[K, V]{Key: k, Tombstone: true})
}

// Find returns the current value of k.
func (ix *Index[K, V]) Find(k K) (V, bool) {
	rec, ok := ix.findRecord(k)
	if !ok || rec.Tombstone {
		var zero V
		return zero, false
	}
	return rec.Value, true
}

// Count returns 1 if k is present, 0 otherwise.
func (ix *Index[K, V]) Count(k K) int {
	if _, ok := ix.Find(k); ok {
		return 1
	}
	return 0
}

// LowerBound returns the entry with the smallest live key >= k.
func (ix *Index[K, V]) LowerBound(k K) (Entry[K, V], bool) {
	for key, value := range ix.Range(k) {
		return Entry[K, V]{Key: key, Value: value}, true
	}
	return Entry[K, V]{}, false
}

// UpperBound returns the entry with the smallest live key > k.
func (ix *Index[K, V]) UpperBound(k K) (Entry[K, V], bool) {
	for key, value := range ix.Range(k) {
		if key > k {
			return Entry[K, V]{Key: key, Value: value}, true
		}
	}
	return Entry[K, V]{}, false
}

// findRecord returns the newest record for k across all levels, tombstone
// or not.
func (ix *Index[K, V]) findRecord(k K) (Record[K, V], bool) {
	for _, l := range ix.levels {
		if l.empty() {
			continue
		}
		if rec, ok := l.find(k); ok {
			return rec, true
		}
	}
	return Record[K, V]{}, false
}

func (ix *Index[K, V]) capacity(i int) int {
	return ix.opts.BaseCapacity << i
}

func (ix *Index[K, V]) ensureLevel(i int) {
	for len(ix.levels) <= i {
		ix.levels = append(ix.levels, &level[K, V]{})
	}
}

// insert places rec in level 0 if it fits, otherwise merges the overflowing
// prefix of the cascade one level up.
func (ix *Index[K, V]) insert(rec Record[K, V]) error {
	ix.ensureLevel(0)

	l0 := ix.levels[0]
	pos := sort.Search(len(l0.records), func(i int) bool { return l0.records[i].Key >= rec.Key })
	if pos < len(l0.records) && l0.records[pos].Key == rec.Key {
		l0.records[pos] = rec
		return nil
	}
	if len(l0.records) < ix.capacity(0) {
		l0.records = append(l0.records, Record[K, V]{})
		copy(l0.records[pos+1:], l0.records[pos:])
		l0.records[pos] = rec
		return nil
	}

	// Find the first level the merged prefix fits into.
	total := 1
	j := 0
	for {
		ix.ensureLevel(j)
		total += len(ix.levels[j].records)
		if total <= ix.capacity(j) {
			break
		}
		j++
	}
	return ix.mergeInto(j, rec)
}

// mergeInto merges levels[0..j] plus rec into level j. On equal keys the
// newest record wins: rec first, then lower levels. Tombstones are dropped
// only when no level above j holds records, since no older record can then
// be shadowed by them.
func (ix *Index[K, V]) mergeInto(j int, rec Record[K, V]) error {
	dropTombstones := true
	for l := j + 1; l < len(ix.levels); l++ {
		if !ix.levels[l].empty() {
			dropTombstones = false
			break
		}
	}

	// Sources ordered newest first; the fresh record is newest of all.
	sources := make([][]Record[K, V], 0, j+2)
	sources = append(sources, []Record[K, V]{rec})
	for l := 0; l <= j; l++ {
		sources = append(sources, ix.levels[l].records)
	}

	var total int
	for _, s := range sources {
		total += len(s)
	}
	out := make([]Record[K, V], 0, total)

	cursors := make([]int, len(sources))
	for {
		best := -1
		for s, c := range cursors {
			if c >= len(sources[s]) {
				continue
			}
			if best < 0 || sources[s][c].Key < sources[best][cursors[best]].Key {
				best = s
			}
		}
		if best < 0 {
			break
		}
		winner := sources[best][cursors[best]]
		// Advance every source sitting on the same key; the newest source
		// index is the smallest, so the winner found above is the newest.
		for s := range cursors {
			for cursors[s] < len(sources[s]) && sources[s][cursors[s]].Key == winner.Key {
				cursors[s]++
			}
		}
		if winner.Tombstone && dropTombstones {
			continue
		}
		out = append(out, winner)
	}

	for l := 0; l < j; l++ {
		ix.levels[l].records = nil
		ix.levels[l].detach()
	}
	ix.levels[j].records = out
	ix.levels[j].detach()
	if j >= ix.opts.MinIndexedLevel && len(out) > 0 {
		return ix.levels[j].attach(ix.opts.Epsilon, ix.opts.EpsilonRecursive)
	}
	return nil
}

// All iterates live entries in ascending key order.
func (ix *Index[K, V]) All() iter.Seq2[K, V] {
	var from K
	return ix.rangeFrom(from, false)
}

// Range iterates live entries with key >= from in ascending key order.
func (ix *Index[K, V]) Range(from K) iter.Seq2[K, V] {
	return ix.rangeFrom(from, true)
}
