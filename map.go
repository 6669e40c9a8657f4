package pgmgo

import (
	"context"
	"iter"
	"time"

	"github.com/hupe1980/pgmgo/index/dynamic"
)

// Entry is a key/value pair yielded by Map queries.
type Entry[K Key, V any] = dynamic.Entry[K, V]

// Map is a mutable sorted map over numeric keys, backed by a logarithmic
// cascade of learned indexes. Semantics match a sorted associative
// container: the value of a key is the most recently assigned one, and an
// erased key is absent until re-inserted.
//
// A Map is not internally synchronized.
type Map[K Key, V any] struct {
	ix   *dynamic.Index[K, V]
	opts options
}

// NewMap creates an empty Map.
func NewMap[K Key, V any](optFns ...Option) (*Map[K, V], error) {
	opts := applyOptions(optFns)
	ix, err := dynamic.New[K, V](dynamicOptions(opts))
	if err != nil {
		return nil, err
	}
	return &Map[K, V]{ix: ix, opts: opts}, nil
}

// NewMapFromSorted bulk-loads a Map from entries sorted by key.
func NewMapFromSorted[K Key, V any](entries []Entry[K, V], optFns ...Option) (*Map[K, V], error) {
	opts := applyOptions(optFns)

	start := time.Now()
	ix, err := dynamic.NewFromSorted(entries, dynamicOptions(opts))
	opts.metricsCollector.RecordBuild(len(entries), time.Since(start), err)
	if err != nil {
		opts.logger.LogBuild(context.Background(), len(entries), 0, 0, 0, err)
		return nil, err
	}
	return &Map[K, V]{ix: ix, opts: opts}, nil
}

func dynamicOptions(opts options) func(o *dynamic.Options) {
	return func(o *dynamic.Options) {
		o.BaseCapacity = opts.baseCapacity
		o.MinIndexedLevel = opts.minIndexedLevel
		o.Epsilon = opts.epsilon
		o.EpsilonRecursive = opts.epsilonRecursive
	}
}

// Size returns the number of live keys.
func (m *Map[K, V]) Size() int { return m.ix.Size() }

// InsertOrAssign inserts k with value v, replacing any current value.
func (m *Map[K, V]) InsertOrAssign(k K, v V) error {
	start := time.Now()
	err := m.ix.InsertOrAssign(k, v)
	m.opts.metricsCollector.RecordInsert(time.Since(start), err)
	if err != nil {
		m.opts.logger.LogInsert(context.Background(), err)
	}
	return err
}

// Erase removes k.
func (m *Map[K, V]) Erase(k K) error {
	start := time.Now()
	err := m.ix.Erase(k)
	m.opts.metricsCollector.RecordErase(time.Since(start), err)
	if err != nil {
		m.opts.logger.LogErase(context.Background(), err)
	}
	return err
}

// Find returns the current value of k.
func (m *Map[K, V]) Find(k K) (V, bool) {
	start := time.Now()
	v, ok := m.ix.Find(k)
	m.opts.metricsCollector.RecordSearch(time.Since(start))
	return v, ok
}

// Count returns 1 if k is present, 0 otherwise.
func (m *Map[K, V]) Count(k K) int { return m.ix.Count(k) }

// LowerBound returns the entry with the smallest live key >= k.
func (m *Map[K, V]) LowerBound(k K) (Entry[K, V], bool) {
	start := time.Now()
	e, ok := m.ix.LowerBound(k)
	m.opts.metricsCollector.RecordSearch(time.Since(start))
	return e, ok
}

// UpperBound returns the entry with the smallest live key > k.
func (m *Map[K, V]) UpperBound(k K) (Entry[K, V], bool) {
	start := time.Now()
	e, ok := m.ix.UpperBound(k)
	m.opts.metricsCollector.RecordSearch(time.Since(start))
	return e, ok
}

// All iterates live entries in ascending key order.
func (m *Map[K, V]) All() iter.Seq2[K, V] { return m.ix.All() }

// Range iterates live entries with key >= from in ascending key order.
func (m *Map[K, V]) Range(from K) iter.Seq2[K, V] { return m.ix.Range(from) }
