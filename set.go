package pgmgo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hupe1980/pgmgo/blobstore"
	"github.com/hupe1980/pgmgo/index/static"
	"github.com/hupe1980/pgmgo/persistence"
	"github.com/hupe1980/pgmgo/pla"
)

// Key is the set of key types an index can cover.
type Key = pla.Key

// Set is an immutable sorted key set with a learned index over it. It
// retains the key slice it was built from, so lookups resolve to exact
// ranks. A Set is safe for concurrent readers.
type Set[K Key] struct {
	keys   []K
	ix     *static.Index[K]
	opts   options
	mapped *persistence.Mapped[K] // non-nil when loaded from a mapped file
}

// NewSet builds a Set over a non-decreasing key slice. The slice is
// retained, not copied; callers must not modify it afterwards.
func NewSet[K Key](keys []K, optFns ...Option) (*Set[K], error) {
	opts := applyOptions(optFns)

	start := time.Now()
	ix, err := static.Build(keys, func(o *static.Options) {
		o.Epsilon = opts.epsilon
		o.EpsilonRecursive = opts.epsilonRecursive
	})
	opts.metricsCollector.RecordBuild(len(keys), time.Since(start), err)
	if err != nil {
		opts.logger.LogBuild(context.Background(), len(keys), 0, 0, 0, err)
		return nil, err
	}
	stats := ix.Stats()
	opts.logger.LogBuild(context.Background(), len(keys), stats.Segments, stats.Height, time.Since(start), nil)

	return &Set[K]{keys: keys, ix: ix, opts: opts}, nil
}

// Len returns the number of keys, duplicates included.
func (s *Set[K]) Len() int { return len(s.keys) }

// Keys exposes the sorted key slice. It must be treated as read-only.
func (s *Set[K]) Keys() []K { return s.keys }

// Index returns the underlying static index.
func (s *Set[K]) Index() *static.Index[K] { return s.ix }

// Stats returns statistics about the index shape.
func (s *Set[K]) Stats() static.Stats { return s.ix.Stats() }

// Search returns the epsilon-bounded range for q.
func (s *Set[K]) Search(q K) static.ApproxRange { return s.ix.Search(q) }

// LowerBoundPos returns the rank of the first key >= q.
func (s *Set[K]) LowerBoundPos(q K) int {
	start := time.Now()
	r := s.ix.Search(q)
	pos := r.Lo + sort.Search(r.Hi-r.Lo, func(i int) bool { return s.keys[r.Lo+i] >= q })
	s.opts.metricsCollector.RecordSearch(time.Since(start))
	return pos
}

// UpperBoundPos returns the rank one past the last key == q.
func (s *Set[K]) UpperBoundPos(q K) int {
	lb := s.LowerBoundPos(q)
	return lb + sort.Search(len(s.keys)-lb, func(i int) bool { return s.keys[lb+i] > q })
}

// Count returns the multiplicity of q.
func (s *Set[K]) Count(q K) int {
	return s.UpperBoundPos(q) - s.LowerBoundPos(q)
}

// Contains reports whether q is present.
func (s *Set[K]) Contains(q K) bool {
	lb := s.LowerBoundPos(q)
	return lb < len(s.keys) && s.keys[lb] == q
}

// Save writes the Set atomically to a file.
func (s *Set[K]) Save(filename string) error {
	start := time.Now()
	err := persistence.Save(filename, s.ix, s.keys, func(o *persistence.Options) {
		o.Compression = s.opts.compression
	})
	s.opts.metricsCollector.RecordSnapshot(time.Since(start), err)
	s.opts.logger.LogSnapshot(context.Background(), filename, err)
	return err
}

// SaveToStore serializes the Set and uploads it as a blob.
func (s *Set[K]) SaveToStore(ctx context.Context, store blobstore.BlobStore, name string) error {
	start := time.Now()
	data, err := persistence.Bytes(s.ix, s.keys, func(o *persistence.Options) {
		o.Compression = s.opts.compression
	})
	if err == nil {
		err = store.Put(ctx, name, data)
	}
	s.opts.metricsCollector.RecordSnapshot(time.Since(start), err)
	s.opts.logger.LogSnapshot(ctx, name, err)
	return err
}

// LoadSet reads a Set from a file written by Save. The file is opened with
// persistence.OpenMapped: an uncompressed snapshot stays memory-mapped and
// its keys are not copied, while a compressed one is materialized. Close
// releases the mapping.
func LoadSet[K Key](filename string, optFns ...Option) (*Set[K], error) {
	opts := applyOptions(optFns)

	start := time.Now()
	mp, err := persistence.OpenMapped[K](filename)
	opts.metricsCollector.RecordSnapshot(time.Since(start), err)
	if err != nil {
		opts.logger.LogLoad(context.Background(), filename, 0, err)
		return nil, err
	}
	opts.logger.LogLoad(context.Background(), filename, mp.Len(), nil)

	return &Set[K]{keys: mp.Keys(), ix: mp.Index(), opts: opts, mapped: mp}, nil
}

// Close releases the file mapping backing a loaded Set. Sets built in
// memory have nothing to release.
func (s *Set[K]) Close() error {
	if s.mapped != nil {
		return s.mapped.Close()
	}
	return nil
}

// LoadSetFromStore downloads and deserializes a Set from a blob store.
func LoadSetFromStore[K Key](ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (*Set[K], error) {
	opts := applyOptions(optFns)

	start := time.Now()
	set, err := loadSetBlob[K](ctx, store, name, opts)
	opts.metricsCollector.RecordSnapshot(time.Since(start), err)
	if err != nil {
		opts.logger.LogLoad(ctx, name, 0, err)
		return nil, err
	}
	opts.logger.LogLoad(ctx, name, set.Len(), nil)
	return set, nil
}

func loadSetBlob[K Key](ctx context.Context, store blobstore.BlobStore, name string, opts options) (*Set[K], error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: snapshot %q", ErrNotFound, name)
		}
		return nil, err
	}
	defer blob.Close()

	data, err := blobstore.ReadAll(blob)
	if err != nil {
		return nil, err
	}
	ix, keys, err := persistence.Read[K](bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &Set[K]{keys: keys, ix: ix, opts: opts}, nil
}
