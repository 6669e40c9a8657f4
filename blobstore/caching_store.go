package blobstore

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/pgmgo/resource"
)

// Compile-time check to ensure CachingStore satisfies the interface.
var _ BlobStore = (*CachingStore)(nil)

// CachingStore layers a LocalStore cache in front of a remote BlobStore.
// Opens are served from the cache when possible; misses fetch the whole
// blob from the remote, populate the cache, and serve the local copy.
// Writes go to both.
type CachingStore struct {
	remote  BlobStore
	cache   *LocalStore
	control *resource.Controller
}

// CachingStoreOptions contains configuration options for the caching store.
type CachingStoreOptions struct {
	// Controller bounds remote transfer concurrency and throughput.
	// Nil means unbounded.
	Controller *resource.Controller
}

// NewCachingStore creates a caching store with its cache rooted at cacheDir.
func NewCachingStore(remote BlobStore, cacheDir string, optFns ...func(o *CachingStoreOptions)) (*CachingStore, error) {
	opts := CachingStoreOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	cache, err := NewLocalStore(cacheDir)
	if err != nil {
		return nil, err
	}
	return &CachingStore{remote: remote, cache: cache, control: opts.Controller}, nil
}

// Open opens a blob, filling the cache on miss.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	if b, err := s.cache.Open(ctx, name); err == nil {
		return b, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err := s.fill(ctx, name); err != nil {
		return nil, err
	}
	return s.cache.Open(ctx, name)
}

// Put writes through to the remote first, then the cache.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.control.AcquireTransfer(ctx); err != nil {
		return err
	}
	defer s.control.ReleaseTransfer()
	if err := s.control.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	if err := s.remote.Put(ctx, name, data); err != nil {
		return err
	}
	return s.cache.Put(ctx, name, data)
}

// Delete removes the blob from both stores.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	if err := s.remote.Delete(ctx, name); err != nil {
		return err
	}
	return s.cache.Delete(ctx, name)
}

// List lists the remote store; the cache may lag behind it.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.remote.List(ctx, prefix)
}

// Prefetch warms the cache for the named blobs, fetching concurrently.
// Blobs already cached are skipped.
func (s *CachingStore) Prefetch(ctx context.Context, names ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, name := range names {
		name := name
		g.Go(func() error {
			if b, err := s.cache.Open(ctx, name); err == nil {
				return b.Close()
			}
			return s.fill(ctx, name)
		})
	}
	return g.Wait()
}

// fill copies one blob from the remote into the cache.
func (s *CachingStore) fill(ctx context.Context, name string) error {
	if err := s.control.AcquireTransfer(ctx); err != nil {
		return err
	}
	defer s.control.ReleaseTransfer()

	rb, err := s.remote.Open(ctx, name)
	if err != nil {
		return err
	}
	defer rb.Close()

	if err := s.control.AcquireIO(ctx, int(rb.Size())); err != nil {
		return err
	}
	data, err := ReadAll(rb)
	if err != nil {
		return err
	}
	return s.cache.Put(ctx, name, data)
}
