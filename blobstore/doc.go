// Package blobstore abstracts storage for serialized index snapshots.
//
// A BlobStore holds immutable named blobs. The local store memory-maps
// files for zero-copy reads; the remote stores (see the s3 and minio
// subpackages) fetch ranges on demand and are usually wrapped in a
// CachingStore that keeps a local copy of hot snapshots.
package blobstore
