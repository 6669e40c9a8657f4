package persistence

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/hupe1980/pgmgo/index/static"
	"github.com/hupe1980/pgmgo/internal/mmap"
	"github.com/hupe1980/pgmgo/pla"
)

// Mapped is a read-only index backed by a serialized file. For uncompressed
// files the key array aliases the memory mapping, so opening copies no keys;
// it still reads the whole payload once to verify the checksum. Compressed
// files are materialized on open.
//
// A Mapped is immutable and safe for concurrent readers.
type Mapped[K pla.Key] struct {
	mapping *mmap.Mapping // nil when the payload was materialized
	ix      *static.Index[K]
	keys    []K
}

// OpenMapped opens a file written by Save or Write.
func OpenMapped[K pla.Key](path string) (*Mapped[K], error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	data := m.Bytes()
	if len(data) < headerSize {
		_ = m.Close()
		return nil, ErrTruncated
	}
	var header FileHeader
	if err := binary.Read(bytes.NewReader(data[:headerSize]), byteOrder, &header); err != nil {
		_ = m.Close()
		return nil, err
	}

	ix, keys, err := decode[K](&header, data[headerSize:])
	if err != nil {
		_ = m.Close()
		return nil, err
	}

	mp := &Mapped[K]{ix: ix, keys: keys}
	if CompressionType(header.Compression) == CompressionNone {
		mp.mapping = m // keys alias the mapping; keep it alive
	} else {
		_ = m.Close() // keys alias the materialized payload
	}
	return mp, nil
}

// Close releases the underlying mapping, if any.
func (mp *Mapped[K]) Close() error {
	if mp.mapping != nil {
		return mp.mapping.Close()
	}
	return nil
}

// Len returns the number of keys, duplicates included.
func (mp *Mapped[K]) Len() int { return len(mp.keys) }

// At returns the key at rank i.
func (mp *Mapped[K]) At(i int) K { return mp.keys[i] }

// Keys exposes the sorted key array. The slice aliases mapped or decoded
// storage and must be treated as read-only.
func (mp *Mapped[K]) Keys() []K { return mp.keys }

// Index returns the embedded static index.
func (mp *Mapped[K]) Index() *static.Index[K] { return mp.ix }

// Search returns the epsilon-bounded range for q.
func (mp *Mapped[K]) Search(q K) static.ApproxRange { return mp.ix.Search(q) }

// LowerBoundPos returns the rank of the first key >= q.
func (mp *Mapped[K]) LowerBoundPos(q K) int {
	r := mp.ix.Search(q)
	return r.Lo + sort.Search(r.Hi-r.Lo, func(i int) bool { return mp.keys[r.Lo+i] >= q })
}

// UpperBoundPos returns the rank one past the last key == q. Duplicate runs
// may exceed the epsilon window, so the scan continues past it.
func (mp *Mapped[K]) UpperBoundPos(q K) int {
	lb := mp.LowerBoundPos(q)
	return lb + sort.Search(len(mp.keys)-lb, func(i int) bool { return mp.keys[lb+i] > q })
}

// Count returns the multiplicity of q.
func (mp *Mapped[K]) Count(q K) int {
	return mp.UpperBoundPos(q) - mp.LowerBoundPos(q)
}
