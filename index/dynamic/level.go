package dynamic

import (
	"encoding/binary"
	"hash/crc32"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/pgmgo/index/static"
	"github.com/hupe1980/pgmgo/pla"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// fingerprint maps a key to the 32-bit value stored in a level's membership
// bitmap. Conversion through uint64 may collide distinct keys (notably float
// keys sharing an integer part); collisions only cost a wasted level probe.
func fingerprint[K pla.Key](k K) uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(k))
	return crc32.Checksum(buf[:], castagnoli)
}

// Record is one entry of a dynamic level. A tombstone marks the key as
// deleted and shadows every older record of that key.
type Record[K pla.Key, V any] struct {
	Key       K
	Value     V
	Tombstone bool
}

// level is one buffer of the logarithmic cascade: a sorted record array,
// plus, above the indexed threshold, an attached static index over its keys
// and a roaring bitmap of key fingerprints used to skip the level entirely
// on point lookups.
type level[K pla.Key, V any] struct {
	records []Record[K, V]
	index   *static.Index[K]
	members *roaring.Bitmap
}

func (l *level[K, V]) empty() bool { return len(l.records) == 0 }

// attach builds the level's static index and membership bitmap.
func (l *level[K, V]) attach(epsilon, epsilonRecursive int) error {
	keys := make([]K, len(l.records))
	members := roaring.New()
	for i, r := range l.records {
		keys[i] = r.Key
		members.Add(fingerprint(r.Key))
	}
	ix, err := static.Build(keys, func(o *static.Options) {
		o.Epsilon = epsilon
		o.EpsilonRecursive = epsilonRecursive
	})
	if err != nil {
		return err
	}
	l.index = ix
	l.members = members
	return nil
}

func (l *level[K, V]) detach() {
	l.index = nil
	l.members = nil
}

// find locates the record for k, using the attached index when present.
func (l *level[K, V]) find(k K) (Record[K, V], bool) {
	if len(l.records) == 0 {
		return Record[K, V]{}, false
	}
	if l.members != nil && !l.members.Contains(fingerprint(k)) {
		return Record[K, V]{}, false
	}

	lo, hi := 0, len(l.records)
	if l.index != nil {
		r := l.index.Search(k)
		lo, hi = r.Lo, r.Hi
	}
	i := lo + sort.Search(hi-lo, func(i int) bool { return l.records[lo+i].Key >= k })
	if i < len(l.records) && l.records[i].Key == k {
		return l.records[i], true
	}
	return Record[K, V]{}, false
}

// lowerBound returns the position of the first record with key >= k.
func (l *level[K, V]) lowerBound(k K) int {
	lo, hi := 0, len(l.records)
	if l.index != nil && len(l.records) > 0 {
		r := l.index.Search(k)
		lo, hi = r.Lo, r.Hi
	}
	i := lo + sort.Search(hi-lo, func(i int) bool { return l.records[lo+i].Key >= k })
	// The window [lo, hi) is only guaranteed to contain k itself; when k is
	// absent the bound may sit at the window edge, so verify and widen.
	if l.index != nil {
		if i == hi && hi < len(l.records) {
			i = hi + sort.Search(len(l.records)-hi, func(j int) bool { return l.records[hi+j].Key >= k })
		} else if i == lo && lo > 0 && l.records[lo-1].Key >= k {
			i = sort.Search(lo, func(j int) bool { return l.records[j].Key >= k })
		}
	}
	return i
}
