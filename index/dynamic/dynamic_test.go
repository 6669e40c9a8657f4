package dynamic

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/pgmgo/testutil"
)

func collect[V any](ix *Index[uint64, V]) []Entry[uint64, V] {
	var out []Entry[uint64, V]
	for k, v := range ix.All() {
		out = append(out, Entry[uint64, V]{Key: k, Value: v})
	}
	return out
}

func TestInsertFind(t *testing.T) {
	t.Run("AssignOverwrites", func(t *testing.T) {
		ix, err := New[uint64, string]()
		require.NoError(t, err)

		require.NoError(t, ix.InsertOrAssign(1, "a"))
		require.NoError(t, ix.InsertOrAssign(1, "b"))

		v, ok := ix.Find(1)
		require.True(t, ok)
		assert.Equal(t, "b", v)
		assert.Equal(t, 1, ix.Size())
	})

	t.Run("EraseHides", func(t *testing.T) {
		ix, err := New[uint64, int]()
		require.NoError(t, err)

		require.NoError(t, ix.InsertOrAssign(5, 50))
		require.NoError(t, ix.Erase(5))

		_, ok := ix.Find(5)
		assert.False(t, ok)
		assert.Equal(t, 0, ix.Size())
		assert.Equal(t, 0, ix.Count(5))
	})

	t.Run("ReinsertAfterErase", func(t *testing.T) {
		ix, err := New[uint64, int]()
		require.NoError(t, err)

		require.NoError(t, ix.InsertOrAssign(5, 50))
		require.NoError(t, ix.Erase(5))
		require.NoError(t, ix.InsertOrAssign(5, 51))

		v, ok := ix.Find(5)
		require.True(t, ok)
		assert.Equal(t, 51, v)
		assert.Equal(t, 1, ix.Size())
	})

	t.Run("EraseAbsent", func(t *testing.T) {
		ix, err := New[uint64, int]()
		require.NoError(t, err)
		require.NoError(t, ix.Erase(99))
		assert.Equal(t, 0, ix.Size())
		_, ok := ix.Find(99)
		assert.False(t, ok)
	})

	t.Run("InvalidOptions", func(t *testing.T) {
		_, err := New[uint64, int](func(o *Options) { o.BaseCapacity = 1 })
		var cap *ErrInvalidCapacity
		assert.ErrorAs(t, err, &cap)
	})
}

func TestCascade(t *testing.T) {
	t.Run("ManyInserts", func(t *testing.T) {
		// Small base capacity forces merges through several levels.
		ix, err := New[uint64, int](func(o *Options) {
			o.BaseCapacity = 4
			o.MinIndexedLevel = 3
		})
		require.NoError(t, err)

		ref := map[uint64]int{}
		rng := testutil.NewRNG(42)
		for i := 0; i < 20_000; i++ {
			k := rng.Uint64() % 5_000
			switch rng.Intn(4) {
			case 0:
				require.NoError(t, ix.Erase(k))
				delete(ref, k)
			default:
				require.NoError(t, ix.InsertOrAssign(k, i))
				ref[k] = i
			}
		}

		require.Equal(t, len(ref), ix.Size())
		for k, v := range ref {
			got, ok := ix.Find(k)
			require.True(t, ok, "key %d missing", k)
			require.Equal(t, v, got, "key %d stale value", k)
		}

		// Ordered iteration matches the reference, key for key.
		refKeys := make([]uint64, 0, len(ref))
		for k := range ref {
			refKeys = append(refKeys, k)
		}
		sort.Slice(refKeys, func(i, j int) bool { return refKeys[i] < refKeys[j] })

		got := collect(ix)
		require.Len(t, got, len(refKeys))
		for i, k := range refKeys {
			require.Equal(t, k, got[i].Key)
			require.Equal(t, ref[k], got[i].Value)
		}
	})

	t.Run("EraseRange", func(t *testing.T) {
		ix, err := New[uint64, int](func(o *Options) {
			o.BaseCapacity = 8
			o.MinIndexedLevel = 4
		})
		require.NoError(t, err)

		for k := uint64(1); k <= 1000; k++ {
			require.NoError(t, ix.InsertOrAssign(k, int(k)))
		}
		for k := uint64(10); k <= 499; k++ {
			require.NoError(t, ix.Erase(k))
		}

		var keys []uint64
		for k := range ix.All() {
			keys = append(keys, k)
		}

		var want []uint64
		for k := uint64(1); k <= 9; k++ {
			want = append(want, k)
		}
		for k := uint64(500); k <= 1000; k++ {
			want = append(want, k)
		}
		assert.Equal(t, want, keys)
		assert.Equal(t, len(want), ix.Size())
	})
}

func TestBulkLoad(t *testing.T) {
	t.Run("LargeBulkThenMutate", func(t *testing.T) {
		rng := testutil.NewRNG(42)
		n := 200_000

		entries := make([]Entry[uint64, uint64], n)
		var time uint64
		for i := range entries {
			time++
			entries[i] = Entry[uint64, uint64]{Key: rng.Uint64() % 1_000_000_000, Value: time}
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

		ix, err := NewFromSorted(entries, func(o *Options) { o.MinIndexedLevel = 10 })
		require.NoError(t, err)

		ref := map[uint64]uint64{}
		for i := range entries {
			if _, ok := ref[entries[i].Key]; !ok {
				ref[entries[i].Key] = entries[i].Value
			}
		}
		require.Equal(t, len(ref), ix.Size())

		// Reassign the first 10k distinct keys.
		distinct := make([]uint64, 0, 10_000)
		seen := map[uint64]bool{}
		for i := 0; len(distinct) < 10_000; i++ {
			if !seen[entries[i].Key] {
				seen[entries[i].Key] = true
				distinct = append(distinct, entries[i].Key)
			}
		}
		for _, k := range distinct {
			time++
			require.NoError(t, ix.InsertOrAssign(k, time))
			ref[k] = time
		}

		// Insert 10k fresh keys.
		for i := 0; i < 10_000; i++ {
			time++
			k := rng.Uint64() % 1_000_000_000
			require.NoError(t, ix.InsertOrAssign(k, time))
			ref[k] = time
		}

		require.Equal(t, len(ref), ix.Size())

		for _, k := range distinct {
			v, ok := ix.Find(k)
			require.True(t, ok)
			require.Equal(t, ref[k], v)
		}

		refKeys := make([]uint64, 0, len(ref))
		for k := range ref {
			refKeys = append(refKeys, k)
		}
		sort.Slice(refKeys, func(i, j int) bool { return refKeys[i] < refKeys[j] })

		i := 0
		for k, v := range ix.All() {
			require.Equal(t, refKeys[i], k)
			require.Equal(t, ref[k], v)
			i++
		}
		require.Equal(t, len(refKeys), i)
	})

	t.Run("Empty", func(t *testing.T) {
		ix, err := NewFromSorted[uint64, int](nil)
		require.NoError(t, err)
		assert.Equal(t, 0, ix.Size())
		_, ok := ix.LowerBound(0)
		assert.False(t, ok)
	})

	t.Run("DuplicateKeysKeepFirst", func(t *testing.T) {
		entries := []Entry[uint64, string]{
			{Key: 1, Value: "a"},
			{Key: 1, Value: "b"},
			{Key: 2, Value: "c"},
		}
		ix, err := NewFromSorted(entries)
		require.NoError(t, err)
		assert.Equal(t, 2, ix.Size())
		v, ok := ix.Find(1)
		require.True(t, ok)
		assert.Equal(t, "a", v)
	})
}

func TestBounds(t *testing.T) {
	ix, err := New[uint64, int](func(o *Options) {
		o.BaseCapacity = 4
		o.MinIndexedLevel = 3
	})
	require.NoError(t, err)

	for _, k := range []uint64{10, 20, 30, 40, 50} {
		require.NoError(t, ix.InsertOrAssign(k, int(k)))
	}
	require.NoError(t, ix.Erase(30))

	t.Run("LowerBound", func(t *testing.T) {
		e, ok := ix.LowerBound(20)
		require.True(t, ok)
		assert.Equal(t, uint64(20), e.Key)

		// 30 is erased; the bound skips to 40.
		e, ok = ix.LowerBound(25)
		require.True(t, ok)
		assert.Equal(t, uint64(40), e.Key)

		_, ok = ix.LowerBound(51)
		assert.False(t, ok)
	})

	t.Run("UpperBound", func(t *testing.T) {
		e, ok := ix.UpperBound(20)
		require.True(t, ok)
		assert.Equal(t, uint64(40), e.Key)

		e, ok = ix.UpperBound(0)
		require.True(t, ok)
		assert.Equal(t, uint64(10), e.Key)

		_, ok = ix.UpperBound(50)
		assert.False(t, ok)
	})

	t.Run("RangeFrom", func(t *testing.T) {
		var keys []uint64
		for k := range ix.Range(15) {
			keys = append(keys, k)
		}
		assert.Equal(t, []uint64{20, 40, 50}, keys)
	})
}
