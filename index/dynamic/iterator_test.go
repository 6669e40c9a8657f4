package dynamic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildLevels assembles an index with hand-placed level contents to pin the
// merge iterator's shadowing rules.
func buildLevels(t *testing.T, levels ...[]Record[uint64, string]) *Index[uint64, string] {
	t.Helper()
	ix, err := New[uint64, string]()
	require.NoError(t, err)
	for _, records := range levels {
		ix.levels = append(ix.levels, &level[uint64, string]{records: records})
	}
	return ix
}

func TestMergeIterator(t *testing.T) {
	t.Run("NewestWins", func(t *testing.T) {
		ix := buildLevels(t,
			[]Record[uint64, string]{{Key: 2, Value: "new"}},
			[]Record[uint64, string]{{Key: 1, Value: "a"}, {Key: 2, Value: "old"}, {Key: 3, Value: "c"}},
		)

		got := collect(ix)
		require.Len(t, got, 3)
		assert.Equal(t, "a", got[0].Value)
		assert.Equal(t, "new", got[1].Value)
		assert.Equal(t, "c", got[2].Value)
	})

	t.Run("TombstoneShadows", func(t *testing.T) {
		ix := buildLevels(t,
			[]Record[uint64, string]{{Key: 2, Tombstone: true}},
			[]Record[uint64, string]{{Key: 1, Value: "a"}, {Key: 2, Value: "b"}, {Key: 3, Value: "c"}},
		)

		got := collect(ix)
		require.Len(t, got, 2)
		assert.Equal(t, uint64(1), got[0].Key)
		assert.Equal(t, uint64(3), got[1].Key)
	})

	t.Run("TombstoneOverTombstone", func(t *testing.T) {
		ix := buildLevels(t,
			[]Record[uint64, string]{{Key: 1, Value: "live"}},
			[]Record[uint64, string]{{Key: 1, Tombstone: true}},
			[]Record[uint64, string]{{Key: 1, Value: "oldest"}},
		)

		got := collect(ix)
		require.Len(t, got, 1)
		assert.Equal(t, "live", got[0].Value)
	})

	t.Run("EarlyTermination", func(t *testing.T) {
		ix := buildLevels(t,
			[]Record[uint64, string]{{Key: 1, Value: "a"}, {Key: 2, Value: "b"}, {Key: 3, Value: "c"}},
		)

		var count int
		for range ix.All() {
			count++
			if count == 2 {
				break
			}
		}
		assert.Equal(t, 2, count)
	})

	t.Run("EmptyLevels", func(t *testing.T) {
		ix := buildLevels(t,
			nil,
			[]Record[uint64, string]{{Key: 1, Value: "a"}},
			nil,
		)
		got := collect(ix)
		require.Len(t, got, 1)
	})
}

func TestMergeDropsTombstonesAtLastLevel(t *testing.T) {
	ix, err := New[uint64, int](func(o *Options) {
		o.BaseCapacity = 2
		o.MinIndexedLevel = 10
	})
	require.NoError(t, err)

	// Insert then erase everything; cascading merges eventually reach the
	// highest occupied level, where the tombstones must be dropped rather
	// than accumulate forever.
	for k := uint64(0); k < 64; k++ {
		require.NoError(t, ix.InsertOrAssign(k, 1))
	}
	for k := uint64(0); k < 64; k++ {
		require.NoError(t, ix.Erase(k))
	}
	// Push enough fresh records through to force full-depth merges.
	for k := uint64(100); k < 164; k++ {
		require.NoError(t, ix.InsertOrAssign(k, 2))
	}

	assert.Equal(t, 64, ix.Size())

	var total int
	for _, l := range ix.levels {
		for _, r := range l.records {
			total++
			if r.Key < 100 {
				assert.True(t, r.Tombstone, "key %d should only survive as a tombstone", r.Key)
			}
		}
	}
	// The erased keys may persist as tombstones in middle levels, but the
	// live set must be exactly the fresh keys.
	assert.GreaterOrEqual(t, total, 64)
}
