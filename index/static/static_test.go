package static

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/pgmgo/pla"
	"github.com/hupe1980/pgmgo/testutil"
)

// checkContained verifies the search contract for one query: the range is
// within bounds, no wider than 2*epsilon+2, and contains the lower bound.
func checkContained(t *testing.T, ix *Index[uint64], keys []uint64, q uint64, epsilon int) {
	t.Helper()
	r := ix.Search(q)
	if r.Lo > r.Pos || r.Pos > r.Hi || r.Hi > len(keys) {
		t.Fatalf("query %d: malformed range %+v", q, r)
	}
	if r.Hi-r.Lo > 2*epsilon+2 {
		t.Fatalf("query %d: range width %d exceeds %d", q, r.Hi-r.Lo, 2*epsilon+2)
	}
	lb := testutil.LowerBoundPos(keys, q)
	if lb < r.Lo || lb > r.Hi {
		t.Fatalf("query %d: lower bound %d outside range [%d, %d)", q, lb, r.Lo, r.Hi)
	}
}

func TestBuild(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		ix, err := Build([]uint64{})
		require.NoError(t, err)
		assert.Equal(t, 0, ix.Len())
		assert.Equal(t, ApproxRange{}, ix.Search(42))
	})

	t.Run("SingleKey", func(t *testing.T) {
		ix, err := Build([]uint64{7})
		require.NoError(t, err)
		require.Equal(t, 1, ix.Len())

		r := ix.Search(7)
		assert.Equal(t, 0, r.Lo)
		assert.GreaterOrEqual(t, r.Hi, 1)

		r = ix.Search(8)
		assert.Equal(t, ApproxRange{Lo: 1, Hi: 1, Pos: 1}, r)
	})

	t.Run("AllIdentical", func(t *testing.T) {
		keys := make([]uint64, 500)
		for i := range keys {
			keys[i] = 9
		}
		ix, err := Build(keys, func(o *Options) { o.Epsilon = 4 })
		require.NoError(t, err)
		assert.Equal(t, 1, ix.Stats().SegmentsPerLevel[0])

		r := ix.Search(9)
		assert.Equal(t, 0, testutil.LowerBoundPos(keys, uint64(9)))
		assert.LessOrEqual(t, r.Lo, 0)
	})

	t.Run("InvalidEpsilon", func(t *testing.T) {
		_, err := Build([]uint64{1, 2, 3}, func(o *Options) { o.Epsilon = 0 })
		var eps *pla.ErrInvalidEpsilon
		assert.ErrorAs(t, err, &eps)
	})

	t.Run("Unsorted", func(t *testing.T) {
		_, err := Build([]uint64{5, 3, 1})
		assert.ErrorIs(t, err, pla.ErrUnsortedKeys)
	})

	t.Run("TerminatesAtRoot", func(t *testing.T) {
		rng := testutil.NewRNG(3)
		keys := rng.UniformKeys(100_000, 1<<40)
		ix, err := Build(keys, func(o *Options) {
			o.Epsilon = 16
			o.EpsilonRecursive = 2
		})
		require.NoError(t, err)
		levels := ix.Levels()
		require.NotEmpty(t, levels)
		assert.Len(t, levels[len(levels)-1], 1)
		for l := 1; l < len(levels); l++ {
			assert.Less(t, len(levels[l]), len(levels[l-1]))
		}
	})
}

func TestSearch(t *testing.T) {
	t.Run("SequentialMillion", func(t *testing.T) {
		n := 1_000_000
		keys := testutil.SequentialKeys(n)
		ix, err := Build(keys, func(o *Options) { o.Epsilon = 64 })
		require.NoError(t, err)

		rng := testutil.NewRNG(42)
		for i := 0; i < 10_000; i++ {
			q := keys[rng.Intn(n)]
			r := ix.Search(q)
			if r.Hi-r.Lo > 130 {
				t.Fatalf("range width %d exceeds 130", r.Hi-r.Lo)
			}
			found := false
			for p := r.Lo; p < r.Hi; p++ {
				if keys[p] == q {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("query %d not inside range [%d, %d)", q, r.Lo, r.Hi)
			}
		}

		// Past the last key the range collapses to the end.
		r := ix.Search(1_000_041)
		assert.Equal(t, ApproxRange{Lo: n, Hi: n, Pos: n}, r)

		// Below the first key the range clamps to the start.
		r = ix.Search(0)
		assert.Equal(t, 0, r.Lo)
	})

	t.Run("EveryKeyFindable", func(t *testing.T) {
		distributions := []struct {
			name string
			keys []uint64
		}{
			{"dense", testutil.NewRNG(1).UniformKeys(50_000, 10_000)},
			{"sparse", testutil.NewRNG(2).UniformKeys(50_000, 10_000_000)},
			{"skewed", testutil.NewRNG(3).GeometricKeys(50_000, 0.8)},
		}
		epsilons := []struct{ data, recursive int }{
			{16, 0},
			{32, 0},
			{64, 4},
			{4, 16},
		}
		for _, dist := range distributions {
			for _, eps := range epsilons {
				ix, err := Build(dist.keys, func(o *Options) {
					o.Epsilon = eps.data
					o.EpsilonRecursive = eps.recursive
				})
				require.NoError(t, err)
				for _, q := range dist.keys {
					checkContained(t, ix, dist.keys, q, eps.data)
				}
			}
		}
	})

	t.Run("AbsentKeys", func(t *testing.T) {
		rng := testutil.NewRNG(11)
		keys := rng.UniformKeys(100_000, 1<<32)
		ix, err := Build(keys, func(o *Options) { o.Epsilon = 32 })
		require.NoError(t, err)

		for i := 0; i < 10_000; i++ {
			q := rng.Uint64() % (1 << 32)
			if q > keys[len(keys)-1] {
				continue
			}
			checkContained(t, ix, keys, q, 32)
		}
	})

	t.Run("FloatKeys", func(t *testing.T) {
		rng := testutil.NewRNG(5)
		keys := rng.LognormalKeys(100_000, 0, 0.5)
		ix, err := Build(keys, func(o *Options) { o.Epsilon = 32 })
		require.NoError(t, err)

		for i := 0; i < 5_000; i++ {
			q := keys[rng.Intn(len(keys))]
			r := ix.Search(q)
			lb := testutil.LowerBoundPos(keys, q)
			require.GreaterOrEqual(t, lb, r.Lo)
			require.LessOrEqual(t, lb, r.Hi)
		}
	})
}

func TestStats(t *testing.T) {
	keys := testutil.SequentialKeys(10_000)
	ix, err := Build(keys, func(o *Options) { o.Epsilon = 8 })
	require.NoError(t, err)

	stats := ix.Stats()
	assert.Equal(t, 10_000, stats.Keys)
	assert.Equal(t, stats.Height, len(stats.SegmentsPerLevel))
	assert.Equal(t, 1, stats.SegmentsPerLevel[stats.Height-1])
	assert.Positive(t, stats.SizeBytes)
}

func TestFromLevels(t *testing.T) {
	keys := testutil.SequentialKeys(1_000)
	built, err := Build(keys, func(o *Options) { o.Epsilon = 8 })
	require.NoError(t, err)

	rebuilt := FromLevels(built.Len(), Options{Epsilon: 8, EpsilonRecursive: 4}, built.Levels(), keys[0], keys[len(keys)-1])
	for _, q := range []uint64{0, 500, 999} {
		assert.Equal(t, built.Search(q), rebuilt.Search(q))
	}
}
