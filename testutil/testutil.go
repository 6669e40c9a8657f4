// Package testutil provides seeded data generators and reference
// implementations for index tests and benchmarks.
package testutil

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/pgmgo/pla"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// SequentialKeys returns the keys 0..n-1.
func SequentialKeys(n int) []uint64 {
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = uint64(i)
	}
	return keys
}

// UniformKeys returns n sorted keys drawn uniformly from [0, bound).
// A small bound produces dense data with many duplicates; a large bound
// produces sparse data.
func (r *RNG) UniformKeys(n int, bound uint64) []uint64 {
	r.mu.Lock()
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = r.rand.Uint64() % bound
	}
	r.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// GeometricKeys returns n sorted keys with geometrically distributed
// values, a heavily skewed distribution with long duplicate runs near zero.
func (r *RNG) GeometricKeys(n int, p float64) []uint64 {
	r.mu.Lock()
	keys := make([]uint64, n)
	denom := math.Log(1 - p)
	for i := range keys {
		u := r.rand.Float64()
		keys[i] = uint64(math.Log(1-u) / denom)
	}
	r.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// LognormalKeys returns n sorted float64 keys from a lognormal
// distribution, the classic adversarial shape for linear models.
func (r *RNG) LognormalKeys(n int, mu, sigma float64) []float64 {
	r.mu.Lock()
	keys := make([]float64, n)
	for i := range keys {
		keys[i] = math.Exp(mu + sigma*r.rand.NormFloat64())
	}
	r.mu.Unlock()
	sort.Float64s(keys)
	return keys
}

// LowerBoundPos is the reference lower bound: the rank of the first key >= q.
func LowerBoundPos[K pla.Key](keys []K, q K) int {
	return sort.Search(len(keys), func(i int) bool { return keys[i] >= q })
}

// UpperBoundPos is the reference upper bound: the rank one past the last
// key == q.
func UpperBoundPos[K pla.Key](keys []K, q K) int {
	return sort.Search(len(keys), func(i int) bool { return keys[i] > q })
}
