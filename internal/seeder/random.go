package seeder

import (
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
)

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewRand returns the random source for stream idx of a run. Every
// partition gets its own stream so results do not depend on scheduling.
func NewRand(seed uint64, idx uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, idx)) // #nosec G404 -- reproducible test data
}

// PartitionSeed derives the seed of partition idx from a run seed.
func PartitionSeed(seed uint64, idx int) uint64 {
	return NewRand(seed, uint64(idx)).Uint64()
}

// ResolveSeed returns seed, or a clock-derived seed when seed is zero.
func ResolveSeed(seed uint64) uint64 {
	if seed != 0 {
		return seed
	}
	return uint64(time.Now().UnixNano())
}

// Suffix returns n random lower-case alphanumerics.
func Suffix(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rng.IntN(len(suffixAlphabet))]
	}
	return string(b)
}

// IntBetween returns a uniform int in [lo, hi].
func IntBetween(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}

// PriceBetween returns a uniform price in [lo, hi] rounded to cents.
func PriceBetween(rng *rand.Rand, lo, hi float64) decimal.Decimal {
	if hi <= lo {
		return decimal.NewFromFloat(lo).Round(2)
	}
	return decimal.NewFromFloat(lo + rng.Float64()*(hi-lo)).Round(2)
}

// Chance reports true with probability p.
func Chance(rng *rand.Rand, p float64) bool {
	return rng.Float64() < p
}
