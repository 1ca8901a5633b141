package seeder

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewRand_StreamsAreReproducible(t *testing.T) {
	a, b := NewRand(42, 3), NewRand(42, 3)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
	assert.NotEqual(t, NewRand(42, 3).Uint64(), NewRand(42, 4).Uint64())
}

func TestResolveSeed(t *testing.T) {
	assert.Equal(t, uint64(7), ResolveSeed(7))
	assert.NotZero(t, ResolveSeed(0))
}

func TestIntBetween(t *testing.T) {
	rng := NewRand(1, 0)
	for i := 0; i < 200; i++ {
		v := IntBetween(rng, 2, 5)
		assert.GreaterOrEqual(t, v, 2)
		assert.LessOrEqual(t, v, 5)
	}
	assert.Equal(t, 3, IntBetween(rng, 3, 3))
	assert.Equal(t, 4, IntBetween(rng, 4, 1))
}

func TestPriceBetween(t *testing.T) {
	rng := NewRand(1, 0)
	lo, hi := decimal.NewFromFloat(5), decimal.NewFromFloat(99.99)
	for i := 0; i < 200; i++ {
		p := PriceBetween(rng, 5, 99.99)
		assert.True(t, p.GreaterThanOrEqual(lo) && p.LessThanOrEqual(hi), p.String())
		assert.LessOrEqual(t, -p.Exponent(), int32(2))
	}
}

func TestSuffix(t *testing.T) {
	s := Suffix(NewRand(1, 0), 6)
	assert.Len(t, s, 6)
	assert.Regexp(t, `^[a-z0-9]{6}$`, s)
}

func TestChance(t *testing.T) {
	rng := NewRand(1, 0)
	assert.False(t, Chance(rng, 0))
	assert.True(t, Chance(rng, 1))
}
