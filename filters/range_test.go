package filters

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeSetters(t *testing.T) {
	t.Run("SetMin above max is capped at max", func(t *testing.T) {
		r := AgeRange().Between(25, 35).SetMin(40)
		assert.Equal(t, 35, r.Min)
		assert.Equal(t, 35, r.Max)
	})

	t.Run("SetMax below min is raised to min", func(t *testing.T) {
		r := AgeRange().Between(25, 35).SetMax(20)
		assert.Equal(t, 25, r.Min)
		assert.Equal(t, 25, r.Max)
	})

	t.Run("Setters leave the other bound untouched", func(t *testing.T) {
		r := AgeRange().Between(25, 35)
		assert.Equal(t, 35, r.SetMin(30).Max)
		assert.Equal(t, 25, r.SetMax(30).Min)
	})

	t.Run("Values outside the bounds are clamped", func(t *testing.T) {
		r := AgeRange().SetMin(5).SetMax(150)
		assert.Equal(t, 18, r.Min)
		assert.Equal(t, 99, r.Max)
		assert.True(t, r.IsDefault())
	})

	t.Run("Setters return copies", func(t *testing.T) {
		r := AgeRange()
		_ = r.SetMin(30)
		assert.Equal(t, 18, r.Min)
	})

	t.Run("Span raises max to min", func(t *testing.T) {
		r := Span(10, 5)
		assert.Equal(t, 10, r.Min)
		assert.Equal(t, 10, r.Max)
		_, _, ok := r.Bounds()
		assert.False(t, ok)
		assert.False(t, r.IsDefault())
	})
}

func TestRangeInvariantHoldsForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for seq := 0; seq < 200; seq++ {
		r := HeightCmRange()
		for step := 0; step < 50; step++ {
			v := rng.Intn(400) - 100
			if rng.Intn(2) == 0 {
				r = r.SetMin(v)
			} else {
				r = r.SetMax(v)
			}
			require.LessOrEqualf(t, r.Min, r.Max, "sequence %d step %d", seq, step)
			require.GreaterOrEqual(t, r.Min, 120)
			require.LessOrEqual(t, r.Max, 220)
		}
	}
}
