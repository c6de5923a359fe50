package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoise_Deterministic(t *testing.T) {
	a := NewNoise(42)
	b := NewNoise(42)

	for i := 0; i < 50; i++ {
		x := float64(i) * 0.37
		y := float64(i) * -0.21
		assert.Equal(t, a.Noise2D(x, y), b.Noise2D(x, y), "шум должен совпадать для одинакового сида")
	}
	assert.Equal(t, int64(42), a.Seed())
}

func TestNoise_SeedMatters(t *testing.T) {
	a := NewNoise(1)
	b := NewNoise(2)

	differs := false
	for i := 1; i < 100 && !differs; i++ {
		x := float64(i) * 0.13
		if a.Noise2D(x, x*0.7) != b.Noise2D(x, x*0.7) {
			differs = true
		}
	}
	assert.True(t, differs, "разные сиды должны давать разный шум")
}
