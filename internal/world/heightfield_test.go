package world

import (
	"testing"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeightField_Deterministic(t *testing.T) {
	// Сид 42, колонки (0,0) и (1,0) дважды
	first := NewHeightField(42)
	second := NewHeightField(42)

	for _, col := range []vec.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}} {
		a := first.HeightAt(col.X, col.Y)
		b := first.HeightAt(col.X, col.Y)
		c := second.HeightAt(col.X, col.Y)
		assert.Equal(t, a, b, "повторный вызов должен дать ту же высоту для %v", col)
		assert.Equal(t, a, c, "новый экземпляр должен дать ту же высоту для %v", col)
		assert.Equal(t, a, HeightAt(42, col.X, col.Y))
	}
}

func TestHeightField_Range(t *testing.T) {
	hf := NewHeightField(1234567)
	for x := -100; x < 100; x += 3 {
		for z := -100; z < 100; z += 3 {
			h := hf.HeightAt(x, z)
			require.GreaterOrEqual(t, h, MinHeight, "высота в (%d,%d)", x, z)
			require.LessOrEqual(t, h, MaxHeight, "высота в (%d,%d)", x, z)
		}
	}
}

func TestHeightField_SeedMatters(t *testing.T) {
	a := NewHeightField(1)
	b := NewHeightField(2)

	differ := false
	for cx := -2; cx <= 2 && !differ; cx++ {
		for cz := -2; cz <= 2 && !differ; cz++ {
			key := vec.Vec2{X: cx, Y: cz}
			differ = a.GenerateHeights(key) != b.GenerateHeights(key)
		}
	}
	assert.True(t, differ, "разные сиды должны давать разный рельеф")
}

func TestHeightField_GenerateHeightsMatchesColumns(t *testing.T) {
	hf := NewHeightField(42)
	key := vec.Vec2{X: -3, Y: 2}
	heights := hf.GenerateHeights(key)

	origin := key.ChunkOrigin()
	for lz := 0; lz < ChunkSize; lz++ {
		for lx := 0; lx < ChunkSize; lx++ {
			assert.Equal(t, hf.HeightAt(origin.X+lx, origin.Y+lz), heights.At(lx, lz))
		}
	}
}

func TestHeightField_BlockAt(t *testing.T) {
	hf := NewHeightField(42)
	h := hf.HeightAt(5, 7)

	assert.Equal(t, block.GrassBlockID, hf.BlockAt(5, h-1, 7))
	assert.Equal(t, block.AirBlockID, hf.BlockAt(5, h, 7))
	assert.Equal(t, block.StoneBlockID, hf.BlockAt(5, 0, 7))
}

func TestChunkAt(t *testing.T) {
	tests := []struct {
		pos  vec.Vec3Float
		want vec.Vec2
	}{
		{vec.Vec3Float{X: 0, Y: 40, Z: 0}, vec.Vec2{X: 0, Y: 0}},
		{vec.Vec3Float{X: 15.9, Y: 0, Z: 15.9}, vec.Vec2{X: 0, Y: 0}},
		{vec.Vec3Float{X: 16, Y: 0, Z: 0}, vec.Vec2{X: 1, Y: 0}},
		{vec.Vec3Float{X: -0.1, Y: 0, Z: -16}, vec.Vec2{X: -1, Y: -1}},
		{vec.Vec3Float{X: -16.5, Y: 0, Z: 165}, vec.Vec2{X: -2, Y: 10}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ChunkAt(tt.pos), "позиция %v", tt.pos)
	}
}
