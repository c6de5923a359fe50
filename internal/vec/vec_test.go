package vec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec2_ChunkCoordsNegative(t *testing.T) {
	tests := []struct {
		in    Vec2
		chunk Vec2
		local Vec2
	}{
		{Vec2{X: 0, Y: 0}, Vec2{X: 0, Y: 0}, Vec2{X: 0, Y: 0}},
		{Vec2{X: 15, Y: 16}, Vec2{X: 0, Y: 1}, Vec2{X: 15, Y: 0}},
		{Vec2{X: -1, Y: -16}, Vec2{X: -1, Y: -1}, Vec2{X: 15, Y: 0}},
		{Vec2{X: -17, Y: 33}, Vec2{X: -2, Y: 2}, Vec2{X: 15, Y: 1}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.chunk, tt.in.ToChunkCoords(), "чанк для %v", tt.in)
		assert.Equal(t, tt.local, tt.in.LocalInChunk(), "локальные координаты для %v", tt.in)
		origin := tt.chunk.ChunkOrigin()
		assert.Equal(t, tt.in, Vec2{X: origin.X + tt.local.X, Y: origin.Y + tt.local.Y})
	}
}

func TestVec2_Chebyshev(t *testing.T) {
	assert.Equal(t, 3, Vec2{X: 0, Y: 0}.ChebyshevTo(Vec2{X: -3, Y: 2}))
	assert.Equal(t, 0, Vec2{X: 5, Y: 5}.ChebyshevTo(Vec2{X: 5, Y: 5}))
}

func TestVec3Float_ColumnCoords(t *testing.T) {
	assert.Equal(t, Vec2{X: 0, Y: 0}, Vec3Float{X: 0.49, Z: -0.5}.ColumnCoords())
	assert.Equal(t, Vec2{X: 1, Y: -1}, Vec3Float{X: 0.5, Z: -0.51}.ColumnCoords())
}

func TestVec3Float_IsFinite(t *testing.T) {
	assert.True(t, Vec3Float{X: 1, Y: 2, Z: 3}.IsFinite())
	assert.False(t, Vec3Float{X: math.NaN()}.IsFinite())
	assert.False(t, Vec3Float{Z: math.Inf(-1)}.IsFinite())
}

func TestVec2Float_MoveTowards(t *testing.T) {
	v := Vec2Float{X: 4, Y: 0}
	assert.Equal(t, Vec2Float{X: 3, Y: 0}, v.MoveTowards(Vec2Float{}, 1))
	// Не перескакивает через цель
	assert.Equal(t, Vec2Float{}, v.MoveTowards(Vec2Float{}, 10))
}
