package world

import (
	"math"

	"github.com/annel0/blockverse/internal/util"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// Размеры чанка
const (
	ChunkSize = 1 << vec.ChunkShift // 16 колонок по стороне
	ChunkArea = ChunkSize * ChunkSize
)

// Константы рельефа
const (
	BaseHeight      = 32    // Средняя высота поверхности
	HeightAmplitude = 3     // Амплитуда шума в блоках
	NoiseScaleX     = 0.045 // Масштаб шума по X
	NoiseScaleZ     = 0.05  // Масштаб шума по Z

	MinHeight = BaseHeight - HeightAmplitude
	MaxHeight = BaseHeight + HeightAmplitude
)

// Heights хранит высоты колонок чанка, индекс x + z*ChunkSize
type Heights [ChunkArea]int

// At возвращает высоту по локальным координатам чанка
func (h *Heights) At(lx, lz int) int {
	return h[lx+lz*ChunkSize]
}

// Set записывает высоту по локальным координатам чанка
func (h *Heights) Set(lx, lz, height int) {
	h[lx+lz*ChunkSize] = height
}

// HeightField: детерминированная функция (seed, x, z) -> высота колонки.
// Не имеет изменяемого состояния и безопасна для вызова из нескольких горутин.
type HeightField struct {
	seed  int64
	noise *util.Noise
}

// NewHeightField создаёт поле высот для указанного сида
func NewHeightField(seed int64) *HeightField {
	return &HeightField{
		seed:  seed,
		noise: util.NewNoise(seed),
	}
}

// HeightAt вычисляет высоту колонки для сида без переиспользования генератора.
// Для массовых вызовов выгоднее NewHeightField.
func HeightAt(seed int64, x, z int) int {
	return NewHeightField(seed).HeightAt(x, z)
}

// Seed возвращает сид поля высот
func (hf *HeightField) Seed() int64 {
	return hf.seed
}

// HeightAt возвращает число твёрдых блоков колонки (x, z), блоки занимают y ∈ [0, h-1]
func (hf *HeightField) HeightAt(x, z int) int {
	n := hf.noise.Noise2D(float64(x)*NoiseScaleX, float64(z)*NoiseScaleZ)
	h := int(math.Floor(n*HeightAmplitude + BaseHeight))
	if h < MinHeight {
		return MinHeight
	}
	if h > MaxHeight {
		return MaxHeight
	}
	return h
}

// GenerateHeights вычисляет высоты всех колонок чанка
func (hf *HeightField) GenerateHeights(chunk vec.Vec2) Heights {
	var heights Heights
	origin := chunk.ChunkOrigin()

	for lz := 0; lz < ChunkSize; lz++ {
		for lx := 0; lx < ChunkSize; lx++ {
			heights.Set(lx, lz, hf.HeightAt(origin.X+lx, origin.Y+lz))
		}
	}
	return heights
}

// BlockAt возвращает тип блока в мировых координатах
func (hf *HeightField) BlockAt(x, y, z int) block.BlockID {
	return block.ForColumn(hf.HeightAt(x, z), y)
}

// ChunkAt возвращает чанк, в котором находится точка: floor(x/16), floor(z/16)
func ChunkAt(pos vec.Vec3Float) vec.Vec2 {
	return vec.Vec2{
		X: int(math.Floor(pos.X / ChunkSize)),
		Y: int(math.Floor(pos.Z / ChunkSize)),
	}
}
