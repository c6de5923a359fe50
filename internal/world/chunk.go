package world

import (
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// ChunkState: состояние чанка в конвейере стриминга
type ChunkState uint8

const (
	ChunkUnloaded ChunkState = iota // Нет данных и нет задачи генерации
	ChunkPending                    // Задача генерации запущена или в очереди
	ChunkResident                   // Все высоты вычислены и видны коллизиям
)

// String возвращает строковое представление состояния
func (s ChunkState) String() string {
	switch s {
	case ChunkUnloaded:
		return "Unloaded"
	case ChunkPending:
		return "Pending"
	case ChunkResident:
		return "Resident"
	default:
		return "Unknown"
	}
}

// Chunk представляет участок мира 16x16 колонок с готовыми высотами.
// После создания не изменяется.
type Chunk struct {
	Coords  vec.Vec2 // Координаты чанка
	Heights Heights  // Высоты колонок
}

// NewChunk создаёт чанк с указанными координатами и высотами
func NewChunk(coords vec.Vec2, heights Heights) *Chunk {
	return &Chunk{
		Coords:  coords,
		Heights: heights,
	}
}

// Height возвращает высоту колонки по локальным координатам
func (c *Chunk) Height(local vec.Vec2) int {
	return c.Heights.At(local.X, local.Y)
}

// BlockAt возвращает блок по локальным координатам колонки и высоте y
func (c *Chunk) BlockAt(local vec.Vec2, y int) block.BlockID {
	return block.ForColumn(c.Height(local), y)
}

// MaxHeight возвращает максимальную высоту колонки в чанке
func (c *Chunk) MaxHeight() int {
	maxH := 0
	for _, h := range c.Heights {
		if h > maxH {
			maxH = h
		}
	}
	return maxH
}

// SolidBlocks возвращает общее количество твёрдых блоков чанка
func (c *Chunk) SolidBlocks() int {
	total := 0
	for _, h := range c.Heights {
		total += h
	}
	return total
}
