package vec

// ChunkShift: log2 размера чанка (16 колонок по стороне).
const ChunkShift = 4

// Vec2 представляет 2D целочисленные координаты.
// Для колонок и чанков Y хранит мировую координату Z.
type Vec2 struct {
	X, Y int
}

// ToChunkCoords преобразует координаты колонки в координаты чанка.
// Арифметический сдвиг даёт floor-деление и для отрицательных координат.
func (v Vec2) ToChunkCoords() Vec2 {
	return Vec2{X: v.X >> ChunkShift, Y: v.Y >> ChunkShift}
}

// LocalInChunk возвращает локальные координаты внутри чанка
func (v Vec2) LocalInChunk() Vec2 {
	return Vec2{X: v.X & 0xF, Y: v.Y & 0xF} // Модуль 16
}

// ChunkOrigin возвращает мировые координаты колонки (0,0) чанка v
func (v Vec2) ChunkOrigin() Vec2 {
	return Vec2{X: v.X << ChunkShift, Y: v.Y << ChunkShift}
}

// ChebyshevTo возвращает расстояние Чебышёва (max(|dx|,|dy|))
func (v Vec2) ChebyshevTo(other Vec2) int {
	dx := v.X - other.X
	if dx < 0 {
		dx = -dx
	}
	dy := v.Y - other.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}
