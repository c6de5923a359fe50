package world

import "github.com/annel0/blockverse/internal/vec"

// Пределы дальности прорисовки в чанках
const (
	DefaultRenderDistance = 4
	MinRenderDistance     = 1
	MaxRenderDistance     = 32
)

// Window возвращает все чанки квадрата (2R+1)x(2R+1) вокруг center.
// Порядок детерминирован: кольцами по расстоянию Чебышёва от центра,
// внутри кольца по X, затем по Z.
func Window(center vec.Vec2, radius int) []vec.Vec2 {
	if radius < 0 {
		return nil
	}
	side := 2*radius + 1
	keys := make([]vec.Vec2, 0, side*side)
	keys = append(keys, center)

	for ring := 1; ring <= radius; ring++ {
		for dx := -ring; dx <= ring; dx++ {
			for dz := -ring; dz <= ring; dz++ {
				if abs(dx) != ring && abs(dz) != ring {
					continue
				}
				keys = append(keys, vec.Vec2{X: center.X + dx, Y: center.Y + dz})
			}
		}
	}
	return keys
}

// InWindow проверяет, попадает ли чанк в квадрат радиуса radius вокруг center
func InWindow(center vec.Vec2, radius int, key vec.Vec2) bool {
	return center.ChebyshevTo(key) <= radius
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
