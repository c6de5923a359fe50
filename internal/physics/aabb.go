package physics

import (
	"fmt"
	"math"

	"github.com/annel0/blockverse/internal/vec"
)

// Axis: ось разрешения коллизий
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	default:
		return fmt.Sprintf("Axis(%d)", uint8(a))
	}
}

// Of возвращает компоненту вектора по оси
func (a Axis) Of(v vec.Vec3Float) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// With возвращает копию вектора с заменённой компонентой
func (a Axis) With(v vec.Vec3Float, value float64) vec.Vec3Float {
	switch a {
	case AxisX:
		v.X = value
	case AxisY:
		v.Y = value
	default:
		v.Z = value
	}
	return v
}

// AABB: выровненный по осям параллелепипед
type AABB struct {
	Min vec.Vec3Float
	Max vec.Vec3Float
}

// PlayerAABB строит коробку игрока по позиции глаз:
// ноги на eye.Y - PlayerHeight, полуширина PlayerRadius
func PlayerAABB(eye vec.Vec3Float) AABB {
	return AABB{
		Min: vec.Vec3Float{X: eye.X - PlayerRadius, Y: eye.Y - PlayerHeight, Z: eye.Z - PlayerRadius},
		Max: vec.Vec3Float{X: eye.X + PlayerRadius, Y: eye.Y, Z: eye.Z + PlayerRadius},
	}
}

// BlockAABB возвращает куб блока: [n-0.5, n+0.5) по X и Z, [y, y+1) по Y
func BlockAABB(x, y, z int) AABB {
	return AABB{
		Min: vec.Vec3Float{X: float64(x) - 0.5, Y: float64(y), Z: float64(z) - 0.5},
		Max: vec.Vec3Float{X: float64(x) + 0.5, Y: float64(y) + 1, Z: float64(z) + 0.5},
	}
}

// Overlap возвращает длину пересечения по оси (отрицательная: зазор)
func (b AABB) Overlap(other AABB, axis Axis) float64 {
	return math.Min(axis.Of(b.Max), axis.Of(other.Max)) - math.Max(axis.Of(b.Min), axis.Of(other.Min))
}

// Intersects проверяет объёмное пересечение глубже eps по всем осям
func (b AABB) Intersects(other AABB, eps float64) bool {
	return b.Overlap(other, AxisX) > eps && b.Overlap(other, AxisY) > eps && b.Overlap(other, AxisZ) > eps
}

// Union возвращает наименьшую коробку, содержащую обе
func (b AABB) Union(other AABB) AABB {
	return AABB{
		Min: vec.Vec3Float{X: math.Min(b.Min.X, other.Min.X), Y: math.Min(b.Min.Y, other.Min.Y), Z: math.Min(b.Min.Z, other.Min.Z)},
		Max: vec.Vec3Float{X: math.Max(b.Max.X, other.Max.X), Y: math.Max(b.Max.Y, other.Max.Y), Z: math.Max(b.Max.Z, other.Max.Z)},
	}
}

// otherAxes возвращает две оси, отличные от axis
func otherAxes(axis Axis) (Axis, Axis) {
	switch axis {
	case AxisX:
		return AxisY, AxisZ
	case AxisY:
		return AxisX, AxisZ
	default:
		return AxisX, AxisY
	}
}
