package vec

import (
	"fmt"
	"math"
)

// Vec3Float представляет трехмерный вектор с плавающими координатами
type Vec3Float struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add складывает два вектора
func (v Vec3Float) Add(other Vec3Float) Vec3Float {
	return Vec3Float{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub вычитает вектор
func (v Vec3Float) Sub(other Vec3Float) Vec3Float {
	return Vec3Float{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Mul умножает вектор на скаляр
func (v Vec3Float) Mul(scalar float64) Vec3Float {
	return Vec3Float{X: v.X * scalar, Y: v.Y * scalar, Z: v.Z * scalar}
}

// Horizontal возвращает проекцию на плоскость XZ
func (v Vec3Float) Horizontal() Vec2Float {
	return Vec2Float{X: v.X, Y: v.Z}
}

// WithHorizontal заменяет компоненты X и Z
func (v Vec3Float) WithHorizontal(h Vec2Float) Vec3Float {
	return Vec3Float{X: h.X, Y: v.Y, Z: h.Y}
}

// IsFinite сообщает, что ни одна компонента не NaN и не ±Inf
func (v Vec3Float) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

// ColumnCoords возвращает колонку, в центре которой лежит точка.
// Блок с индексом n занимает [n-0.5, n+0.5) по X и Z.
func (v Vec3Float) ColumnCoords() Vec2 {
	return Vec2{
		X: int(math.Floor(v.X + 0.5)),
		Y: int(math.Floor(v.Z + 0.5)),
	}
}

func (v Vec3Float) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
