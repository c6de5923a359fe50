package vec

import "math"

// Vec2Float представляет 2D координаты с плавающей точкой.
// В горизонтальной плоскости Y соответствует мировой оси Z.
type Vec2Float struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add складывает два вектора
func (v Vec2Float) Add(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2Float) Sub(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul умножает вектор на скаляр
func (v Vec2Float) Mul(scalar float64) Vec2Float {
	return Vec2Float{X: v.X * scalar, Y: v.Y * scalar}
}

// Normalized возвращает нормализованный вектор
func (v Vec2Float) Normalized() Vec2Float {
	length := v.Length()
	if length == 0 {
		return Vec2Float{X: 0, Y: 0}
	}
	return Vec2Float{X: v.X / length, Y: v.Y / length}
}

// Length возвращает длину вектора
func (v Vec2Float) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// MoveTowards сдвигает вектор к target не более чем на maxDelta,
// не перескакивая цель.
func (v Vec2Float) MoveTowards(target Vec2Float, maxDelta float64) Vec2Float {
	diff := target.Sub(v)
	dist := diff.Length()
	if dist <= maxDelta || dist == 0 {
		return target
	}
	return v.Add(diff.Mul(maxDelta / dist))
}
