package physics

import (
	"fmt"
	"math"

	"github.com/annel0/blockverse/internal/vec"
)

// ColumnSource отдаёт высоты загруженных колонок.
// false означает "данных нет", такая колонка считается воздухом.
type ColumnSource interface {
	ColumnHeight(x, z int) (int, bool)
}

// CollisionResolver разрешает движение AABB игрока по одной оси
// против твёрдых блоков загруженных колонок.
type CollisionResolver struct {
	columns ColumnSource
}

// NewCollisionResolver создаёт резолвер поверх источника колонок
func NewCollisionResolver(columns ColumnSource) *CollisionResolver {
	return &CollisionResolver{columns: columns}
}

// ResolveAxis сдвигает позицию глаз pos на delta по оси axis и возвращает
// скорректированную координату по этой оси и признак столкновения.
// Из нескольких ограничивающих блоков побеждает самое строгое ограничение.
// NaN и ±Inf во входных данных: ошибка вызывающего кода, вызывает панику.
func (r *CollisionResolver) ResolveAxis(pos vec.Vec3Float, axis Axis, delta float64) (float64, bool) {
	if !pos.IsFinite() || math.IsNaN(delta) || math.IsInf(delta, 0) {
		panic(fmt.Sprintf("physics: ResolveAxis получил некорректные данные: pos=%v axis=%s delta=%v", pos, axis, delta))
	}

	current := axis.Of(pos)
	target := current + delta
	if delta == 0 {
		return current, false
	}

	from := PlayerAABB(pos)
	to := PlayerAABB(axis.With(pos, target))
	swept := from.Union(to)
	a1, a2 := otherAxes(axis)

	minBX, maxBX := horizontalRange(swept.Min.X, swept.Max.X)
	minBZ, maxBZ := horizontalRange(swept.Min.Z, swept.Max.Z)
	minBY := int(math.Floor(swept.Min.Y)) - 1
	maxBY := int(math.Floor(swept.Max.Y)) + 1
	if minBY < 0 {
		minBY = 0
	}

	resolved := target
	collided := false

	for bx := minBX; bx <= maxBX; bx++ {
		for bz := minBZ; bz <= maxBZ; bz++ {
			height, ok := r.columns.ColumnHeight(bx, bz)
			if !ok {
				continue
			}
			top := maxBY
			if top > height-1 {
				top = height - 1
			}
			for by := minBY; by <= top; by++ {
				b := BlockAABB(bx, by, bz)
				if from.Overlap(b, a1) <= CollisionEpsilon || from.Overlap(b, a2) <= CollisionEpsilon {
					continue
				}
				limit, hit := clampAgainst(pos, from, to, b, axis, delta)
				if !hit {
					continue
				}
				collided = true
				if (delta > 0 && limit < resolved) || (delta < 0 && limit > resolved) {
					resolved = limit
				}
			}
		}
	}
	return resolved, collided
}

// Blocked проверяет, пересекает ли коробка игрока в pos какой-либо твёрдый блок
func (r *CollisionResolver) Blocked(pos vec.Vec3Float) bool {
	box := PlayerAABB(pos)
	minBX, maxBX := horizontalRange(box.Min.X, box.Max.X)
	minBZ, maxBZ := horizontalRange(box.Min.Z, box.Max.Z)
	minBY := int(math.Floor(box.Min.Y))
	if minBY < 0 {
		minBY = 0
	}

	for bx := minBX; bx <= maxBX; bx++ {
		for bz := minBZ; bz <= maxBZ; bz++ {
			height, ok := r.columns.ColumnHeight(bx, bz)
			if !ok {
				continue
			}
			for by := minBY; by < height && float64(by) < box.Max.Y; by++ {
				if box.Intersects(BlockAABB(bx, by, bz), CollisionEpsilon) {
					return true
				}
			}
		}
	}
	return false
}

// clampAgainst возвращает предельную координату оси перед гранью блока b
// со стороны, где игрок был до движения. Касание в пределах CollisionEpsilon
// от грани считается столкновением, иначе опора теряется при малых шагах.
func clampAgainst(pos vec.Vec3Float, from, to, b AABB, axis Axis, delta float64) (float64, bool) {
	switch {
	case axis == AxisY && delta > 0:
		// Потолок: только блоки, нижняя грань которых выше глаз
		bottom := b.Min.Y
		if bottom < pos.Y || to.Max.Y <= bottom-CollisionEpsilon {
			return 0, false
		}
		return bottom - CollisionEpsilon, true

	case axis == AxisY:
		// Пол: верхняя грань ниже середины тела
		top := b.Max.Y
		if top > pos.Y-PlayerHeight/2 || to.Min.Y >= top+CollisionEpsilon {
			return 0, false
		}
		return top + CollisionEpsilon + PlayerHeight, true

	case delta > 0:
		face := axis.Of(b.Min)
		if axis.Of(from.Max) > face+CollisionEpsilon || axis.Of(to.Max) <= face-CollisionEpsilon {
			return 0, false
		}
		return face - PlayerRadius - CollisionEpsilon, true

	default:
		face := axis.Of(b.Max)
		if axis.Of(from.Min) < face-CollisionEpsilon || axis.Of(to.Min) >= face+CollisionEpsilon {
			return 0, false
		}
		return face + PlayerRadius + CollisionEpsilon, true
	}
}

// horizontalRange возвращает индексы блоков, покрывающих [lo, hi], с запасом в один блок
func horizontalRange(lo, hi float64) (int, int) {
	return int(math.Floor(lo+0.5)) - 1, int(math.Floor(hi+0.5)) + 1
}
