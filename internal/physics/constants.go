package physics

// Параметры игрока и физики мира
const (
	PlayerHeight     = 1.8   // Высота AABB, позиция игрока: точка глаз
	PlayerRadius     = 0.3   // Полуширина AABB по X и Z
	Gravity          = 32.0  // Ускорение свободного падения, блоков/с²
	JumpVelocity     = 9.0   // Начальная вертикальная скорость прыжка
	MaxSpeed         = 4.3   // Максимальная горизонтальная скорость
	Acceleration     = 40.0  // Разгон к целевой скорости
	Friction         = 30.0  // Торможение без ввода
	StepHeight       = 0.6   // Подъём без прыжка; ниже высоты блока, поэтому по умолчанию ступень не берётся
	CollisionEpsilon = 0.001 // Зазор между игроком и гранью блока
	MaxDeltaTime     = 0.1   // Ограничение шага времени
)

// Params: набор параметров интегратора движения.
// StepHeight от 1 и выше позволяет заходить на ступень в один блок без прыжка
type Params struct {
	Gravity      float64
	JumpVelocity float64
	MaxSpeed     float64
	Acceleration float64
	Friction     float64
	StepHeight   float64
	MaxDeltaTime float64
}

// DefaultParams возвращает параметры из констант пакета
func DefaultParams() Params {
	return Params{
		Gravity:      Gravity,
		JumpVelocity: JumpVelocity,
		MaxSpeed:     MaxSpeed,
		Acceleration: Acceleration,
		Friction:     Friction,
		StepHeight:   StepHeight,
		MaxDeltaTime: MaxDeltaTime,
	}
}
