package physics

import (
	"fmt"
	"math"

	"github.com/annel0/blockverse/internal/input"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/go-gl/mathgl/mgl64"
)

var worldUp = mgl64.Vec3{0, 1, 0}

// StepResult описывает итог одного тика движения
type StepResult struct {
	DeltaTime float64 // Фактический шаг после ограничения
	CollidedX bool
	CollidedY bool
	CollidedZ bool
	Landed    bool // Игрок приземлился в этом тике
	Jumped    bool
	SteppedUp bool
}

// Collided сообщает о столкновении по оси
func (r StepResult) Collided(axis Axis) bool {
	switch axis {
	case AxisX:
		return r.CollidedX
	case AxisY:
		return r.CollidedY
	default:
		return r.CollidedZ
	}
}

func (r *StepResult) markCollided(axis Axis) {
	switch axis {
	case AxisX:
		r.CollidedX = true
	case AxisY:
		r.CollidedY = true
	default:
		r.CollidedZ = true
	}
}

// MovementIntegrator продвигает PlayerState на один тик
type MovementIntegrator struct {
	resolver *CollisionResolver
	params   Params
}

// NewMovementIntegrator создаёт интегратор с параметрами по умолчанию
func NewMovementIntegrator(resolver *CollisionResolver) *MovementIntegrator {
	return NewMovementIntegratorWithParams(resolver, DefaultParams())
}

// NewMovementIntegratorWithParams создаёт интегратор с заданными параметрами
func NewMovementIntegratorWithParams(resolver *CollisionResolver, params Params) *MovementIntegrator {
	return &MovementIntegrator{resolver: resolver, params: params}
}

// Params возвращает параметры интегратора
func (m *MovementIntegrator) Params() Params {
	return m.params
}

// Step выполняет один тик: гравитация, разгон по вводу, прыжок и
// поосевое разрешение коллизий.
func (m *MovementIntegrator) Step(state *PlayerState, intent input.Snapshot, dt float64) StepResult {
	if math.IsNaN(dt) || math.IsInf(dt, 0) {
		panic(fmt.Sprintf("physics: некорректный шаг времени %v", dt))
	}
	if dt > m.params.MaxDeltaTime {
		dt = m.params.MaxDeltaTime
	}
	result := StepResult{DeltaTime: dt}
	if dt <= 0 {
		return result
	}

	wasGrounded := state.Grounded
	state.Grounded = false

	state.Velocity.Y -= m.params.Gravity * dt

	horizontal := state.Velocity.Horizontal()
	direction := inputDirection(intent)
	if direction.Length() > 0 {
		horizontal = horizontal.MoveTowards(direction.Mul(m.params.MaxSpeed), m.params.Acceleration*dt)
	} else {
		horizontal = horizontal.MoveTowards(vec.Vec2Float{}, m.params.Friction*dt)
	}
	if speed := horizontal.Length(); speed > m.params.MaxSpeed {
		horizontal = horizontal.Mul(m.params.MaxSpeed / speed)
	}
	state.Velocity = state.Velocity.WithHorizontal(horizontal)

	if intent.Jump && wasGrounded {
		state.Velocity.Y = m.params.JumpVelocity
		result.Jumped = true
	}

	order := [3]Axis{AxisX, AxisZ, AxisY}
	if state.Velocity.Y < 0 {
		order = [3]Axis{AxisY, AxisX, AxisZ}
	}

	for _, axis := range order {
		m.moveAxis(state, axis, dt, &result)
	}

	result.Landed = state.Grounded && !wasGrounded
	return result
}

func (m *MovementIntegrator) moveAxis(state *PlayerState, axis Axis, dt float64, result *StepResult) {
	velocity := axis.Of(state.Velocity)
	delta := velocity * dt
	if delta == 0 {
		return
	}

	resolved, collided := m.resolver.ResolveAxis(state.Position, axis, delta)
	if collided && axis != AxisY && state.Grounded && m.tryStepUp(state, axis, delta) {
		result.SteppedUp = true
		return
	}

	state.Position = axis.With(state.Position, resolved)
	if !collided {
		return
	}

	result.markCollided(axis)
	if axis == AxisY && delta < 0 {
		state.Grounded = true
	}
	state.Velocity = axis.With(state.Velocity, 0)
}

// tryStepUp поднимает игрока не выше StepHeight, повторяет горизонтальный
// сдвиг и опускает обратно на ступень. При неудаче состояние не меняется.
func (m *MovementIntegrator) tryStepUp(state *PlayerState, axis Axis, delta float64) bool {
	step := m.params.StepHeight
	if step <= 0 {
		return false
	}

	raisedY, blocked := m.resolver.ResolveAxis(state.Position, AxisY, step)
	if blocked {
		return false
	}
	raised := AxisY.With(state.Position, raisedY)

	moved, collided := m.resolver.ResolveAxis(raised, axis, delta)
	if collided {
		return false
	}
	raised = axis.With(raised, moved)

	settledY, landed := m.resolver.ResolveAxis(raised, AxisY, -step)
	if !landed {
		return false
	}
	state.Position = AxisY.With(raised, settledY)
	state.Grounded = true
	return true
}

// inputDirection возвращает нормированное горизонтальное направление
// из флагов ввода относительно направления взгляда
func inputDirection(intent input.Snapshot) vec.Vec2Float {
	var forwardAmount, rightAmount float64
	if intent.Forward {
		forwardAmount++
	}
	if intent.Backward {
		forwardAmount--
	}
	if intent.Right {
		rightAmount++
	}
	if intent.Left {
		rightAmount--
	}
	if forwardAmount == 0 && rightAmount == 0 {
		return vec.Vec2Float{}
	}

	forward, right := horizontalBasis(intent.Facing)
	dir := forward.Mul(forwardAmount).Add(right.Mul(rightAmount))
	if dir.Len() == 0 {
		return vec.Vec2Float{}
	}
	dir = dir.Normalize()
	return vec.Vec2Float{X: dir.X(), Y: dir.Z()}
}

// horizontalBasis проецирует взгляд на горизонтальную плоскость и
// возвращает единичные векторы "вперёд" и "вправо"
func horizontalBasis(facing vec.Vec3Float) (mgl64.Vec3, mgl64.Vec3) {
	forward := mgl64.Vec3{facing.X, 0, facing.Z}
	if !facing.IsFinite() || forward.Len() < 1e-9 {
		forward = mgl64.Vec3{input.DefaultFacing.X, 0, input.DefaultFacing.Z}
	}
	forward = forward.Normalize()
	return forward, forward.Cross(worldUp).Normalize()
}
