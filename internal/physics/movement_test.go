package physics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/annel0/blockverse/internal/input"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = 1.0 / 60

var facingPlusX = vec.Vec3Float{X: 1, Y: 0, Z: 0}

func standing(x, feet, z float64) *PlayerState {
	s := NewPlayerState(x, feet, z)
	s.Grounded = true
	return s
}

func TestStep_WalkOffLedgeStartsFalling(t *testing.T) {
	// Ноги на 32+eps, а ближайшая земля на 30: ниже высоты ступени
	m := NewMovementIntegrator(NewCollisionResolver(flatWorld(30)))
	state := standing(0, 32+CollisionEpsilon, 0)
	startY := state.Position.Y

	res := m.Step(state, input.Snapshot{}, tick)
	assert.False(t, state.Grounded)
	assert.False(t, res.CollidedY)
	assert.Less(t, state.Position.Y, startY)
	assert.Less(t, state.Velocity.Y, 0.0)
}

func TestStep_FallsForeverOverUnloadedTerrain(t *testing.T) {
	m := NewMovementIntegrator(NewCollisionResolver(emptyWorld()))
	state := standing(0, 32+CollisionEpsilon, 0)

	prev := state.Position.Y
	for i := 0; i < 120; i++ {
		m.Step(state, input.Snapshot{}, tick)
		require.False(t, state.Grounded)
		require.Less(t, state.Position.Y, prev)
		prev = state.Position.Y
	}
}

func TestStep_StandingStaysGrounded(t *testing.T) {
	m := NewMovementIntegrator(NewCollisionResolver(flatWorld(32)))
	state := NewPlayerState(0, 32+CollisionEpsilon, 0)

	res := m.Step(state, input.Snapshot{}, tick)
	assert.True(t, state.Grounded)
	assert.True(t, res.Landed, "первое касание земли означает приземление")
	assert.InDelta(t, 32+CollisionEpsilon, state.Feet(), 1e-9)
	assert.Equal(t, 0.0, state.Velocity.Y)

	res = m.Step(state, input.Snapshot{}, tick)
	assert.True(t, state.Grounded)
	assert.False(t, res.Landed)
}

func TestStep_HighTickRateStaysGrounded(t *testing.T) {
	const dt = 1.0 / 240
	m := NewMovementIntegrator(NewCollisionResolver(flatWorld(32)))
	state := standing(0, 32+CollisionEpsilon, 0)

	for i := 0; i < 240; i++ {
		res := m.Step(state, input.Snapshot{}, dt)
		require.True(t, state.Grounded, "тик %d", i)
		require.False(t, res.Landed, "тик %d", i)
		require.InDelta(t, 32+CollisionEpsilon, state.Feet(), 1e-9, "тик %d", i)
	}

	// Прыжок срабатывает на любом тике, а не через один
	for idle := 0; idle < 4; idle++ {
		state := standing(0, 32+CollisionEpsilon, 0)
		for i := 0; i < idle; i++ {
			m.Step(state, input.Snapshot{}, dt)
		}
		res := m.Step(state, input.Snapshot{Jump: true}, dt)
		assert.True(t, res.Jumped, "после %d тиков ожидания", idle)
	}
}

func TestStep_HighTickRatePushIntoWall(t *testing.T) {
	const dt = 1.0 / 240
	world := flatWorld(32).set(5, 0, 36)
	m := NewMovementIntegrator(NewCollisionResolver(world))
	restX := 4.5 - PlayerRadius - CollisionEpsilon
	state := standing(restX, 32+CollisionEpsilon, 0)

	for i := 0; i < 60; i++ {
		res := m.Step(state, input.Snapshot{Forward: true, Facing: facingPlusX}, dt)
		require.True(t, res.CollidedX, "тик %d", i)
		require.Equal(t, 0.0, state.Velocity.X, "тик %d", i)
		require.InDelta(t, restX, state.Position.X, 1e-9, "тик %d", i)
	}
}

func TestStep_WallStopsHorizontalMotion(t *testing.T) {
	// Одиночная колонна выше высоты ступени на пути игрока
	world := flatWorld(32).set(5, 0, 36)
	m := NewMovementIntegrator(NewCollisionResolver(world))

	state := standing(4.5-PlayerRadius-0.05, 32+CollisionEpsilon, 0)
	state.Velocity.X = MaxSpeed

	res := m.Step(state, input.Snapshot{Forward: true, Facing: facingPlusX}, tick)
	assert.True(t, res.CollidedX)
	assert.False(t, res.SteppedUp)
	assert.Equal(t, 0.0, state.Velocity.X)
	assert.InDelta(t, 4.5-PlayerRadius-CollisionEpsilon, state.Position.X, 1e-9)
	assert.True(t, state.Grounded)
}

func TestStep_StepUp(t *testing.T) {
	world := flatWorld(32).set(5, 0, 33)
	params := DefaultParams()
	params.StepHeight = 1.1
	m := NewMovementIntegratorWithParams(NewCollisionResolver(world), params)

	startX := 4.5 - PlayerRadius - 0.05
	state := standing(startX, 32+CollisionEpsilon, 0)
	state.Velocity.X = MaxSpeed

	res := m.Step(state, input.Snapshot{Forward: true, Facing: facingPlusX}, tick)
	assert.True(t, res.SteppedUp)
	assert.True(t, state.Grounded)
	assert.InDelta(t, 33+CollisionEpsilon, state.Feet(), 1e-9)
	assert.InDelta(t, startX+MaxSpeed*tick, state.Position.X, 1e-9)
	assert.Equal(t, MaxSpeed, state.Velocity.X)
}

func TestStep_DefaultStepHeightCannotClimbBlock(t *testing.T) {
	world := flatWorld(32).set(5, 0, 33)
	m := NewMovementIntegrator(NewCollisionResolver(world))

	state := standing(4.5-PlayerRadius-0.05, 32+CollisionEpsilon, 0)
	state.Velocity.X = MaxSpeed

	res := m.Step(state, input.Snapshot{Forward: true, Facing: facingPlusX}, tick)
	assert.False(t, res.SteppedUp)
	assert.True(t, res.CollidedX)
}

func TestStep_Jump(t *testing.T) {
	m := NewMovementIntegrator(NewCollisionResolver(flatWorld(32)))
	state := standing(0, 32+CollisionEpsilon, 0)

	res := m.Step(state, input.Snapshot{Jump: true}, tick)
	assert.True(t, res.Jumped)
	assert.False(t, state.Grounded, "прыжок сразу снимает флаг опоры")
	assert.Equal(t, JumpVelocity, state.Velocity.Y)
	assert.InDelta(t, 32+CollisionEpsilon+JumpVelocity*tick, state.Feet(), 1e-9)

	// Удержание прыжка в воздухе не даёт второго прыжка
	res = m.Step(state, input.Snapshot{Jump: true}, tick)
	assert.False(t, res.Jumped)
	assert.InDelta(t, JumpVelocity-Gravity*tick, state.Velocity.Y, 1e-9)
}

func TestStep_JumpLandsAgain(t *testing.T) {
	m := NewMovementIntegrator(NewCollisionResolver(flatWorld(32)))
	state := standing(0, 32+CollisionEpsilon, 0)

	m.Step(state, input.Snapshot{Jump: true}, tick)
	landed := false
	for i := 0; i < 120 && !landed; i++ {
		res := m.Step(state, input.Snapshot{}, tick)
		landed = res.Landed
	}
	require.True(t, landed)
	assert.InDelta(t, 32+CollisionEpsilon, state.Feet(), 1e-9)
}

func TestStep_FrictionDoesNotOvershoot(t *testing.T) {
	m := NewMovementIntegrator(NewCollisionResolver(flatWorld(32)))
	state := standing(0, 32+CollisionEpsilon, 0)
	state.Velocity.X = 2
	state.Velocity.Z = -1

	m.Step(state, input.Snapshot{}, MaxDeltaTime)
	assert.Equal(t, 0.0, state.Velocity.X)
	assert.Equal(t, 0.0, state.Velocity.Z)

	state.Velocity.X = 4
	m.Step(state, input.Snapshot{}, tick)
	assert.InDelta(t, 4-Friction*tick, state.Velocity.X, 1e-9)
}

func TestStep_DiagonalSpeedCapped(t *testing.T) {
	m := NewMovementIntegrator(NewCollisionResolver(flatWorld(32)))
	state := standing(0, 32+CollisionEpsilon, 0)
	intent := input.Snapshot{Forward: true, Right: true, Facing: input.DefaultFacing}

	for i := 0; i < 60; i++ {
		m.Step(state, intent, tick)
		require.LessOrEqual(t, state.Velocity.Horizontal().Length(), MaxSpeed+1e-9)
	}
	// Взгляд вдоль -Z: "вперёд" это -Z, "вправо" это +X
	assert.InDelta(t, MaxSpeed/math.Sqrt2, state.Velocity.X, 1e-9)
	assert.InDelta(t, -MaxSpeed/math.Sqrt2, state.Velocity.Z, 1e-9)
}

func TestStep_OpposingIntentsCancel(t *testing.T) {
	m := NewMovementIntegrator(NewCollisionResolver(flatWorld(32)))
	state := standing(0, 32+CollisionEpsilon, 0)

	m.Step(state, input.Snapshot{Forward: true, Backward: true, Facing: facingPlusX}, tick)
	assert.Equal(t, vec.Vec2Float{}, state.Velocity.Horizontal())
}

func TestStep_DeltaTimeClamp(t *testing.T) {
	m := NewMovementIntegrator(NewCollisionResolver(emptyWorld()))
	state := NewPlayerState(0, 100, 0)

	res := m.Step(state, input.Snapshot{}, 5)
	assert.Equal(t, MaxDeltaTime, res.DeltaTime)
	assert.InDelta(t, -Gravity*MaxDeltaTime, state.Velocity.Y, 1e-9)

	before := *state
	res = m.Step(state, input.Snapshot{}, 0)
	assert.Equal(t, 0.0, res.DeltaTime)
	assert.Equal(t, before, *state)

	assert.Panics(t, func() { m.Step(state, input.Snapshot{}, math.NaN()) })
}

// hashedTerrain: резкий рельеф с перепадами до 6 блоков
type hashedTerrain struct{}

func (hashedTerrain) ColumnHeight(x, z int) (int, bool) {
	h := uint32(x*73856093) ^ uint32(z*19349663)
	h ^= h >> 13
	h *= 0x5bd1e995
	h ^= h >> 15
	return 29 + int(h%7), true
}

func TestStep_NoTunnelling(t *testing.T) {
	resolver := NewCollisionResolver(hashedTerrain{})
	m := NewMovementIntegrator(resolver)
	rng := rand.New(rand.NewSource(1))

	h, _ := hashedTerrain{}.ColumnHeight(0, 0)
	state := standing(0, float64(h)+CollisionEpsilon, 0)

	var intent input.Snapshot
	for i := 0; i < 3000; i++ {
		if i%20 == 0 {
			angle := rng.Float64() * 2 * math.Pi
			intent = input.Snapshot{
				Forward:  rng.Intn(3) > 0,
				Backward: rng.Intn(6) == 0,
				Left:     rng.Intn(4) == 0,
				Right:    rng.Intn(4) == 0,
				Jump:     rng.Intn(3) == 0,
				Facing:   vec.Vec3Float{X: math.Cos(angle), Y: rng.Float64() - 0.5, Z: math.Sin(angle)},
			}
		}
		dt := 0.005 + rng.Float64()*0.12
		m.Step(state, intent, dt)

		require.False(t, resolver.Blocked(state.Position), "тик %d: игрок внутри блока: %s", i, state)
		require.LessOrEqual(t, state.Velocity.Horizontal().Length(), MaxSpeed+1e-9)
		if state.Grounded {
			require.Equal(t, 0.0, state.Velocity.Y, "тик %d", i)
		}
	}
}
