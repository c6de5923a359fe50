package input

import (
	"math"
	"testing"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(a Action) Event   { return Event{Action: a, Pressed: true} }
func release(a Action) Event { return Event{Action: a, Pressed: false} }

func TestState_MovementRequiresPointerLock(t *testing.T) {
	s := NewState()

	s.Apply(press(ActionMoveForward))
	assert.False(t, s.Snapshot().Forward, "без захвата указателя движение игнорируется")

	s.Apply(press(ActionPointerLock))
	s.Apply(press(ActionMoveForward))
	s.Apply(press(ActionMoveLeft))
	s.Apply(press(ActionJump))

	snap := s.Snapshot()
	assert.True(t, snap.Forward)
	assert.True(t, snap.Left)
	assert.True(t, snap.Jump)
	assert.False(t, snap.Right)
	assert.True(t, snap.HasMovement())

	s.Apply(release(ActionMoveForward))
	assert.False(t, s.Snapshot().Forward)
}

func TestState_UnlockClearsMovement(t *testing.T) {
	for _, action := range []Action{ActionPointerUnlock, ActionPause} {
		t.Run(action.String(), func(t *testing.T) {
			s := NewState()
			s.Apply(press(ActionPointerLock))
			s.Apply(press(ActionMoveForward))
			s.Apply(press(ActionMoveRight))
			s.Apply(press(ActionJump))

			s.Apply(press(action))
			assert.False(t, s.PointerLocked())
			assert.Equal(t, Snapshot{Facing: DefaultFacing}, s.Snapshot(), "после отпускания указателя игрок не должен идти")
		})
	}
}

func TestState_PauseAndResume(t *testing.T) {
	s := NewState()
	s.Apply(press(ActionPointerLock))
	s.Apply(press(ActionPause))
	assert.True(t, s.Paused())

	s.Apply(press(ActionPointerLock))
	assert.False(t, s.Paused())
	assert.True(t, s.PointerLocked())
}

func TestState_SnapshotIsCopy(t *testing.T) {
	s := NewState()
	s.Apply(press(ActionPointerLock))
	s.Apply(press(ActionMoveBackward))

	snap := s.Snapshot()
	s.Apply(release(ActionMoveBackward))
	assert.True(t, snap.Backward, "снимок не должен меняться вместе с состоянием")
}

func TestState_SetFacing(t *testing.T) {
	s := NewState()
	assert.Equal(t, DefaultFacing, s.Facing())

	require.NoError(t, s.SetFacing(vec.Vec3Float{X: 1, Y: -0.2, Z: 0}))
	assert.Equal(t, vec.Vec3Float{X: 1, Y: -0.2, Z: 0}, s.Snapshot().Facing)

	assert.ErrorIs(t, s.SetFacing(vec.Vec3Float{}), ErrInvalidFacing)
	assert.ErrorIs(t, s.SetFacing(vec.Vec3Float{X: math.NaN()}), ErrInvalidFacing)
	assert.ErrorIs(t, s.SetFacing(vec.Vec3Float{Z: math.Inf(1)}), ErrInvalidFacing)
}

func TestParseAction(t *testing.T) {
	for _, a := range Actions() {
		parsed, err := ParseAction(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, parsed)
	}
	assert.Len(t, Actions(), 8)

	parsed, err := ParseAction(" Jump ")
	require.NoError(t, err)
	assert.Equal(t, ActionJump, parsed)

	_, err = ParseAction("crouch")
	assert.ErrorIs(t, err, ErrUnknownAction)
}
