package input

import (
	"errors"
	"fmt"
	"strings"

	"github.com/annel0/blockverse/internal/vec"
)

// Action: семантическое действие игрока, независимое от устройства ввода
type Action uint8

const (
	ActionMoveForward Action = iota
	ActionMoveBackward
	ActionMoveLeft
	ActionMoveRight
	ActionJump
	ActionPointerLock
	ActionPointerUnlock
	ActionPause
)

var actionNames = [...]string{
	ActionMoveForward:   "move_forward",
	ActionMoveBackward:  "move_backward",
	ActionMoveLeft:      "move_left",
	ActionMoveRight:     "move_right",
	ActionJump:          "jump",
	ActionPointerLock:   "pointer_lock",
	ActionPointerUnlock: "pointer_unlock",
	ActionPause:         "pause",
}

var (
	ErrUnknownAction = errors.New("unknown input action")
	ErrInvalidFacing = errors.New("facing direction must be finite and non-zero")
)

// String возвращает имя действия
func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// ParseAction разбирает имя действия (без учёта регистра)
func ParseAction(name string) (Action, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range actionNames {
		if n == name {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// Actions возвращает все действия по порядку
func Actions() []Action {
	out := make([]Action, len(actionNames))
	for i := range actionNames {
		out[i] = Action(i)
	}
	return out
}

// Event: нажатие или отпускание действия
type Event struct {
	Action  Action
	Pressed bool
}

// DefaultFacing: направление взгляда до первого SetFacing (вдоль -Z)
var DefaultFacing = vec.Vec3Float{X: 0, Y: 0, Z: -1}

// Snapshot: намерения игрока, прочитанные один раз за тик
type Snapshot struct {
	Forward  bool
	Backward bool
	Left     bool
	Right    bool
	Jump     bool
	Facing   vec.Vec3Float
}

// HasMovement сообщает, что зажата хотя бы одна клавиша движения
func (s Snapshot) HasMovement() bool {
	return s.Forward || s.Backward || s.Left || s.Right
}

// State хранит намерения игрока. Изменяется только через Apply и SetFacing,
// MovementIntegrator получает копию через Snapshot.
type State struct {
	forward, backward, left, right, jump bool

	pointerLocked bool
	paused        bool
	facing        vec.Vec3Float
}

// NewState создаёт состояние ввода с незахваченным указателем
func NewState() *State {
	return &State{facing: DefaultFacing}
}

// Apply применяет событие ввода.
// Нажатия движения учитываются только при захваченном указателе,
// отпускания учитываются всегда.
func (s *State) Apply(ev Event) {
	switch ev.Action {
	case ActionMoveForward:
		s.forward = s.intent(s.forward, ev.Pressed)
	case ActionMoveBackward:
		s.backward = s.intent(s.backward, ev.Pressed)
	case ActionMoveLeft:
		s.left = s.intent(s.left, ev.Pressed)
	case ActionMoveRight:
		s.right = s.intent(s.right, ev.Pressed)
	case ActionJump:
		s.jump = s.intent(s.jump, ev.Pressed)
	case ActionPointerLock:
		if ev.Pressed {
			s.pointerLocked = true
			s.paused = false
		}
	case ActionPointerUnlock:
		if ev.Pressed {
			s.pointerLocked = false
			s.clearMovement()
		}
	case ActionPause:
		if ev.Pressed {
			s.paused = true
			s.pointerLocked = false
			s.clearMovement()
		}
	}
}

func (s *State) intent(current, pressed bool) bool {
	if !pressed {
		return false
	}
	if !s.pointerLocked {
		return current
	}
	return true
}

func (s *State) clearMovement() {
	s.forward, s.backward, s.left, s.right, s.jump = false, false, false, false, false
}

// SetFacing задаёт направление взгляда камеры
func (s *State) SetFacing(dir vec.Vec3Float) error {
	if !dir.IsFinite() || (dir.X == 0 && dir.Y == 0 && dir.Z == 0) {
		return ErrInvalidFacing
	}
	s.facing = dir
	return nil
}

// Facing возвращает текущее направление взгляда
func (s *State) Facing() vec.Vec3Float {
	return s.facing
}

// PointerLocked сообщает, захвачен ли указатель
func (s *State) PointerLocked() bool {
	return s.pointerLocked
}

// Paused сообщает, открыт ли экран паузы
func (s *State) Paused() bool {
	return s.paused
}

// Snapshot возвращает копию намерений для текущего тика
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Forward:  s.forward,
		Backward: s.backward,
		Left:     s.left,
		Right:    s.right,
		Jump:     s.jump,
		Facing:   s.facing,
	}
}
