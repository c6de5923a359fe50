package physics

import (
	"fmt"

	"github.com/annel0/blockverse/internal/vec"
)

// PlayerState: состояние игрока, которым владеет MovementIntegrator
type PlayerState struct {
	Position vec.Vec3Float // Точка глаз; ноги на Position.Y - PlayerHeight
	Velocity vec.Vec3Float
	Grounded bool
}

// NewPlayerState создаёт игрока, стоящего ногами на высоте feetY
func NewPlayerState(x, feetY, z float64) *PlayerState {
	return &PlayerState{
		Position: vec.Vec3Float{X: x, Y: feetY + PlayerHeight, Z: z},
	}
}

// Feet возвращает высоту ног
func (p *PlayerState) Feet() float64 {
	return p.Position.Y - PlayerHeight
}

// AABB возвращает текущую коробку игрока
func (p *PlayerState) AABB() AABB {
	return PlayerAABB(p.Position)
}

// Column возвращает колонку под центром игрока
func (p *PlayerState) Column() vec.Vec2 {
	return p.Position.ColumnCoords()
}

func (p *PlayerState) String() string {
	return fmt.Sprintf("pos=%v vel=%v grounded=%t", p.Position, p.Velocity, p.Grounded)
}
