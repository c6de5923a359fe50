package block

import "fmt"

// BlockID представляет идентификатор блока
type BlockID uint16

// Константы ID блоков
const (
	AirBlockID   BlockID = iota // 0
	StoneBlockID                // 1
	GrassBlockID                // 2
	DirtBlockID                 // 3
)

// DirtDepth: сколько блоков земли лежит под верхним блоком травы
const DirtDepth = 3

// Properties описывает статические свойства типа блока
type Properties struct {
	Name  string
	Solid bool
}

var registry = map[BlockID]Properties{
	AirBlockID:   {Name: "air", Solid: false},
	StoneBlockID: {Name: "stone", Solid: true},
	GrassBlockID: {Name: "grass", Solid: true},
	DirtBlockID:  {Name: "dirt", Solid: true},
}

// Register добавляет тип блока в регистр
func Register(id BlockID, props Properties) {
	registry[id] = props
}

// Get возвращает свойства для указанного ID
func Get(id BlockID) (Properties, bool) {
	props, exists := registry[id]
	return props, exists
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := registry[id]
	return exists
}

// IsSolid сообщает, участвует ли блок в коллизиях
func IsSolid(id BlockID) bool {
	props, ok := registry[id]
	return ok && props.Solid
}

func (id BlockID) String() string {
	if props, ok := registry[id]; ok {
		return props.Name
	}
	return fmt.Sprintf("block(%d)", id)
}

// ForColumn возвращает блок на высоте y в колонке высотой height:
// верхний блок: трава, под ней DirtDepth блоков земли, ниже камень.
func ForColumn(height, y int) BlockID {
	switch {
	case y < 0 || y >= height:
		return AirBlockID
	case y == height-1:
		return GrassBlockID
	case y >= height-1-DirtDepth:
		return DirtBlockID
	default:
		return StoneBlockID
	}
}
