package world

import (
	"fmt"

	"github.com/annel0/blockverse/internal/vec"
)

// ChunkEventKind: тип события жизненного цикла чанка
type ChunkEventKind uint8

const (
	EventChunkPending   ChunkEventKind = iota // Запрошена генерация
	EventChunkResident                        // Результат принят в ChunkStore
	EventChunkDiscarded                       // Результат устарел и отброшен
	EventChunkUnloaded                        // Чанк выгружен при смене окна
	EventChunkFailed                          // Генерация завершилась ошибкой
)

// String возвращает имя события
func (k ChunkEventKind) String() string {
	switch k {
	case EventChunkPending:
		return "pending"
	case EventChunkResident:
		return "resident"
	case EventChunkDiscarded:
		return "discarded"
	case EventChunkUnloaded:
		return "unloaded"
	case EventChunkFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ChunkEvent описывает переход чанка между состояниями
type ChunkEvent struct {
	Kind     ChunkEventKind
	Key      vec.Vec2
	Previous ChunkState // Состояние до перехода
	Chunk    *Chunk     // Только для EventChunkResident
	Err      error      // Только для EventChunkFailed
}

// EventSink получает события стримера. Вызывается из горутины симуляции.
type EventSink interface {
	OnChunkEvent(ev ChunkEvent)
}

// EventSinkFunc позволяет использовать функцию как EventSink
type EventSinkFunc func(ev ChunkEvent)

// OnChunkEvent реализует EventSink
func (f EventSinkFunc) OnChunkEvent(ev ChunkEvent) {
	f(ev)
}
