package world

import (
	"sort"

	"github.com/annel0/blockverse/internal/vec"
)

// storeEntry: запись ChunkStore: Pending без данных или Resident с чанком
type storeEntry struct {
	state  ChunkState
	ticket uint64 // Номер запроса генерации, для которого чанк в Pending
	chunk  *Chunk
}

// ChunkStore хранит загруженные колонки по координатам чанка.
// Доступ только из горутины симуляции, поэтому блокировок нет.
type ChunkStore struct {
	entries  map[vec.Vec2]*storeEntry
	resident int
}

// NewChunkStore создаёт пустое хранилище
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		entries: make(map[vec.Vec2]*storeEntry),
	}
}

// Get возвращает резидентный чанк. Pending-чанки не видны.
func (s *ChunkStore) Get(key vec.Vec2) (*Chunk, bool) {
	e, ok := s.entries[key]
	if !ok || e.state != ChunkResident {
		return nil, false
	}
	return e.chunk, true
}

// ColumnHeight возвращает высоту колонки в мировых координатах.
// false означает "чанк не загружен", а не высоту 0.
func (s *ChunkStore) ColumnHeight(x, z int) (int, bool) {
	column := vec.Vec2{X: x, Y: z}
	e, ok := s.entries[column.ToChunkCoords()]
	if !ok || e.state != ChunkResident {
		return 0, false
	}
	return e.chunk.Height(column.LocalInChunk()), true
}

// State возвращает состояние чанка
func (s *ChunkStore) State(key vec.Vec2) ChunkState {
	e, ok := s.entries[key]
	if !ok {
		return ChunkUnloaded
	}
	return e.state
}

// MarkPending переводит чанк в Pending с новым номером запроса.
// Резидентный чанк не трогается.
func (s *ChunkStore) MarkPending(key vec.Vec2, ticket uint64) bool {
	if e, ok := s.entries[key]; ok && e.state == ChunkResident {
		return false
	}
	s.entries[key] = &storeEntry{state: ChunkPending, ticket: ticket}
	return true
}

// PendingTicket возвращает номер запроса для Pending-чанка
func (s *ChunkStore) PendingTicket(key vec.Vec2) (uint64, bool) {
	e, ok := s.entries[key]
	if !ok || e.state != ChunkPending {
		return 0, false
	}
	return e.ticket, true
}

// Insert делает чанк резидентным с полным набором высот
func (s *ChunkStore) Insert(key vec.Vec2, heights Heights) *Chunk {
	chunk := NewChunk(key, heights)
	if e, ok := s.entries[key]; !ok || e.state != ChunkResident {
		s.resident++
	}
	s.entries[key] = &storeEntry{state: ChunkResident, chunk: chunk}
	return chunk
}

// Remove удаляет чанк в любом состоянии и возвращает прежнее состояние
func (s *ChunkStore) Remove(key vec.Vec2) ChunkState {
	e, ok := s.entries[key]
	if !ok {
		return ChunkUnloaded
	}
	if e.state == ChunkResident {
		s.resident--
	}
	delete(s.entries, key)
	return e.state
}

// Len возвращает количество резидентных чанков
func (s *ChunkStore) Len() int {
	return s.resident
}

// PendingLen возвращает количество чанков в Pending
func (s *ChunkStore) PendingLen() int {
	return len(s.entries) - s.resident
}

// Keys возвращает отсортированные координаты резидентных чанков
func (s *ChunkStore) Keys() []vec.Vec2 {
	return s.keysIn(ChunkResident)
}

// PendingKeys возвращает отсортированные координаты Pending-чанков
func (s *ChunkStore) PendingKeys() []vec.Vec2 {
	return s.keysIn(ChunkPending)
}

func (s *ChunkStore) keysIn(state ChunkState) []vec.Vec2 {
	keys := make([]vec.Vec2, 0, len(s.entries))
	for k, e := range s.entries {
		if e.state == state {
			keys = append(keys, k)
		}
	}
	SortKeys(keys)
	return keys
}

// SortKeys упорядочивает координаты по X, затем по Z
func SortKeys(keys []vec.Vec2) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].X != keys[j].X {
			return keys[i].X < keys[j].X
		}
		return keys[i].Y < keys[j].Y
	})
}
