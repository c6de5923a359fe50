package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryWorldRepo реализует WorldRepo в памяти.
// Используется в тестах и для локальной разработки без БД.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryWorldRepo struct {
	mu   sync.RWMutex
	data map[uuid.UUID]WorldMetadata
}

// NewMemoryWorldRepo создает новый репозиторий миров в памяти
func NewMemoryWorldRepo() *MemoryWorldRepo {
	return &MemoryWorldRepo{
		data: make(map[uuid.UUID]WorldMetadata),
	}
}

// Save сохраняет мир в памяти
func (r *MemoryWorldRepo) Save(ctx context.Context, meta WorldMetadata) error {
	if err := validate(meta); err != nil {
		return err
	}
	if err := checkContext(ctx); err != nil {
		return err
	}

	if meta.LastPosition != nil {
		pos := *meta.LastPosition
		meta.LastPosition = &pos
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[meta.ID] = meta
	return nil
}

// Load загружает мир из памяти
func (r *MemoryWorldRepo) Load(ctx context.Context, id uuid.UUID) (WorldMetadata, error) {
	if err := checkContext(ctx); err != nil {
		return WorldMetadata{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.data[id]
	if !ok {
		return WorldMetadata{}, ErrWorldNotFound
	}
	return cloneMetadata(meta), nil
}

// Latest возвращает последний обновлённый мир
func (r *MemoryWorldRepo) Latest(ctx context.Context) (WorldMetadata, error) {
	worlds, err := r.List(ctx)
	if err != nil {
		return WorldMetadata{}, err
	}
	if len(worlds) == 0 {
		return WorldMetadata{}, ErrWorldNotFound
	}
	return worlds[0], nil
}

// List возвращает копии всех миров
func (r *MemoryWorldRepo) List(ctx context.Context) ([]WorldMetadata, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	worlds := make([]WorldMetadata, 0, len(r.data))
	for _, meta := range r.data {
		worlds = append(worlds, cloneMetadata(meta))
	}
	r.mu.RUnlock()

	sortByUpdated(worlds)
	return worlds, nil
}

// Delete удаляет мир из памяти
func (r *MemoryWorldRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[id]; !ok {
		return ErrWorldNotFound
	}
	delete(r.data, id)
	return nil
}

// Count возвращает количество сохраненных миров (для отладки)
func (r *MemoryWorldRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Close ничего не делает
func (r *MemoryWorldRepo) Close() error {
	return nil
}

func cloneMetadata(meta WorldMetadata) WorldMetadata {
	if meta.LastPosition != nil {
		pos := *meta.LastPosition
		meta.LastPosition = &pos
	}
	return meta
}
