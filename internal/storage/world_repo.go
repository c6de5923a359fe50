package storage

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/google/uuid"
)

var (
	// ErrWorldNotFound возвращается, если мир с таким ID не сохранён
	ErrWorldNotFound = errors.New("world not found")
	// ErrInvalidWorld возвращается при попытке сохранить мир без ID
	ErrInvalidWorld = errors.New("invalid world metadata")
)

// MaxRandomSeed: верхняя граница случайного сида нового мира
const MaxRandomSeed = 100_000_000_000

// Settings: пользовательские настройки мира
type Settings struct {
	FOV            float64 `json:"fov"`
	RenderDistance int     `json:"render_distance"`
}

// WorldMetadata: всё, что хранится о мире. Рельеф не сохраняется:
// он полностью определяется сидом.
type WorldMetadata struct {
	ID           uuid.UUID      `json:"world_id"`
	Seed         int64          `json:"seed"`
	Settings     Settings       `json:"settings"`
	LastPosition *vec.Vec3Float `json:"last_position,omitempty"` // Позиция глаз при последнем сохранении
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// WorldRepo определяет интерфейс хранилища метаданных миров.
type WorldRepo interface {
	// Save создаёт или перезаписывает мир
	Save(ctx context.Context, meta WorldMetadata) error

	// Load загружает мир по ID, ErrWorldNotFound если его нет
	Load(ctx context.Context, id uuid.UUID) (WorldMetadata, error)

	// Latest возвращает мир с самым поздним UpdatedAt, ErrWorldNotFound если миров нет
	Latest(ctx context.Context) (WorldMetadata, error)

	// List возвращает все миры, от последнего обновлённого к первому
	List(ctx context.Context) ([]WorldMetadata, error)

	// Delete удаляет мир, ErrWorldNotFound если его нет
	Delete(ctx context.Context, id uuid.UUID) error

	// Close освобождает соединения
	Close() error
}

// NewWorldMetadata создаёт метаданные нового мира
func NewWorldMetadata(seed int64, settings Settings) WorldMetadata {
	now := timestamp()
	return WorldMetadata{
		ID:        uuid.New(),
		Seed:      seed,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RandomSeed возвращает случайный сид в [0, MaxRandomSeed)
func RandomSeed() int64 {
	return rand.Int63n(MaxRandomSeed)
}

// Touch обновляет UpdatedAt текущим временем
func (m *WorldMetadata) Touch() {
	m.UpdatedAt = timestamp()
}

// timestamp возвращает текущее время в UTC с точностью до миллисекунды,
// которую сохраняют все бэкенды
func timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func validate(meta WorldMetadata) error {
	if meta.ID == uuid.Nil {
		return ErrInvalidWorld
	}
	return nil
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// sortByUpdated сортирует миры от последнего обновлённого к первому
func sortByUpdated(worlds []WorldMetadata) {
	sort.SliceStable(worlds, func(i, j int) bool {
		if worlds[i].UpdatedAt.Equal(worlds[j].UpdatedAt) {
			return worlds[i].ID.String() < worlds[j].ID.String()
		}
		return worlds[i].UpdatedAt.After(worlds[j].UpdatedAt)
	})
}
