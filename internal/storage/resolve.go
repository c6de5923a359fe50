package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/annel0/blockverse/internal/logging"
)

// WorldRequest описывает, какой мир нужен при старте
type WorldRequest struct {
	ID       string   // Пусто: последний обновлённый мир
	Seed     *int64   // nil: сид существующего мира или случайный для нового
	Settings Settings // Настройки нового мира
}

// LoadOrCreate находит мир по запросу или создаёт и сохраняет новый.
// Без ID берётся последний мир; явный сид, не совпадающий с его сидом, создаёт новый мир.
// Второе значение сообщает, что мир был создан.
func LoadOrCreate(ctx context.Context, repo WorldRepo, req WorldRequest) (WorldMetadata, bool, error) {
	var (
		meta WorldMetadata
		err  error
		id   uuid.UUID
	)

	if req.ID != "" {
		id, err = uuid.Parse(req.ID)
		if err != nil {
			return WorldMetadata{}, false, fmt.Errorf("%w: некорректный ID мира %q", ErrInvalidWorld, req.ID)
		}
		meta, err = repo.Load(ctx, id)
	} else {
		meta, err = repo.Latest(ctx)
	}

	switch {
	case err == nil:
		if req.Seed == nil || *req.Seed == meta.Seed {
			return meta, false, nil
		}
		if req.ID != "" {
			return WorldMetadata{}, false, fmt.Errorf("%w: мир %s имеет сид %d, запрошен %d",
				ErrInvalidWorld, meta.ID, meta.Seed, *req.Seed)
		}
	case !errors.Is(err, ErrWorldNotFound):
		return WorldMetadata{}, false, err
	}

	seed := RandomSeed()
	if req.Seed != nil {
		seed = *req.Seed
	}
	meta = NewWorldMetadata(seed, req.Settings)
	if id != uuid.Nil {
		meta.ID = id
	}
	if err := repo.Save(ctx, meta); err != nil {
		return WorldMetadata{}, false, fmt.Errorf("сохранение нового мира: %w", err)
	}
	logging.GetStorageLogger().Info("🌱 Создан мир %s с сидом %d", meta.ID, meta.Seed)
	return meta, true, nil
}
