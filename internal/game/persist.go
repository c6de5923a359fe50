package game

import (
	"context"
	"fmt"

	"github.com/annel0/blockverse/internal/storage"
)

// SaveState записывает текущую позицию и настройки сессии в метаданные мира
func (s *Session) SaveState(ctx context.Context, repo storage.WorldRepo, meta *storage.WorldMetadata) error {
	if meta.Seed != s.seed {
		return fmt.Errorf("%w: сид сессии %d не совпадает с сидом мира %d", storage.ErrInvalidWorld, s.seed, meta.Seed)
	}
	frame := s.Frame()
	position := frame.Position
	meta.LastPosition = &position
	meta.Settings = frame.Settings.ToStorage()
	meta.Touch()

	if err := repo.Save(ctx, *meta); err != nil {
		return fmt.Errorf("сохранение мира %s: %w", meta.ID, err)
	}
	return nil
}

// OptionsFromWorld заполняет сид, настройки и точку появления из сохранённого мира
func OptionsFromWorld(meta storage.WorldMetadata, opts Options) Options {
	seed := meta.Seed
	opts.Seed = &seed
	opts.Settings = SettingsFromStorage(meta.Settings)
	if meta.LastPosition != nil && meta.LastPosition.IsFinite() {
		position := *meta.LastPosition
		opts.Spawn = &position
	}
	return opts
}
