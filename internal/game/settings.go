package game

import (
	"errors"
	"fmt"
	"math"

	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/storage"
)

// ErrInvalidSettings возвращается для FOV или дальности вне допустимых границ
var ErrInvalidSettings = errors.New("invalid settings")

// Settings: настройки, изменяемые во время игры
type Settings struct {
	FOV            float64 `json:"fov"`
	RenderDistance int     `json:"render_distance"`
}

// DefaultSettings возвращает настройки по умолчанию
func DefaultSettings() Settings {
	return Settings{FOV: config.DefaultFOV, RenderDistance: config.DefaultRenderDistance}
}

// Validate проверяет границы FOV и дальности прорисовки
func (s Settings) Validate() error {
	if math.IsNaN(s.FOV) || s.FOV < config.MinFOV || s.FOV > config.MaxFOV {
		return fmt.Errorf("%w: fov %.1f вне [%.0f, %.0f]", ErrInvalidSettings, s.FOV, config.MinFOV, config.MaxFOV)
	}
	if s.RenderDistance < config.MinRenderDistance || s.RenderDistance > config.MaxRenderDistance {
		return fmt.Errorf("%w: render_distance %d вне [%d, %d]", ErrInvalidSettings,
			s.RenderDistance, config.MinRenderDistance, config.MaxRenderDistance)
	}
	return nil
}

// SettingsFromStorage переводит сохранённые настройки мира.
// Нулевые поля заменяются значениями по умолчанию.
func SettingsFromStorage(s storage.Settings) Settings {
	out := DefaultSettings()
	if s.FOV != 0 {
		out.FOV = s.FOV
	}
	if s.RenderDistance != 0 {
		out.RenderDistance = s.RenderDistance
	}
	return out
}

// ToStorage переводит настройки в формат хранилища
func (s Settings) ToStorage() storage.Settings {
	return storage.Settings{FOV: s.FOV, RenderDistance: s.RenderDistance}
}
