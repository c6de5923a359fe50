package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Переменные окружения
const (
	EnvConfigPath  = "BLOCKVERSE_CONFIG"
	EnvSeed        = "BLOCKVERSE_SEED"
	EnvRESTPort    = "BLOCKVERSE_REST_PORT"
	EnvMetricsPort = "BLOCKVERSE_METRICS_PORT"
	EnvTickRate    = "BLOCKVERSE_TICK_RATE"
)

// Значения по умолчанию
const (
	DefaultFOV                      = 75.0
	DefaultRenderDistance           = 4
	DefaultMaxConcurrentGenerations = 8
	DefaultRESTPort                 = 8088
	DefaultMetricsPort              = 2112
	DefaultTickRate                 = 60

	MinFOV            = 30.0
	MaxFOV            = 110.0
	MinRenderDistance = 1
	MaxRenderDistance = 32
	MaxTickRate       = 240
)

// Бэкенды хранилища метаданных мира
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMaria  = "maria"
	BackendMongo  = "mongo"
)

// ErrInvalidConfig оборачивает все ошибки валидации
var ErrInvalidConfig = errors.New("invalid config")

// Config корневая структура конфигурации приложения
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Settings  SettingsConfig  `yaml:"settings"`
	Streaming StreamingConfig `yaml:"streaming"`
	Storage   StorageConfig   `yaml:"storage"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// WorldConfig задаёт мир. Без ID используется последний сохранённый мир
// или создаётся новый со случайным сидом.
type WorldConfig struct {
	ID   string `yaml:"id"`
	Seed *int64 `yaml:"seed"`
}

type SettingsConfig struct {
	FOV            float64 `yaml:"fov"`
	RenderDistance int     `yaml:"render_distance"`
}

type StreamingConfig struct {
	MaxConcurrentGenerations int `yaml:"max_concurrent_generations"`
}

type StorageConfig struct {
	Backend       string `yaml:"backend"`
	BadgerPath    string `yaml:"badger_path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	MariaDSN      string `yaml:"maria_dsn"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

// EventBusConfig: пустой URL означает шину в памяти
type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
	TickRate    int `yaml:"tick_rate"`
}

type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// TelemetryConfig: пустой Endpoint отключает экспорт трейсов
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Settings: SettingsConfig{
			FOV:            DefaultFOV,
			RenderDistance: DefaultRenderDistance,
		},
		Streaming: StreamingConfig{
			MaxConcurrentGenerations: DefaultMaxConcurrentGenerations,
		},
		Storage: StorageConfig{
			Backend:       BackendBadger,
			BadgerPath:    "data/worlds",
			RedisAddr:     "localhost:6379",
			MariaDSN:      "blockverse:blockverse@tcp(localhost:3306)/blockverse?parseTime=true",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "blockverse",
		},
		EventBus: EventBusConfig{
			Stream:    "BLOCKVERSE_EVENTS",
			Retention: 24,
		},
		Logging: LoggingConfig{
			Dir:   "logs",
			Level: "INFO",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "blockverse",
		},
	}
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getIntWithEnvFallback(s.RESTPort, EnvRESTPort, DefaultRESTPort)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getIntWithEnvFallback(s.MetricsPort, EnvMetricsPort, DefaultMetricsPort)
}

// GetTickRate возвращает частоту тиков симуляции в секунду
func (s *ServerConfig) GetTickRate() int {
	return getIntWithEnvFallback(s.TickRate, EnvTickRate, DefaultTickRate)
}

// ResolveSeed возвращает сид с приоритетом: config -> env.
// false означает, что сид не задан.
func (w *WorldConfig) ResolveSeed() (int64, bool) {
	if w.Seed != nil {
		return *w.Seed, true
	}
	if envVal := os.Getenv(EnvSeed); envVal != "" {
		if seed, err := strconv.ParseInt(envVal, 10, 64); err == nil {
			return seed, true
		}
	}
	return 0, false
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	// Если значение задано в конфиге и больше 0, используем его
	if configValue > 0 {
		return configValue
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}

	return defaultValue
}

// Validate проверяет диапазоны значений
func (c *Config) Validate() error {
	var problems []string

	if c.Settings.FOV < MinFOV || c.Settings.FOV > MaxFOV {
		problems = append(problems, fmt.Sprintf("settings.fov=%v вне [%v, %v]", c.Settings.FOV, MinFOV, MaxFOV))
	}
	if c.Settings.RenderDistance < MinRenderDistance || c.Settings.RenderDistance > MaxRenderDistance {
		problems = append(problems, fmt.Sprintf("settings.render_distance=%d вне [%d, %d]",
			c.Settings.RenderDistance, MinRenderDistance, MaxRenderDistance))
	}
	if c.Streaming.MaxConcurrentGenerations < 1 {
		problems = append(problems, "streaming.max_concurrent_generations должен быть >= 1")
	}
	switch c.Storage.Backend {
	case BackendMemory, BackendBadger, BackendRedis, BackendMaria, BackendMongo:
	default:
		problems = append(problems, fmt.Sprintf("storage.backend=%q не поддерживается", c.Storage.Backend))
	}
	if rate := c.Server.GetTickRate(); rate > MaxTickRate {
		problems = append(problems, fmt.Sprintf("server.tick_rate=%d больше %d", rate, MaxTickRate))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV BLOCKVERSE_CONFIG или возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
		if path == "" {
			return cfg, nil // конфиг не задан: использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфига %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфига %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
