package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string // Адрес Redis сервера
	Password  string // Пароль (пустой если не требуется)
	DB        int    // Номер базы данных
	KeyPrefix string // Префикс для ключей
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "blockverse:",
	}
}

// RedisWorldRepo хранит миры в Redis: JSON по ключу <prefix>world:<uuid>
// и sorted set <prefix>worlds с UpdatedAt в качестве веса для Latest/List.
type RedisWorldRepo struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisWorldRepo подключается к Redis и проверяет соединение
func NewRedisWorldRepo(ctx context.Context, config *RedisConfig) (*RedisWorldRepo, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetStorageLogger().Info("🔴 Connected to Redis at %s", config.Addr)
	return &RedisWorldRepo{client: client, keyPrefix: config.KeyPrefix}, nil
}

func (r *RedisWorldRepo) worldKey(id uuid.UUID) string {
	return r.keyPrefix + "world:" + id.String()
}

func (r *RedisWorldRepo) indexKey() string {
	return r.keyPrefix + "worlds"
}

// Save записывает JSON и обновляет индекс одной транзакцией
func (r *RedisWorldRepo) Save(ctx context.Context, meta WorldMetadata) error {
	if err := validate(meta); err != nil {
		return err
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("ошибка сериализации мира: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.worldKey(meta.ID), data, 0)
		pipe.ZAdd(ctx, r.indexKey(), &redis.Z{
			Score:  float64(meta.UpdatedAt.UnixMilli()),
			Member: meta.ID.String(),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения мира %s в Redis: %w", meta.ID, err)
	}
	return nil
}

// Load читает мир по ID
func (r *RedisWorldRepo) Load(ctx context.Context, id uuid.UUID) (WorldMetadata, error) {
	data, err := r.client.Get(ctx, r.worldKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return WorldMetadata{}, ErrWorldNotFound
	}
	if err != nil {
		return WorldMetadata{}, fmt.Errorf("ошибка загрузки мира %s из Redis: %w", id, err)
	}

	var meta WorldMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return WorldMetadata{}, fmt.Errorf("повреждённая запись мира %s: %w", id, err)
	}
	return meta, nil
}

// Latest берёт первый элемент индекса по убыванию веса
func (r *RedisWorldRepo) Latest(ctx context.Context) (WorldMetadata, error) {
	ids, err := r.client.ZRevRange(ctx, r.indexKey(), 0, 0).Result()
	if err != nil {
		return WorldMetadata{}, fmt.Errorf("ошибка чтения индекса миров: %w", err)
	}
	if len(ids) == 0 {
		return WorldMetadata{}, ErrWorldNotFound
	}

	id, err := uuid.Parse(ids[0])
	if err != nil {
		return WorldMetadata{}, fmt.Errorf("некорректный ID в индексе: %w", err)
	}
	return r.Load(ctx, id)
}

// List загружает все миры из индекса
func (r *RedisWorldRepo) List(ctx context.Context) ([]WorldMetadata, error) {
	ids, err := r.client.ZRevRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения индекса миров: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("некорректный ID в индексе: %w", err)
		}
		keys = append(keys, r.worldKey(id))
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения миров: %w", err)
	}

	worlds := make([]WorldMetadata, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue // Запись удалена между ZRevRange и MGet
		}
		var meta WorldMetadata
		if err := json.Unmarshal([]byte(s), &meta); err != nil {
			return nil, fmt.Errorf("повреждённая запись %s: %w", keys[i], err)
		}
		worlds = append(worlds, meta)
	}

	sortByUpdated(worlds)
	return worlds, nil
}

// Delete удаляет мир и его запись в индексе
func (r *RedisWorldRepo) Delete(ctx context.Context, id uuid.UUID) error {
	var deleted *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, r.worldKey(id))
		pipe.ZRem(ctx, r.indexKey(), id.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка удаления мира %s: %w", id, err)
	}
	if deleted.Val() == 0 {
		return ErrWorldNotFound
	}
	return nil
}

// Close закрывает клиент Redis
func (r *RedisWorldRepo) Close() error {
	return r.client.Close()
}
