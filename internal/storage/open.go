package storage

import (
	"context"
	"fmt"

	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/logging"
)

// Open создаёт WorldRepo выбранного в конфиге бэкенда
func Open(ctx context.Context, cfg config.StorageConfig) (WorldRepo, error) {
	var (
		repo WorldRepo
		err  error
	)

	switch cfg.Backend {
	case config.BackendMemory:
		repo = NewMemoryWorldRepo()
	case config.BackendBadger:
		repo, err = NewBadgerWorldRepo(cfg.BadgerPath)
	case config.BackendRedis:
		repo, err = NewRedisWorldRepo(ctx, &RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: DefaultRedisConfig().KeyPrefix,
		})
	case config.BackendMaria:
		repo, err = NewMariaWorldRepo(ctx, cfg.MariaDSN)
	case config.BackendMongo:
		repo, err = NewMongoWorldRepo(ctx, MongoConfig{URI: cfg.MongoURI, Database: cfg.MongoDatabase})
	default:
		return nil, fmt.Errorf("неизвестный бэкенд хранилища %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("открытие хранилища %s: %w", cfg.Backend, err)
	}

	logging.GetStorageLogger().Info("💾 Хранилище миров: %s", cfg.Backend)
	return repo, nil
}
