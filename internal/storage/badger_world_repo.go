package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

const badgerWorldPrefix = "world:"

// BadgerWorldRepo хранит метаданные миров во встроенной BadgerDB.
// Ключ "world:<uuid>", значение: JSON.
type BadgerWorldRepo struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerWorldRepo открывает (или создаёт) базу в каталоге dbPath
func NewBadgerWorldRepo(dbPath string) (*BadgerWorldRepo, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &BadgerWorldRepo{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
	}, nil
}

// Close закрывает хранилище данных
func (r *BadgerWorldRepo) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isReady {
		return nil
	}

	r.isReady = false
	return r.db.Close()
}

func (r *BadgerWorldRepo) ready() error {
	if !r.isReady {
		return fmt.Errorf("хранилище %s закрыто", r.dbPath)
	}
	return nil
}

func badgerWorldKey(id uuid.UUID) []byte {
	return []byte(badgerWorldPrefix + id.String())
}

// Save сериализует мир в JSON и записывает в BadgerDB
func (r *BadgerWorldRepo) Save(ctx context.Context, meta WorldMetadata) error {
	if err := validate(meta); err != nil {
		return err
	}
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if err := r.ready(); err != nil {
		return err
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("ошибка сериализации мира: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerWorldKey(meta.ID), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// Load читает мир по ID
func (r *BadgerWorldRepo) Load(ctx context.Context, id uuid.UUID) (WorldMetadata, error) {
	if err := checkContext(ctx); err != nil {
		return WorldMetadata{}, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if err := r.ready(); err != nil {
		return WorldMetadata{}, err
	}

	var meta WorldMetadata
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerWorldKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return WorldMetadata{}, ErrWorldNotFound
	}
	if err != nil {
		return WorldMetadata{}, fmt.Errorf("ошибка загрузки мира %s: %w", id, err)
	}
	return meta, nil
}

// Latest возвращает последний обновлённый мир
func (r *BadgerWorldRepo) Latest(ctx context.Context) (WorldMetadata, error) {
	worlds, err := r.List(ctx)
	if err != nil {
		return WorldMetadata{}, err
	}
	if len(worlds) == 0 {
		return WorldMetadata{}, ErrWorldNotFound
	}
	return worlds[0], nil
}

// List перебирает все ключи с префиксом world:
func (r *BadgerWorldRepo) List(ctx context.Context) ([]WorldMetadata, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if err := r.ready(); err != nil {
		return nil, err
	}

	var worlds []WorldMetadata
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerWorldPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var meta WorldMetadata
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				return fmt.Errorf("повреждённая запись %s: %w", it.Item().Key(), err)
			}
			worlds = append(worlds, meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortByUpdated(worlds)
	return worlds, nil
}

// Delete удаляет мир по ID
func (r *BadgerWorldRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if err := r.ready(); err != nil {
		return err
	}

	return r.db.Update(func(txn *badger.Txn) error {
		key := badgerWorldKey(id)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrWorldNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
}
