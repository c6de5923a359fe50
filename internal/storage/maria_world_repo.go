package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/annel0/blockverse/internal/vec"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// MariaWorldRepo реализует WorldRepo для базы данных MariaDB/MySQL.
// Использует таблицу worlds; DSN должен содержать parseTime=true.
type MariaWorldRepo struct {
	db *sql.DB
}

// NewMariaWorldRepo создает новый репозиторий миров для MariaDB.
// Автоматически создает таблицу, если она не существует.
func NewMariaWorldRepo(ctx context.Context, dsn string) (*MariaWorldRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	// Проверяем соединение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaWorldRepo{db: db}

	// Создаем таблицу, если она не существует
	if err := repo.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}

	return repo, nil
}

// createTable создает таблицу worlds, если она не существует
func (r *MariaWorldRepo) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS worlds (
			world_id        CHAR(36)    PRIMARY KEY,
			seed            BIGINT      NOT NULL,
			fov             DOUBLE      NOT NULL,
			render_distance INT         NOT NULL,
			pos_x           DOUBLE      NULL,
			pos_y           DOUBLE      NULL,
			pos_z           DOUBLE      NULL,
			created_at      DATETIME(3) NOT NULL,
			updated_at      DATETIME(3) NOT NULL,
			INDEX idx_updated_at (updated_at)
		) ENGINE=InnoDB
	`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка создания таблицы worlds: %w", err)
	}
	return nil
}

// Save сохраняет мир.
// Использует INSERT ... ON DUPLICATE KEY UPDATE для обновления существующих записей.
func (r *MariaWorldRepo) Save(ctx context.Context, meta WorldMetadata) error {
	if err := validate(meta); err != nil {
		return err
	}

	var x, y, z sql.NullFloat64
	if p := meta.LastPosition; p != nil {
		x = sql.NullFloat64{Float64: p.X, Valid: true}
		y = sql.NullFloat64{Float64: p.Y, Valid: true}
		z = sql.NullFloat64{Float64: p.Z, Valid: true}
	}

	query := `
		INSERT INTO worlds (world_id, seed, fov, render_distance, pos_x, pos_y, pos_z, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			seed = VALUES(seed),
			fov = VALUES(fov),
			render_distance = VALUES(render_distance),
			pos_x = VALUES(pos_x),
			pos_y = VALUES(pos_y),
			pos_z = VALUES(pos_z),
			updated_at = VALUES(updated_at)
	`

	_, err := r.db.ExecContext(ctx, query,
		meta.ID.String(), meta.Seed, meta.Settings.FOV, meta.Settings.RenderDistance,
		x, y, z, meta.CreatedAt.UTC(), meta.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("ошибка сохранения мира %s: %w", meta.ID, err)
	}
	return nil
}

const mariaSelectWorld = `
	SELECT world_id, seed, fov, render_distance, pos_x, pos_y, pos_z, created_at, updated_at
	FROM worlds`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWorld(row rowScanner) (WorldMetadata, error) {
	var (
		meta    WorldMetadata
		rawID   string
		x, y, z sql.NullFloat64
	)
	err := row.Scan(&rawID, &meta.Seed, &meta.Settings.FOV, &meta.Settings.RenderDistance,
		&x, &y, &z, &meta.CreatedAt, &meta.UpdatedAt)
	if err != nil {
		return WorldMetadata{}, err
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return WorldMetadata{}, fmt.Errorf("некорректный world_id %q: %w", rawID, err)
	}
	meta.ID = id
	if x.Valid && y.Valid && z.Valid {
		meta.LastPosition = &vec.Vec3Float{X: x.Float64, Y: y.Float64, Z: z.Float64}
	}
	meta.CreatedAt = meta.CreatedAt.UTC()
	meta.UpdatedAt = meta.UpdatedAt.UTC()
	return meta, nil
}

// Load загружает мир из базы данных
func (r *MariaWorldRepo) Load(ctx context.Context, id uuid.UUID) (WorldMetadata, error) {
	row := r.db.QueryRowContext(ctx, mariaSelectWorld+` WHERE world_id = ?`, id.String())
	meta, err := scanWorld(row)
	if errors.Is(err, sql.ErrNoRows) {
		return WorldMetadata{}, ErrWorldNotFound
	}
	if err != nil {
		return WorldMetadata{}, fmt.Errorf("ошибка загрузки мира %s: %w", id, err)
	}
	return meta, nil
}

// Latest возвращает последний обновлённый мир
func (r *MariaWorldRepo) Latest(ctx context.Context) (WorldMetadata, error) {
	row := r.db.QueryRowContext(ctx, mariaSelectWorld+` ORDER BY updated_at DESC, world_id ASC LIMIT 1`)
	meta, err := scanWorld(row)
	if errors.Is(err, sql.ErrNoRows) {
		return WorldMetadata{}, ErrWorldNotFound
	}
	if err != nil {
		return WorldMetadata{}, fmt.Errorf("ошибка загрузки последнего мира: %w", err)
	}
	return meta, nil
}

// List возвращает все миры
func (r *MariaWorldRepo) List(ctx context.Context) ([]WorldMetadata, error) {
	rows, err := r.db.QueryContext(ctx, mariaSelectWorld+` ORDER BY updated_at DESC, world_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения миров: %w", err)
	}
	defer rows.Close()

	var worlds []WorldMetadata
	for rows.Next() {
		meta, err := scanWorld(rows)
		if err != nil {
			return nil, err
		}
		worlds = append(worlds, meta)
	}
	return worlds, rows.Err()
}

// Delete удаляет мир
func (r *MariaWorldRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM worlds WHERE world_id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("ошибка удаления мира %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества удаленных строк: %w", err)
	}
	if affected == 0 {
		return ErrWorldNotFound
	}
	return nil
}

// Close закрывает соединение с базой данных
func (r *MariaWorldRepo) Close() error {
	return r.db.Close()
}
