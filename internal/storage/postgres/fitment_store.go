// Package postgres provides the Postgres-backed fitment record store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/ymm-sync/internal/fitment"
)

const defaultTable = "ymm"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// FitmentStoreConfig controls the Postgres connection pool used for fitment rows.
type FitmentStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// FitmentStore reads and writes fitment rows in Postgres.
type FitmentStore struct {
	pool  pool
	table string
}

// NewFitmentStore creates a Postgres-backed FitmentStore using the provided config.
func NewFitmentStore(ctx context.Context, cfg FitmentStoreConfig) (*FitmentStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := resolveTable(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &FitmentStore{pool: p, table: table}, nil
}

// NewFitmentStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewFitmentStoreWithPool(p pool, table string) (*FitmentStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := resolveTable(table)
	if err != nil {
		return nil, err
	}
	return &FitmentStore{pool: p, table: table}, nil
}

func resolveTable(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *FitmentStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks connectivity.
func (s *FitmentStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Find looks up a row by the natural key of the batch's policy. A NULL year
// matches the empty year sentinel.
func (s *FitmentStore) Find(ctx context.Context, key fitment.Key) (string, bool, error) {
	var (
		query string
		args  []any
	)
	switch key.Policy {
	case fitment.KeyProductMakeModelYear:
		query = fmt.Sprintf(`SELECT id::text FROM %s
WHERE product_id = $1 AND make = $2 AND model = $3 AND year IS NOT DISTINCT FROM $4
ORDER BY created_at LIMIT 1`, s.table)
		args = []any{key.ProductID, key.Make, key.Model, fitment.NullableYear(key.Year)}
	case fitment.KeyProductYear:
		query = fmt.Sprintf(`SELECT id::text FROM %s
WHERE product_id = $1 AND year IS NOT DISTINCT FROM $2
ORDER BY created_at LIMIT 1`, s.table)
		args = []any{key.ProductID, fitment.NullableYear(key.Year)}
	default:
		return "", false, fmt.Errorf("unknown key policy %q", key.Policy)
	}

	var id string
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select fitment: %w", err)
	}
	return id, true, nil
}

// Insert writes a new row and returns the id assigned by the database.
func (s *FitmentStore) Insert(ctx context.Context, rec fitment.Record) (string, error) {
	query := fmt.Sprintf(`
INSERT INTO %s (
	product_id,
	title,
	make,
	model,
	year,
	sku,
	handle,
	image,
	created_at,
	updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) RETURNING id::text`, s.table)

	var id string
	err := s.pool.QueryRow(ctx, query,
		rec.ProductID,
		rec.Title,
		rec.Make,
		rec.Model,
		rec.Year,
		rec.SKU,
		rec.Handle,
		rec.Image,
		rec.CreatedAt,
		rec.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert fitment: %w", err)
	}
	return id, nil
}

// Update refreshes the mutable columns of an existing row.
func (s *FitmentStore) Update(ctx context.Context, id string, fields fitment.Fields) error {
	query := fmt.Sprintf(`
UPDATE %s SET
	title = $1,
	make = $2,
	model = $3,
	sku = $4,
	handle = $5,
	image = $6,
	updated_at = $7
WHERE id = $8`, s.table)

	tag, err := s.pool.Exec(ctx, query,
		fields.Title,
		fields.Make,
		fields.Model,
		fields.SKU,
		fields.Handle,
		fields.Image,
		fields.UpdatedAt,
		id,
	)
	if err != nil {
		return fmt.Errorf("update fitment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update fitment %s: %w", id, fitment.ErrNotFound)
	}
	return nil
}
