// Package postgres stores discovered catalog ids in Postgres, one table per
// target.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/catalog-prober/internal/prober"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	TablePrefix     string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// IDStore implements prober.Store on top of a pgx pool.
type IDStore struct {
	pool   pool
	prefix string
}

// NewIDStore connects to Postgres using cfg.
func NewIDStore(ctx context.Context, cfg Config) (*IDStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: store.dsn", prober.ErrConfigurationMissing)
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
	return &IDStore{pool: p, prefix: cfg.TablePrefix}, nil
}

// NewIDStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewIDStoreWithPool(p pool, prefix string) (*IDStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &IDStore{pool: p, prefix: prefix}, nil
}

func (s *IDStore) table(target string) (string, error) {
	name := s.prefix + strings.ToLower(target)
	if !validTableName.MatchString(name) {
		return "", fmt.Errorf("invalid table name %q", name)
	}
	return name, nil
}

// EnsureTable creates the target's table if it does not exist.
func (s *IDStore) EnsureTable(ctx context.Context, target string) error {
	table, err := s.table(target)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	product_id     BIGINT PRIMARY KEY,
	product_id_str TEXT NOT NULL,
	image_url      TEXT NOT NULL,
	date_added     TIMESTAMPTZ NOT NULL
)`, table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// KnownIDs loads every stored id for target.
func (s *IDStore) KnownIDs(ctx context.Context, target string) (map[int64]struct{}, error) {
	table, err := s.table(target)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT product_id FROM %s", table))
	if err != nil {
		return nil, fmt.Errorf("select known ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan known id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate known ids: %w", err)
	}
	return ids, nil
}

// InsertIfAbsent writes record and reports whether a row was added.
func (s *IDStore) InsertIfAbsent(ctx context.Context, record prober.Record) (bool, error) {
	table, err := s.table(record.Target)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (product_id, product_id_str, image_url, date_added)
VALUES ($1, $2, $3, $4)
ON CONFLICT (product_id) DO NOTHING`, table)
	tag, err := s.pool.Exec(ctx, query, record.ID, record.FormattedID, record.URL, record.AddedAt)
	if err != nil {
		return false, fmt.Errorf("insert id %d: %w", record.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Close releases the underlying pool resources.
func (s *IDStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}
