// Package postgres stores accession numbers in PostgreSQL through a pgx
// connection pool. The accession_number column is NUMERIC(20,0); values are
// bound as int64, which holds every 18-digit accession number.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cognicore/secfeed/pkg/secfeed/filing"
	"github.com/cognicore/secfeed/pkg/secfeed/internalerr"
	"github.com/cognicore/secfeed/pkg/secfeed/store"
)

type pgStore struct {
	pool  *pgxpool.Pool
	table string
}

// Open connects to dsn, pings the server and creates the table if needed.
func Open(ctx context.Context, dsn, table string) (store.AccessionStore, error) {
	if table == "" {
		table = store.DefaultTable
	}
	if err := store.ValidateTable(table); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parse postgres DSN: %v", internalerr.ErrInvalidConfig, err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, internalerr.Store("connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, internalerr.Store("ping", err)
	}

	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id SERIAL PRIMARY KEY,
	accession_number NUMERIC(20,0) UNIQUE NOT NULL
)`, table)
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, internalerr.Store("init schema", err)
	}

	return &pgStore{pool: pool, table: table}, nil
}

func (s *pgStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *pgStore) Exists(ctx context.Context, acc filing.Accession) (bool, error) {
	q := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE accession_number = $1)", s.table)
	var found bool
	if err := s.pool.QueryRow(ctx, q, int64(acc)).Scan(&found); err != nil {
		return false, internalerr.Store("exists", err)
	}
	return found, nil
}

func (s *pgStore) Insert(ctx context.Context, acc filing.Accession) error {
	q := fmt.Sprintf("INSERT INTO %s (accession_number) VALUES ($1) ON CONFLICT (accession_number) DO NOTHING", s.table)
	tag, err := s.pool.Exec(ctx, q, int64(acc))
	if err != nil {
		return internalerr.Store("insert", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("accession %s: %w", acc, internalerr.ErrDuplicate)
	}
	return nil
}

func (s *pgStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n); err != nil {
		return 0, internalerr.Store("count", err)
	}
	return n, nil
}

func (s *pgStore) ClearAll(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", s.table))
	return internalerr.Store("clear", err)
}
