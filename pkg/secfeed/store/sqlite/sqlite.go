package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cognicore/secfeed/pkg/secfeed/filing"
	"github.com/cognicore/secfeed/pkg/secfeed/internalerr"
	"github.com/cognicore/secfeed/pkg/secfeed/store"
)

// sqliteStore implements store.AccessionStore using SQLite
type sqliteStore struct {
	db    *sql.DB
	table string

	existsStmt string
	insertStmt string
	countStmt  string
	clearStmt  string
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
// An optional table name can be passed; if omitted, store.DefaultTable is used.
func OpenSQLite(ctx context.Context, path string, table ...string) (store.AccessionStore, error) {
	t := store.DefaultTable
	if len(table) > 0 && table[0] != "" {
		t = table[0]
	}
	if err := store.ValidateTable(t); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, internalerr.Store("open", err)
	}
	// One connection keeps the per-connection pragmas below in force
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, internalerr.Store("open", err)
	}

	// Concurrent pollers sharing a file wait instead of failing with SQLITE_BUSY
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, internalerr.Store("open", err)
	}

	// Initialize schema
	if err := initSchema(ctx, db, t); err != nil {
		db.Close()
		return nil, internalerr.Store("init schema", err)
	}

	return &sqliteStore{
		db:         db,
		table:      t,
		existsStmt: fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE accession_number = ?)", t),
		insertStmt: fmt.Sprintf("INSERT INTO %s (accession_number) VALUES (?) ON CONFLICT(accession_number) DO NOTHING", t),
		countStmt:  fmt.Sprintf("SELECT COUNT(*) FROM %s", t),
		clearStmt:  fmt.Sprintf("DELETE FROM %s", t),
	}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates the table if it doesn't exist
func initSchema(ctx context.Context, db *sql.DB, table string) error {
	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	accession_number INTEGER UNIQUE NOT NULL
);
`, table)

	_, err := db.ExecContext(ctx, schema)
	return err
}

// Exists reports whether acc has already been recorded
func (s *sqliteStore) Exists(ctx context.Context, acc filing.Accession) (bool, error) {
	var found bool
	if err := s.db.QueryRowContext(ctx, s.existsStmt, int64(acc)).Scan(&found); err != nil {
		return false, internalerr.Store("exists", err)
	}
	return found, nil
}

// Insert records acc, returning internalerr.ErrDuplicate if it was already there
func (s *sqliteStore) Insert(ctx context.Context, acc filing.Accession) error {
	res, err := s.db.ExecContext(ctx, s.insertStmt, int64(acc))
	if err != nil {
		return internalerr.Store("insert", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return internalerr.Store("insert", err)
	}
	if n == 0 {
		return fmt.Errorf("accession %s: %w", acc, internalerr.ErrDuplicate)
	}
	return nil
}

// Count returns the number of recorded accession numbers
func (s *sqliteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, s.countStmt).Scan(&n); err != nil {
		return 0, internalerr.Store("count", err)
	}
	return n, nil
}

// ClearAll deletes every recorded accession number
func (s *sqliteStore) ClearAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.clearStmt)
	return internalerr.Store("clear", err)
}

// entries lists stored rows in insertion order. Used by tests.
func (s *sqliteStore) entries(ctx context.Context) ([]store.Entry, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT id, accession_number FROM %s ORDER BY id", s.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Entry
	for rows.Next() {
		var e store.Entry
		var acc int64
		if err := rows.Scan(&e.ID, &acc); err != nil {
			return nil, err
		}
		e.Accession = filing.Accession(acc)
		out = append(out, e)
	}
	return out, rows.Err()
}
