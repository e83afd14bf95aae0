package store

import (
	"context"
	"fmt"
	"regexp"

	"github.com/cognicore/secfeed/pkg/secfeed/filing"
	"github.com/cognicore/secfeed/pkg/secfeed/internalerr"
)

// Table names. The test table lets integration tests share a database with
// a live poller without touching its dedup history.
const (
	DefaultTable = "accession_numbers"
	TestTable    = "test_accession_numbers"
)

// AccessionStore remembers which accession numbers have already been emitted.
type AccessionStore interface {
	Close() error

	// Exists reports whether acc has been recorded.
	Exists(ctx context.Context, acc filing.Accession) (bool, error)

	// Insert records acc. It is conditional: if acc is already present
	// (including a concurrent insert winning the race) it returns
	// internalerr.ErrDuplicate and leaves the store unchanged.
	Insert(ctx context.Context, acc filing.Accession) error

	// Count returns the number of recorded accession numbers.
	Count(ctx context.Context) (int64, error)

	// ClearAll deletes every entry. Maintenance and tests only.
	ClearAll(ctx context.Context) error
}

// Entry mirrors a stored row.
type Entry struct {
	ID        int64
	Accession filing.Accession
}

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidateTable checks that name is safe to interpolate into SQL.
func ValidateTable(name string) error {
	if !tableName.MatchString(name) {
		return fmt.Errorf("%w: table name %q", internalerr.ErrInvalidConfig, name)
	}
	return nil
}
