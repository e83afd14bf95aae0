package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cognicore/secfeed/pkg/secfeed/filing"
	"github.com/cognicore/secfeed/pkg/secfeed/internalerr"
	"github.com/cognicore/secfeed/pkg/secfeed/store"
)

func openTest(t *testing.T, table ...string) (store.AccessionStore, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := OpenSQLite(context.Background(), dbPath, table...)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st, dbPath
}

// TestSchemaCreationIdempotent tests that running initSchema multiple times is safe
func TestSchemaCreationIdempotent(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Open database: %v", err)
	}
	defer db.Close()

	for i := 0; i < 3; i++ {
		if err := initSchema(ctx, db, store.DefaultTable); err != nil {
			t.Fatalf("initSchema iteration %d: %v", i, err)
		}
	}

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name = ?", store.DefaultTable).Scan(&count)
	if err != nil {
		t.Fatalf("Count tables: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 table, got %d", count)
	}
}

func TestExistsInsert(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	acc := filing.Accession(114036118030802)

	found, err := st.Exists(ctx, acc)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if found {
		t.Fatal("fresh store should not contain accession")
	}

	if err := st.Insert(ctx, acc); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	found, err = st.Exists(ctx, acc)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !found {
		t.Fatal("accession should be found after Insert")
	}

	if err := st.Insert(ctx, acc); !errors.Is(err, internalerr.ErrDuplicate) {
		t.Errorf("second Insert = %v, want ErrDuplicate", err)
	}

	n, err := st.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestLargestAccessionFits(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	acc, err := filing.ParseAccession("9999999999-99-999999")
	if err != nil {
		t.Fatalf("ParseAccession: %v", err)
	}
	if err := st.Insert(ctx, acc); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	entries, err := st.(*sqliteStore).entries(ctx)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Accession != acc || entries[0].ID != 1 {
		t.Errorf("unexpected entries %+v", entries)
	}
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t, store.TestTable)

	for i := 1; i <= 5; i++ {
		if err := st.Insert(ctx, filing.Accession(i)); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}
	if err := st.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}

	n, err := st.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("Count after ClearAll = %d", n)
	}
	if found, _ := st.Exists(ctx, 3); found {
		t.Error("accession 3 should be gone")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	st, dbPath := openTest(t)

	if err := st.Insert(ctx, 42); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	st.Close()

	st2, err := OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()

	found, err := st2.Exists(ctx, 42)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !found {
		t.Error("accession should survive reopen")
	}
}

func TestTablesAreIsolated(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	live, err := OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite live: %v", err)
	}
	defer live.Close()
	if err := live.Insert(ctx, 7); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	test, err := OpenSQLite(ctx, dbPath, store.TestTable)
	if err != nil {
		t.Fatalf("OpenSQLite test table: %v", err)
	}
	defer test.Close()

	if found, _ := test.Exists(ctx, 7); found {
		t.Error("test table should not see live entries")
	}
	if err := test.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if found, _ := live.Exists(ctx, 7); !found {
		t.Error("clearing the test table must not touch the live table")
	}
}

func TestRejectsBadTableName(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	_, err := OpenSQLite(context.Background(), dbPath, "x; DROP TABLE y")
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

// TestConcurrentInsertSingleWinner checks the conditional insert: of many
// goroutines racing on one accession number exactly one succeeds.
func TestConcurrentInsertSingleWinner(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	const workers = 8
	var wg sync.WaitGroup
	var wins, dups atomic.Int32

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := st.Insert(ctx, 1000)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, internalerr.ErrDuplicate):
				dups.Add(1)
			default:
				t.Errorf("unexpected Insert error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("expected exactly 1 winner, got %d", wins.Load())
	}
	if dups.Load() != workers-1 {
		t.Errorf("expected %d duplicates, got %d", workers-1, dups.Load())
	}
}

func TestClosedStoreReportsStoreError(t *testing.T) {
	st, _ := openTest(t)
	st.Close()

	_, err := st.Exists(context.Background(), 1)
	if !errors.Is(err, internalerr.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}
