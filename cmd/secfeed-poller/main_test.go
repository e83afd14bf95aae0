package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/cognicore/secfeed/pkg/secfeed/config"
	"github.com/cognicore/secfeed/pkg/secfeed/filing"
	"github.com/cognicore/secfeed/pkg/secfeed/internalerr"
)

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv(config.EnvUserAgent, "")
	path := filepath.Join(t.TempDir(), "secfeed.yaml")
	content := `feed: {user_agent: "Example Corp ops@example.com"}
poll: {ignore: ["4"]}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path, config.DriverMemory, "4/A,SC 13G")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Store.Driver != config.DriverMemory {
		t.Errorf("driver = %q", cfg.Store.Driver)
	}
	ignore, err := cfg.IgnoreSet()
	if err != nil {
		t.Fatalf("IgnoreSet: %v", err)
	}
	for _, ty := range []filing.Type{filing.Sec4, filing.Sec4A, filing.SecSC13G} {
		if !ignore.Has(ty) {
			t.Errorf("ignore set missing %s", ty.Code())
		}
	}
}

func TestLoadConfigRejects(t *testing.T) {
	t.Setenv(config.EnvUserAgent, "Example Corp ops@example.com")

	tests := map[string]struct {
		driver, ignore string
	}{
		"unknown driver": {driver: "mongo"},
		"unknown form":   {ignore: "4,NOPE"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := loadConfig("", tt.driver, tt.ignore)
			if !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestRunOnce(t *testing.T) {
	body, err := os.ReadFile("../../internal/feed/testdata/current.xml")
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	t.Setenv(config.EnvUserAgent, "Example Corp ops@example.com")
	cfg, err := loadConfig("", config.DriverSQLite, "")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	dir := t.TempDir()
	cfg.Feed.URL = srv.URL
	cfg.Store.SQLitePath = filepath.Join(dir, "dedup.db")
	cfg.Report.Dir = filepath.Join(dir, "reports")

	if err := run(context.Background(), cfg, zap.NewNop(), true, false); err != nil {
		t.Fatalf("run: %v", err)
	}

	entries, err := os.ReadDir(cfg.Report.Dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one report, got %v, %v", entries, err)
	}
	data, _ := os.ReadFile(filepath.Join(cfg.Report.Dir, entries[0].Name()))
	if n := strings.Count(string(data), "\n"); n != 4 {
		t.Errorf("report should hold header plus 3 filings, got %d lines", n)
	}

	// -reset empties the store the first run filled.
	if err := run(context.Background(), cfg, zap.NewNop(), false, true); err != nil {
		t.Fatalf("reset: %v", err)
	}
	st, err := config.OpenStore(context.Background(), cfg.Store)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if n, _ := st.Count(context.Background()); n != 0 {
		t.Errorf("store holds %d entries after reset", n)
	}
}
