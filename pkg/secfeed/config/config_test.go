package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/secfeed/internal/feed"
	"github.com/cognicore/secfeed/pkg/secfeed/filing"
	"github.com/cognicore/secfeed/pkg/secfeed/internalerr"
	"github.com/cognicore/secfeed/pkg/secfeed/store"
)

func TestLoadFull(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "secfeed.yaml")

	content := `feed:
  user_agent: "Example Corp ops@example.com"
  timeout: 15s
poll:
  interval: 5m
  ignore:
    - "4"
    - "4/A"
    - "SC 13G/A"
store:
  driver: sqlite
  sqlite_path: /var/lib/secfeed/dedup.db
  table: test_accession_numbers
report:
  dir: /var/lib/secfeed/reports
metrics:
  enabled: true
  address: ":9100"
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Feed.URL != feed.CurrentFilingsURL {
		t.Errorf("feed URL should default, got %q", cfg.Feed.URL)
	}
	if cfg.Feed.Timeout != 15*time.Second {
		t.Errorf("timeout = %v", cfg.Feed.Timeout)
	}
	if cfg.Poll.Interval != 5*time.Minute {
		t.Errorf("interval = %v", cfg.Poll.Interval)
	}
	if cfg.Store.Table != store.TestTable {
		t.Errorf("table = %q", cfg.Store.Table)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Address != ":9100" {
		t.Errorf("metrics = %+v", cfg.Metrics)
	}

	ignore, err := cfg.IgnoreSet()
	if err != nil {
		t.Fatalf("IgnoreSet: %v", err)
	}
	if len(ignore) != 3 || !ignore.Has(filing.Sec4A) || !ignore.Has(filing.SecSC13GA) {
		t.Errorf("ignore = %v", ignore.Codes())
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`feed: {user_agent: "a b@example.com"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Poll.Interval != 10*time.Minute {
		t.Errorf("default interval = %v", cfg.Poll.Interval)
	}
	if cfg.Store.Driver != DriverSQLite || cfg.Store.Table != store.DefaultTable {
		t.Errorf("default store = %+v", cfg.Store)
	}
	if cfg.Report.Dir != "reports" || cfg.Log.Level != "info" {
		t.Errorf("defaults not applied: %+v %+v", cfg.Report, cfg.Log)
	}
	if cfg.Metrics.Address != ":9090" {
		t.Errorf("metrics address = %q", cfg.Metrics.Address)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := map[string]string{
		"no user agent":   `poll: {interval: 5m}`,
		"unknown form":    `{feed: {user_agent: x}, poll: {ignore: ["4", "NOT-A-FORM"]}}`,
		"short interval":  `{feed: {user_agent: x}, poll: {interval: 10ms}}`,
		"unknown driver":  `{feed: {user_agent: x}, store: {driver: mongo}}`,
		"bad table":       `{feed: {user_agent: x}, store: {table: "drop table"}}`,
		"postgres no dsn": `{feed: {user_agent: x}, store: {driver: postgres}}`,
		"bad yaml":        `feed: [`,
	}

	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvUserAgent, "")

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(content))
			if !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvUserAgent, "Env Corp env@example.com")
	t.Setenv(EnvDatabaseURL, "postgres://u:p@db:5432/secfeed")

	cfg, err := Parse([]byte(`store: {driver: postgres}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Feed.UserAgent != "Env Corp env@example.com" {
		t.Errorf("user agent = %q", cfg.Feed.UserAgent)
	}
	if cfg.Store.Postgres.ConnString() != "postgres://u:p@db:5432/secfeed" {
		t.Errorf("conn string = %q", cfg.Store.Postgres.ConnString())
	}
}

func TestPostgresConnStringFromFields(t *testing.T) {
	pc := PostgresConfig{Host: "db", Port: 5433, Database: "secfeed", User: "u", Password: "p", SSLMode: "require"}
	want := "host=db port=5433 dbname=secfeed user=u password=p sslmode=require"
	if got := pc.ConnString(); got != want {
		t.Errorf("ConnString = %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/secfeed.yaml"); err == nil {
		t.Error("Should error on nonexistent config")
	}
}
