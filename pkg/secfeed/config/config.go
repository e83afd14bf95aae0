package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/secfeed/internal/feed"
	"github.com/cognicore/secfeed/pkg/secfeed/filing"
	"github.com/cognicore/secfeed/pkg/secfeed/internalerr"
	"github.com/cognicore/secfeed/pkg/secfeed/metrics"
	"github.com/cognicore/secfeed/pkg/secfeed/store"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Environment overrides.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvUserAgent   = "SECFEED_USER_AGENT"
)

// Config represents the full poller configuration
type Config struct {
	Feed    FeedConfig     `yaml:"feed"`
	Poll    PollConfig     `yaml:"poll"`
	Store   StoreConfig    `yaml:"store"`
	Report  ReportConfig   `yaml:"report"`
	Metrics metrics.Config `yaml:"metrics"`
	Log     LogConfig      `yaml:"log"`
}

// FeedConfig describes where and how to fetch the feed
type FeedConfig struct {
	URL       string        `yaml:"url"`
	UserAgent string        `yaml:"user_agent"` // EDGAR rejects requests without a contact
	Timeout   time.Duration `yaml:"timeout"`
}

// PollConfig controls scheduling and filtering
type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
	Ignore   []string      `yaml:"ignore"` // form codes, e.g. "4", "SC 13G/A"
}

// StoreConfig selects the dedup store backend
type StoreConfig struct {
	Driver     string         `yaml:"driver"`
	SQLitePath string         `yaml:"sqlite_path"`
	Table      string         `yaml:"table"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig contains PostgreSQL connection settings. DSN wins over the
// individual fields when set.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// ReportConfig says where per-poll reports go
type ReportConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// Load reads a YAML file, applies defaults and environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load over in-memory YAML.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: parse config: %v", internalerr.ErrInvalidConfig, err)
	}

	c.ApplyDefaults()
	c.ApplyEnv()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Feed.URL == "" {
		c.Feed.URL = feed.CurrentFilingsURL
	}
	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = 30 * time.Second
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = 10 * time.Minute
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = "secfeed.db"
	}
	if c.Store.Table == "" {
		c.Store.Table = store.DefaultTable
	}
	if c.Store.Postgres.Port == 0 {
		c.Store.Postgres.Port = 5432
	}
	if c.Store.Postgres.SSLMode == "" {
		c.Store.Postgres.SSLMode = "disable"
	}
	if c.Report.Dir == "" {
		c.Report.Dir = "reports"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Metrics.ApplyDefaults()
}

// ApplyEnv lets the environment override secrets and contact details.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Store.Postgres.DSN = v
	}
	if v := os.Getenv(EnvUserAgent); v != "" {
		c.Feed.UserAgent = v
	}
}

// Validate checks the configuration for values the poller can't run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Feed.UserAgent) == "" {
		return fmt.Errorf("%w: feed.user_agent is required (set %s)", internalerr.ErrInvalidConfig, EnvUserAgent)
	}
	if c.Feed.Timeout < 0 {
		return fmt.Errorf("%w: feed.timeout must be positive", internalerr.ErrInvalidConfig)
	}
	if c.Poll.Interval < time.Second {
		return fmt.Errorf("%w: poll.interval %v is too short", internalerr.ErrInvalidConfig, c.Poll.Interval)
	}
	if _, err := c.IgnoreSet(); err != nil {
		return fmt.Errorf("%w: poll.ignore: %v", internalerr.ErrInvalidConfig, err)
	}

	switch c.Store.Driver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.Store.Postgres.DSN == "" && c.Store.Postgres.Host == "" {
			return fmt.Errorf("%w: store.postgres needs dsn or host (or %s)", internalerr.ErrInvalidConfig, EnvDatabaseURL)
		}
	default:
		return fmt.Errorf("%w: unknown store.driver %q", internalerr.ErrInvalidConfig, c.Store.Driver)
	}
	return store.ValidateTable(c.Store.Table)
}

// IgnoreSet classifies the configured ignore list.
func (c *Config) IgnoreSet() (filing.Set, error) {
	return filing.ParseSet(c.Poll.Ignore)
}

// ConnString returns the PostgreSQL connection string
func (c *PostgresConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.User, c.Password, c.SSLMode)
}
