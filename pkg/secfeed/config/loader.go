package config

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/secfeed/internal/feed"
	"github.com/cognicore/secfeed/pkg/secfeed/filing"
	"github.com/cognicore/secfeed/pkg/secfeed/internalerr"
	"github.com/cognicore/secfeed/pkg/secfeed/store"
	"github.com/cognicore/secfeed/pkg/secfeed/store/memstore"
	"github.com/cognicore/secfeed/pkg/secfeed/store/postgres"
	"github.com/cognicore/secfeed/pkg/secfeed/store/sqlite"
)

// Loader constructs runtime components from a Config
type Loader struct {
	Config *Config
	Logger *zap.Logger
}

// Components holds everything a poller needs
type Components struct {
	Store   store.AccessionStore
	Fetcher *feed.Fetcher
	Ignore  filing.Set
}

// Close releases the store connection.
func (c *Components) Close() error {
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

// Load opens the configured store and builds the fetcher and ignore set
func (l *Loader) Load(ctx context.Context) (*Components, error) {
	if l.Config == nil {
		return nil, fmt.Errorf("%w: no configuration", internalerr.ErrInvalidConfig)
	}
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := l.Config

	ignore, err := cfg.IgnoreSet()
	if err != nil {
		return nil, fmt.Errorf("load ignore set: %w", err)
	}

	st, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Info("dedup store ready",
		zap.String("driver", cfg.Store.Driver),
		zap.String("table", cfg.Store.Table))

	return &Components{
		Store:   st,
		Fetcher: feed.NewFetcher(cfg.Feed.URL, cfg.Feed.UserAgent, cfg.Feed.Timeout),
		Ignore:  ignore,
	}, nil
}

// OpenStore opens the backend named by sc.Driver.
func OpenStore(ctx context.Context, sc StoreConfig) (store.AccessionStore, error) {
	switch sc.Driver {
	case DriverSQLite:
		return sqlite.OpenSQLite(ctx, sc.SQLitePath, sc.Table)
	case DriverPostgres:
		return postgres.Open(ctx, sc.Postgres.ConnString(), sc.Table)
	case DriverMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", internalerr.ErrInvalidConfig, sc.Driver)
	}
}

// NewLogger builds a zap logger from the log section.
func NewLogger(lc LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: log.level: %v", internalerr.ErrInvalidConfig, err)
	}

	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
