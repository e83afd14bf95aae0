package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/cognicore/secfeed/internal/server"
	"github.com/cognicore/secfeed/pkg/secfeed"
	"github.com/cognicore/secfeed/pkg/secfeed/config"
	"github.com/cognicore/secfeed/pkg/secfeed/metrics"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (defaults plus environment if empty)")
		once       = flag.Bool("once", false, "Poll once and exit")
		driver     = flag.String("store", "", "Override store.driver (sqlite, postgres, memory)")
		reset      = flag.Bool("reset", false, "Clear every recorded accession number and exit")
		ignore     = flag.String("ignore", "", "Comma-separated form codes to skip, added to poll.ignore")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath, *driver, *ignore)
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *once, *reset); err != nil {
		logger.Fatal("poller exited", zap.Error(err))
	}
}

// loadConfig reads the file (if any) and applies flag overrides on top.
func loadConfig(path, driver, ignore string) (*config.Config, error) {
	var cfg *config.Config
	if path == "" {
		cfg = config.Default()
		cfg.ApplyEnv()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if cfg, err = config.Parse(data); err != nil {
			return nil, err
		}
	}

	if driver != "" {
		cfg.Store.Driver = driver
	}
	if ignore != "" {
		cfg.Poll.Ignore = append(cfg.Poll.Ignore, strings.Split(ignore, ",")...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, once, reset bool) error {
	comp, err := (&config.Loader{Config: cfg, Logger: logger}).Load(ctx)
	if err != nil {
		return err
	}

	if reset {
		defer comp.Close()
		if err := comp.Store.ClearAll(ctx); err != nil {
			return err
		}
		logger.Info("dedup store cleared", zap.String("table", cfg.Store.Table))
		return nil
	}

	if cfg.Report.Dir != "" {
		if err := os.MkdirAll(cfg.Report.Dir, 0755); err != nil {
			comp.Close()
			return err
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	p := secfeed.New(secfeed.Options{
		Store:     comp.Store,
		Fetcher:   comp.Fetcher,
		Ignore:    comp.Ignore,
		ReportDir: cfg.Report.Dir,
		Logger:    logger,
		Metrics:   m,
	})
	defer p.Close()

	logger.Info("secfeed poller started",
		zap.String("feed", cfg.Feed.URL),
		zap.String("store", cfg.Store.Driver),
		zap.Strings("ignore", comp.Ignore.Codes()),
		zap.Duration("interval", cfg.Poll.Interval))

	if once {
		_, err := p.Poll(ctx)
		return err
	}

	if m != nil {
		srv := server.New(p, m, logger)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Metrics.Address); err != nil {
				logger.Error("status server stopped", zap.Error(err))
			}
		}()
	}

	return p.Run(ctx, cfg.Poll.Interval)
}
