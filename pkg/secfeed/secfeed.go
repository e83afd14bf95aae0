package secfeed

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/cognicore/secfeed/internal/feed"
	"github.com/cognicore/secfeed/pkg/secfeed/assemble"
	"github.com/cognicore/secfeed/pkg/secfeed/filing"
	"github.com/cognicore/secfeed/pkg/secfeed/metrics"
	"github.com/cognicore/secfeed/pkg/secfeed/report"
	"github.com/cognicore/secfeed/pkg/secfeed/store"
)

// ErrPollInProgress is returned when Poll is called while another poll of
// the same Poller is still running.
var ErrPollInProgress = errors.New("poll already in progress")

// Fetcher retrieves the current feed document.
type Fetcher interface {
	Fetch(ctx context.Context) (feed.Document, error)
}

// Committer is implemented by fetchers that send conditional requests. The
// poller commits a document only after its poll succeeded, so a failed poll
// refetches the same feed in full.
type Committer interface {
	Commit(doc feed.Document)
}

// Poller is the feed polling facade: fetch → tokenize → assemble → report.
type Poller struct {
	store     store.AccessionStore
	fetcher   Fetcher
	assembler *assemble.Assembler
	reportDir string
	logger    *zap.Logger
	metrics   *metrics.Metrics

	mu      sync.Mutex // held for the duration of a poll
	entropy *ulid.MonotonicEntropy

	lastMu sync.RWMutex
	last   *PollResult
}

// Options configures a Poller
type Options struct {
	Store   store.AccessionStore
	Fetcher Fetcher
	Ignore  filing.Set
	// ReportDir receives one report per poll. Empty disables report files.
	ReportDir string
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// New creates a Poller with the given dependencies
func New(opts Options) *Poller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		store:     opts.Store,
		fetcher:   opts.Fetcher,
		assembler: assemble.New(opts.Store, opts.Ignore, logger),
		reportDir: opts.ReportDir,
		logger:    logger,
		metrics:   opts.Metrics,
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}
}

// Close cleanly shuts down the Poller
func (p *Poller) Close() error {
	return p.store.Close()
}

// Store returns the dedup store the poller records into.
func (p *Poller) Store() store.AccessionStore {
	return p.store
}

// PollResult describes one completed poll
type PollResult struct {
	RunID       string
	NotModified bool
	Records     []filing.Record
	Stats       assemble.Stats
	ReportPath  string
	StartedAt   time.Time
	Duration    time.Duration
}

// Poll runs one fetch/extract/dedup/report cycle. Only one poll runs at a
// time per Poller; an overlapping call returns ErrPollInProgress. On error no
// report is written.
func (p *Poller) Poll(ctx context.Context) (PollResult, error) {
	if !p.mu.TryLock() {
		p.metrics.RecordPoll(metrics.StatusBusy, 0)
		return PollResult{}, ErrPollInProgress
	}
	defer p.mu.Unlock()

	start := time.Now()
	res := PollResult{
		RunID:     ulid.MustNew(ulid.Timestamp(start), p.entropy).String(),
		StartedAt: start,
	}
	logger := p.logger.With(zap.String("run_id", res.RunID))

	doc, err := p.poll(ctx, &res, logger)
	res.Duration = time.Since(start)

	if err != nil {
		p.metrics.RecordPoll(metrics.StatusError, res.Duration)
		logger.Error("poll failed", zap.Error(err), zap.Duration("duration", res.Duration))
		return res, err
	}
	if c, ok := p.fetcher.(Committer); ok {
		c.Commit(doc)
	}

	status := metrics.StatusOK
	if res.NotModified {
		status = metrics.StatusNotModified
	}
	p.metrics.RecordPoll(status, res.Duration)
	p.metrics.RecordFilings(res.Stats.Emitted, res.Stats.Duplicates, res.Stats.Ignored)

	p.lastMu.Lock()
	saved := res
	p.last = &saved
	p.lastMu.Unlock()

	logger.Info("poll complete",
		zap.Bool("not_modified", res.NotModified),
		zap.Int("entries", res.Stats.Entries),
		zap.Int("emitted", res.Stats.Emitted),
		zap.Int("duplicates", res.Stats.Duplicates),
		zap.Int("ignored", res.Stats.Ignored),
		zap.String("report", res.ReportPath),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func (p *Poller) poll(ctx context.Context, res *PollResult, logger *zap.Logger) (feed.Document, error) {
	doc, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return doc, err
	}
	if doc.NotModified {
		res.NotModified = true
		logger.Debug("feed not modified")
		return doc, nil
	}

	fragments, err := feed.Tokenize(bytes.NewReader(doc.Body))
	if err != nil {
		return doc, fmt.Errorf("tokenize feed: %w", err)
	}
	logger.Debug("feed tokenized", zap.Int("fragments", len(fragments)), zap.Int("bytes", len(doc.Body)))

	// The report file is reserved before assembling records accession
	// numbers, so an unwritable report dir fails the poll with the store
	// untouched.
	var pending *report.Pending
	if p.reportDir != "" {
		pending, err = report.Create(filepath.Join(p.reportDir, report.FileName(res.RunID)))
		if err != nil {
			return doc, err
		}
	}

	recs, stats, err := p.assembler.Assemble(ctx, fragments)
	res.Stats = stats
	if err != nil {
		if pending != nil {
			pending.Abort()
		}
		return doc, fmt.Errorf("assemble entries: %w", err)
	}
	res.Records = recs

	if pending != nil {
		if err := pending.Commit(recs); err != nil {
			return doc, err
		}
		res.ReportPath = pending.Path()
	}
	return doc, nil
}

// Run polls immediately and then every interval until ctx is cancelled.
// Failed polls are logged and retried on the next tick.
func (p *Poller) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("poller started", zap.Duration("interval", interval))
	for {
		if _, err := p.Poll(ctx); errors.Is(err, ErrPollInProgress) {
			p.logger.Warn("previous poll still running, skipping tick")
		}

		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// LastPoll returns the most recent successful poll, if any.
func (p *Poller) LastPoll() (PollResult, bool) {
	p.lastMu.RLock()
	defer p.lastMu.RUnlock()
	if p.last == nil {
		return PollResult{}, false
	}
	return *p.last, true
}
