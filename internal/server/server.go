package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cognicore/secfeed/pkg/secfeed"
	"github.com/cognicore/secfeed/pkg/secfeed/metrics"
	"github.com/cognicore/secfeed/pkg/secfeed/store"
)

// Source is the part of the poller the status server reads from.
type Source interface {
	Store() store.AccessionStore
	LastPoll() (secfeed.PollResult, bool)
}

// Server exposes /health and /metrics for a running poller.
type Server struct {
	source  Source
	metrics *metrics.Metrics
	logger  *zap.Logger
	router  *mux.Router
}

// New builds the router. m may be nil, in which case /metrics is not mounted.
func New(source Source, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{source: source, metrics: m, logger: logger, router: mux.NewRouter()}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if m != nil {
		s.router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type lastPoll struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
	NotModified bool      `json:"not_modified"`
	Entries     int       `json:"entries"`
	Emitted     int       `json:"emitted"`
	Duplicates  int       `json:"duplicates"`
	Ignored     int       `json:"ignored"`
	ReportPath  string    `json:"report_path,omitempty"`
}

type healthResponse struct {
	Status   string    `json:"status"`
	Recorded int64     `json:"recorded"`
	LastPoll *lastPoll `json:"last_poll,omitempty"`
	Error    string    `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy"}
	code := http.StatusOK

	n, err := s.source.Store().Count(r.Context())
	if err != nil {
		s.logger.Warn("health check: store count failed", zap.Error(err))
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		code = http.StatusServiceUnavailable
	}
	resp.Recorded = n

	if res, ok := s.source.LastPoll(); ok {
		resp.LastPoll = &lastPoll{
			RunID:       res.RunID,
			StartedAt:   res.StartedAt,
			DurationMS:  res.Duration.Milliseconds(),
			NotModified: res.NotModified,
			Entries:     res.Stats.Entries,
			Emitted:     res.Stats.Emitted,
			Duplicates:  res.Stats.Duplicates,
			Ignored:     res.Stats.Ignored,
			ReportPath:  res.ReportPath,
		}
	}

	s.respondJSON(w, code, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("write json response", zap.Int("status", code), zap.Error(err))
	}
}
