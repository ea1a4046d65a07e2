// Package dashboard serves the latest scan report, the portfolio state and
// the scan logs over HTTP, and can trigger a scan on demand.
package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rxtech-lab/twstock-scanner/internal/logger"
	"github.com/rxtech-lab/twstock-scanner/internal/metrics"
	"github.com/rxtech-lab/twstock-scanner/internal/report"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
	"github.com/rxtech-lab/twstock-scanner/pkg/utils"
)

// ScanFunc runs one scan cycle.
type ScanFunc func(ctx context.Context) (*types.Report, error)

// StateReader reads the portfolio state without modifying it.
type StateReader interface {
	Read() (*types.PortfolioState, error)
}

type Options struct {
	Addr         string
	ReportDir    string
	LogDir       string
	ScanTimeout  time.Duration
	ReadTimeout  time.Duration
	IdleTimeout  time.Duration
	LogTailLines int
}

// DefaultOptions returns options for a local-only dashboard.
func DefaultOptions() Options {
	return Options{
		Addr:         "127.0.0.1:8080",
		ReportDir:    "reports",
		LogDir:       "logs",
		ScanTimeout:  15 * time.Minute,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  60 * time.Second,
		LogTailLines: report.LogTailLines,
	}
}

type Server struct {
	opts     Options
	router   *mux.Router
	server   *http.Server
	state    StateReader
	scan     ScanFunc
	metrics  *metrics.Registry
	logger   *logger.Logger
	scanning sync.Mutex
}

// NewServer wires the routes. scan and registry may be nil, which disables
// POST /api/scan and /metrics respectively.
func NewServer(opts Options, state StateReader, scan ScanFunc, registry *metrics.Registry, log *logger.Logger) *Server {
	s := &Server{
		opts:    opts,
		router:  mux.NewRouter(),
		state:   state,
		scan:    scan,
		metrics: registry,
		logger:  log,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:        opts.Addr,
		Handler:     s.router,
		ReadTimeout: opts.ReadTimeout,
		IdleTimeout: opts.IdleTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)

	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/report", s.handleReport).Methods(http.MethodGet)
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/logs/latest", s.handleLatestLog).Methods(http.MethodGet)
	api.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting dashboard", zap.String("addr", s.opts.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down dashboard")

	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	plan, err := report.ReadPlan(s.opts.ReportDir)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.HasCode(err, errors.ErrCodeDataNotFound) {
			status = http.StatusNotFound
		}

		http.Error(w, err.Error(), status)

		return
	}

	tail, _ := s.logTail(s.opts.LogTailLines)

	html, err := report.RenderHTML(plan, tail)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(html)
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	plan, err := report.ReadPlan(s.opts.ReportDir)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	state, err := s.state.Read()
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, state)
}

type logResponse struct {
	Path  string   `json:"path"`
	Lines []string `json:"lines"`
}

func (s *Server) handleLatestLog(w http.ResponseWriter, r *http.Request) {
	n := s.opts.LogTailLines

	if raw := r.URL.Query().Get("lines"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, errors.Newf(errors.ErrCodeInvalidParameter, "lines must be a non-negative integer, got %q", raw))

			return
		}

		n = parsed
	}

	path, err := logger.LatestLogFile(s.opts.LogDir)
	if err != nil {
		writeError(w, err)

		return
	}

	if path == "" {
		writeError(w, errors.New(errors.ErrCodeDataNotFound, "no log file yet"))

		return
	}

	lines, err := utils.TailLines(path, n)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, logResponse{Path: path, Lines: lines})
}

// handleScan runs a scan synchronously. Only one scan runs at a time; a
// concurrent request gets 409.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.scan == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "scanning is disabled"})

		return
	}

	if !s.scanning.TryLock() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a scan is already running"})

		return
	}
	defer s.scanning.Unlock()

	ctx := r.Context()
	if s.opts.ScanTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.opts.ScanTimeout)
		defer cancel()
	}

	result, err := s.scan(ctx)
	if err != nil {
		s.logger.Error("Scan triggered from dashboard failed", zap.Error(err))
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) logTail(n int) ([]string, error) {
	path, err := logger.LatestLogFile(s.opts.LogDir)
	if err != nil || path == "" {
		return nil, err
	}

	return utils.TailLines(path, n)
}

type requestIDKey struct{}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		requestID, _ := r.Context().Value(requestIDKey{}).(string)
		s.logger.Debug("Request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapper.statusCode),
			zap.Duration("took", time.Since(start)),
		)
	})
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps error codes onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch errors.GetCode(err) {
	case errors.ErrCodeDataNotFound, errors.ErrCodeNoDataFound:
		status = http.StatusNotFound
	case errors.ErrCodeInvalidParameter:
		status = http.StatusBadRequest
	case errors.ErrCodeStateMigrationFailed:
		status = http.StatusConflict
	}

	writeJSON(w, status, map[string]any{
		"error": err.Error(),
		"code":  int(errors.GetCode(err)),
	})
}
