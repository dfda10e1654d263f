package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/chart"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/services"
	appweb "bilancio/web"
)

const (
	defaultRateLimit = 60
	exportCacheSize  = 32
	exportCacheTTL   = 10 * time.Minute
)

type Server struct {
	http.Server
	ledger      *services.LedgerService
	templates   *template.Template
	rateLimiter *rateLimiter
	logger      *log.Logger
	now         func() time.Time

	// Rendered PDFs and SVGs keyed by the snapshot they were drawn from.
	exports *cache.LRU[[]byte]
	sweeper *cache.Sweeper

	shutdownOnce sync.Once
}

type Option func(*Server)

// WithRateLimit sets the number of POST requests allowed per client per
// minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		if perMinute > 0 {
			s.rateLimiter = newRateLimiter(perMinute, time.Minute)
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock overrides the time source used for report dates.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc *services.LedgerService, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, errors.New("ledger service is required")
	}
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		ledger:      svc,
		rateLimiter: newRateLimiter(defaultRateLimit, time.Minute),
		logger:      log.Default(log.ComponentHTTP),
		now:         time.Now,
		exports:     cache.NewLRU[[]byte](exportCacheSize, exportCacheTTL),
	}
	for _, opt := range opts {
		opt(s)
	}

	t, err := template.New("").Funcs(template.FuncMap{
		"money": func(m core.Money) string { return m.Format() },
		"plain": func(m core.Money) string { return m.Decimal().StringFixed(2) },
		"svg":   func(p chart.Pie) template.HTML { return template.HTML(p.SVG()) },
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = t

	mux := http.NewServeMux()
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		static.ServeHTTP(w, r)
	}))

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/income", s.handleCreate(core.Income))
	mux.HandleFunc("/expenses", s.handleCreate(core.Expense))
	mux.HandleFunc("/income/edit", s.handleEdit(core.Income))
	mux.HandleFunc("/expenses/edit", s.handleEdit(core.Expense))
	mux.HandleFunc("/income/delete", s.handleDelete(core.Income))
	mux.HandleFunc("/expenses/delete", s.handleDelete(core.Expense))

	mux.HandleFunc("/api/ledger", s.handleLedgerJSON)
	mux.HandleFunc("/api/summary", s.handleSummaryJSON)
	mux.HandleFunc("/charts/income.svg", s.handleChart(core.Income))
	mux.HandleFunc("/charts/expenses.svg", s.handleChart(core.Expense))
	mux.HandleFunc("/export.pdf", s.handleExportPDF)

	withRequestLogger := log.RequestIDMiddleware(s.logger, requestIDFor)
	s.Handler = withRequestLogger(s.withSecurityHeaders(mux))

	s.sweeper = cache.NewSweeper(s.logger)
	s.sweeper.Register(s.exports)
	return s, nil
}

// Start launches the background sweepers. ListenAndServe is left to the
// caller.
func (s *Server) Start() {
	s.rateLimiter.start()
	s.sweeper.Start(exportCacheTTL)
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.sweeper.Stop()
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// requestIDFor reuses a well-formed X-Request-ID from the client, otherwise
// assigns a new one. The chosen id is written back to the request header so
// the response can echo it.
func requestIDFor(r *http.Request) string {
	id := r.Header.Get("X-Request-ID")
	if !validRequestID(id) {
		id = generateRequestID()
		r.Header.Set("X-Request-ID", id)
	}
	return id
}

func validRequestID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, c := range id {
		if !(c == '-' || c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}
