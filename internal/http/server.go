// Package http serves the browser form and a small JSON API over the expense log.
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

	"speselog/internal/app"
	"speselog/internal/core"
	"speselog/internal/log"
	"speselog/internal/middleware/ratelimit"
	"speselog/internal/middleware/security"
	"speselog/internal/middleware/trace"
	appweb "speselog/web"
)

// ExpenseService is what the handlers need from the expense service.
type ExpenseService interface {
	app.Service
	MonthlyReport(ctx context.Context, ym core.YearMonth) (core.MonthlyReport, error)
}

// ReportLister lists announced month-end reports, most recent first.
type ReportLister interface {
	ListReports(ctx context.Context, limit int) ([]core.StoredReport, error)
}

// Deps are the collaborators of a Server. History and Logger may be nil.
type Deps struct {
	Service    ExpenseService
	History    ReportLister
	Logger     *log.Logger
	Currency   string
	Categories []string
	RateLimit  ratelimit.Config
}

type Server struct {
	http.Server
	templates  *template.Template
	svc        ExpenseService
	controller *app.Controller
	history    ReportLister
	logger     *log.Logger
	currency   string
	categories []string
	limiter    *ratelimit.Limiter
	tracer     *trace.Middleware
	started    time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Service == nil {
		return nil, errors.New("expense service is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	currency := deps.Currency
	if currency == "" {
		currency = core.DefaultCurrency
	}
	categories := deps.Categories
	if len(categories) == 0 {
		categories = core.DefaultCategories
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	mux := http.NewServeMux()
	s := &Server{
		templates:  t,
		svc:        deps.Service,
		controller: app.NewController(deps.Service),
		history:    deps.History,
		logger:     logger,
		currency:   currency,
		categories: categories,
		limiter:    ratelimit.NewLimiter(deps.RateLimit),
		tracer:     trace.NewMiddleware(logger, security.ClientIP),
		started:    time.Now(),
	}

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /records", s.handleSubmit)
	mux.HandleFunc("POST /records/delete", s.handleDeleteSelected)

	mux.HandleFunc("GET /api/records", s.handleAPIList)
	mux.HandleFunc("POST /api/records", s.handleAPIAdd)
	mux.HandleFunc("DELETE /api/records", s.handleAPIDelete)
	mux.HandleFunc("GET /api/totals/{month}", s.handleAPITotal)
	mux.HandleFunc("GET /api/reports", s.handleAPIReports)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(security.ClientIP)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Limiter returns the rate limiter so its cleanup loop can be run alongside the server.
func (s *Server) Limiter() *ratelimit.Limiter {
	return s.limiter
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Info("HTTP server shutting down", log.FieldOperation, log.OpShutdown)
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// ListenAndServeContext serves until ctx is done, then shuts down within timeout.
func (s *Server) ListenAndServeContext(ctx context.Context, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
