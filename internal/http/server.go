// Package http serves the ledger as a JSON API under /api/{workspace}.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"financeiro/internal/cache"
	"financeiro/internal/log"
	"financeiro/internal/middleware/ratelimit"
	"financeiro/internal/middleware/security"
	"financeiro/internal/middleware/trace"
	"financeiro/internal/services"
	"financeiro/internal/store"
)

const (
	reportCacheSize = 100
	// Bounds how long writes from other processes stay invisible in reports.
	reportCacheTTL = 5 * time.Minute
	cacheCleanup   = 10 * time.Minute
	readyTimeout   = 5 * time.Second
)

// Config wires a Server.
type Config struct {
	Addr   string
	Ledger *services.LedgerService
	// Docs is subscribed to so cached reports are dropped on writes.
	// Without it reports only expire.
	Docs store.DocumentStore
	// Ready reports whether the store answers. Nil means always ready.
	Ready     func(context.Context) error
	Logger    *log.Logger
	Now       func() time.Time
	RateLimit ratelimit.Config
}

type Server struct {
	http.Server

	ledger *services.LedgerService
	logger *log.Logger
	ready  func(context.Context) error
	now    func() time.Time

	reports        *cache.LRUCache[services.MonthReport]
	cacheManager   *cache.Manager
	stopInvalidate func()

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.DefaultConfig())
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit = ratelimit.DefaultConfig()
	}

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		ledger:       cfg.Ledger,
		logger:       cfg.Logger.WithComponent(log.ComponentHTTP),
		ready:        cfg.Ready,
		now:          cfg.Now,
		reports:      cache.NewLRUCache[services.MonthReport](reportCacheSize, reportCacheTTL),
		cacheManager: cache.NewManager(),
		limiter:      ratelimit.NewLimiter(cfg.RateLimit),
		detector:     security.NewDetector(),
		startedAt:    cfg.Now(),
	}
	s.tracer = trace.NewMiddleware(cfg.Logger, s.detector.ClientIP)

	s.cacheManager.Register(s.reports)
	s.cacheManager.StartCleanup(cacheCleanup)
	if cfg.Docs != nil {
		s.stopInvalidate = cache.InvalidateOnWrite(cfg.Docs, s.reports)
	}

	s.Handler = s.middleware(s.routes())
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/{workspace}/entries", s.handleListEntries)
	mux.HandleFunc("POST /api/{workspace}/entries", s.handleCreateEntry)
	mux.HandleFunc("PUT /api/{workspace}/entries/{id}", s.handleUpdateEntry)
	mux.HandleFunc("DELETE /api/{workspace}/entries/{id}", s.handleDeleteEntry)
	mux.HandleFunc("POST /api/{workspace}/entries/{id}/settle", s.handleSettle)
	mux.HandleFunc("POST /api/{workspace}/entries/{id}/reverse", s.handleReverse)

	mux.HandleFunc("POST /api/{workspace}/installments/preview", s.handlePreviewInstallments)
	mux.HandleFunc("POST /api/{workspace}/installments", s.handleCreateInstallments)

	mux.HandleFunc("POST /api/{workspace}/rateios/check", s.handleCheckRateio)
	mux.HandleFunc("POST /api/{workspace}/rateios", s.handleCreateRateio)

	mux.HandleFunc("GET /api/{workspace}/invoices", s.handleListInvoices)
	mux.HandleFunc("PUT /api/{workspace}/invoices/{invoiceId}", s.handleSaveInvoice)

	mux.HandleFunc("GET /api/{workspace}/accounts", s.handleListAccounts)
	mux.HandleFunc("PUT /api/{workspace}/accounts/{id}", s.handleSaveAccount)

	mux.HandleFunc("GET /api/{workspace}/reports/summary", s.handleReportSummary)

	return mux
}

// middleware wraps the mux, outermost first: tracing, security headers,
// probe detection, then rate limiting of writes.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.limiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
	})(h)
	h = s.detector.Middleware(s.logger)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return s.tracer.Middleware(h)
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.stopInvalidate != nil {
			s.stopInvalidate()
		}
		s.cacheManager.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
