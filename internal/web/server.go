// Package web provides the HTTP API of the lab report service.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/JonMunkholm/labreport/internal/config"
	"github.com/JonMunkholm/labreport/internal/core"
	"github.com/JonMunkholm/labreport/internal/metrics"
	mw "github.com/JonMunkholm/labreport/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options carries the optional collaborators of a Server.
type Options struct {
	// Metrics records HTTP request metrics. May be nil.
	Metrics *metrics.Metrics
	// Gatherer is served on the metrics path when metrics are enabled.
	Gatherer prometheus.Gatherer
	// Ping checks the database for /healthz. May be nil.
	Ping func(ctx context.Context) error
}

// Server is the HTTP server of the lab report service.
type Server struct {
	service *core.Service
	cfg     *config.Config
	opts    Options
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config, opts Options) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		opts:    opts,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics(s.opts.Metrics))
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	if s.cfg.Metrics.Enabled && s.opts.Gatherer != nil {
		s.router.Handle(s.cfg.Metrics.Path, promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{
			ErrorHandling: promhttp.HTTPErrorOnError,
		}))
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))
		if s.cfg.Rate.Enabled {
			limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
			r.Use(limiter.middleware)
		}

		// Dataset
		r.Post("/dataset", s.handleUpload)
		r.Get("/dataset", s.handleGetDataset)

		// Persistence
		r.Get("/state", s.handleGetState)
		r.Post("/state", s.handleImportState)
		r.Delete("/state", s.handleClearState)
		r.Post("/state/save", s.handleSaveState)
		r.Post("/state/restore", s.handleRestoreState)

		// Selection
		r.Route("/selection/rows", func(r chi.Router) {
			r.Post("/toggle-all", s.handleToggleAllRows)
			r.Post("/{rowID}/toggle", s.handleToggleRow)
			r.Post("/{rowID}/params/toggle-all", s.handleToggleAllParams)
			r.Post("/{rowID}/params/{param}/toggle", s.handleToggleParam)
			r.Post("/{rowID}/groups/{group}/toggle", s.handleToggleGroup)
			r.Post("/{rowID}/sets/{set}", s.handleApplySet)
		})
		r.Get("/rows/{rowID}/params", s.handleAvailableParams)
		r.Put("/comments/{rowID}", s.handleSetComment)

		// Views and exports
		r.Get("/report", s.handleReport)
		r.Get("/ionbalance", s.handleIonBalance)
		r.Get("/export/ionbalance.csv", s.handleExportCSV)
		r.Get("/export/report.xlsx", s.handleExportXLSX)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter is a fixed-window limiter per client IP. Idle visitors expire
// from the cache after two windows.
type rateLimiter struct {
	mu       sync.Mutex
	visitors *cache.Cache
	rate     int
	window   time.Duration
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		visitors: cache.New(2*window, window),
		rate:     rate,
		window:   window,
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cached, ok := rl.visitors.Get(ip)
	if !ok {
		rl.visitors.SetDefault(ip, &visitor{tokens: rl.rate - 1, lastReset: now})
		return true
	}
	v := cached.(*visitor)
	rl.visitors.SetDefault(ip, v)

	if now.Sub(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = now
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			respondError(w, r, errRateLimited, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the host part of RemoteAddr, which TrustedRealIP has already
// rewritten for requests from trusted proxies.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// writeJSON encodes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
