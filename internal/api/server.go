package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/LRZ-BADW/avina/internal/accounting"
	apimiddleware "github.com/LRZ-BADW/avina/internal/api/middleware"
	"github.com/LRZ-BADW/avina/internal/auth"
	"github.com/LRZ-BADW/avina/internal/clock"
	"github.com/LRZ-BADW/avina/internal/config"
	"github.com/LRZ-BADW/avina/internal/metrics"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port             int
	ShutdownTimeout  time.Duration
	AllowedOrigins   []string
	MaxBodySize      string
	RequestTimeout   time.Duration
	RateLimit        float64
	QuotaCacheTTL    time.Duration
	UsageConcurrency int
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:             8000,
		ShutdownTimeout:  10 * time.Second,
		MaxBodySize:      "1M",
		RequestTimeout:   30 * time.Second,
		QuotaCacheTTL:    accounting.DefaultQuotaCacheTTL,
		UsageConcurrency: accounting.DefaultUsageConcurrency,
	}
}

// NewServerConfig derives the server configuration from the loaded config
func NewServerConfig(cfg *config.Config) *ServerConfig {
	sc := DefaultServerConfig()
	sc.Port = cfg.Server.Port
	sc.AllowedOrigins = cfg.Server.CORSOrigins
	sc.MaxBodySize = cfg.Server.BodyLimit
	sc.RequestTimeout = cfg.Server.RequestTimeout
	sc.RateLimit = cfg.Server.RateLimit
	sc.QuotaCacheTTL = cfg.Quota.CacheTTL
	sc.UsageConcurrency = cfg.Usage.Concurrency
	return sc
}

// Server represents the HTTP API server
type Server struct {
	echo     *echo.Echo
	config   *ServerConfig
	db       Database
	auth     *auth.Auth
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
	clock    clock.Clock
	quota    *accounting.QuotaChecker
}

// Option customises a Server
type Option func(*Server)

// WithClock replaces the real clock, used for "now" and the quota cache
func WithClock(clk clock.Clock) Option {
	return func(s *Server) {
		s.clock = clk
	}
}

// WithRegistry registers the server's collectors with reg and serves it
// on /metrics
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.metrics = metrics.New(reg)
		s.gatherer = reg
	}
}

// NewServer creates a new API server
func NewServer(config *ServerConfig, db Database, authService *auth.Auth, logger zerolog.Logger, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Echo's own logger stays quiet, requests are logged with zerolog
	e.Logger.SetOutput(io.Discard)

	e.Validator = NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler()

	s := &Server{
		echo:   e,
		config: config,
		db:     db,
		auth:   authService,
		logger: logger,
		clock:  clock.Real{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.quota = accounting.NewQuotaChecker(accounting.NewQuotaCache(config.QuotaCacheTTL, s.clock, s.metrics))

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware stack
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())

	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: types.GenerateRequestID,
	}))

	s.echo.Use(apimiddleware.Logger(s.logger))

	if s.metrics != nil {
		s.echo.Use(apimiddleware.Metrics(s.metrics))
	}

	if len(s.config.AllowedOrigins) > 0 {
		s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: s.config.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}

	s.echo.Use(middleware.BodyLimit(s.config.MaxBodySize))

	if s.config.RateLimit > 0 {
		s.echo.Use(middleware.RateLimiter(
			middleware.NewRateLimiterMemoryStore(rate.Limit(s.config.RateLimit)),
		))
	}

	if s.config.RequestTimeout > 0 {
		s.echo.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: s.config.RequestTimeout,
		}))
	}
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	// Health check (no auth required)
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ready", s.readyCheck)
	if s.gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	requireAuth := auth.RequireAuth(s.auth, auth.UserLoaderFunc(func(ctx context.Context, id uint32) (*types.User, error) {
		return s.db.Concurrent().User(ctx, id)
	}))
	api := s.echo.Group("/api", requireAuth)

	accountingHandler := NewAccountingHandler(s.db, s.clock, s.metrics)
	accountingGroup := api.Group("/accounting")
	accountingGroup.GET("/servercost", accountingHandler.ServerCost)
	accountingGroup.GET("/serverconsumption", accountingHandler.ServerConsumption)

	budgetingHandler := NewBudgetingHandler(s.db, s.clock, s.metrics)
	budgetingGroup := api.Group("/budgeting")
	budgetingGroup.GET("/budgetovertree", budgetingHandler.BudgetOverTree)

	pricingHandler := NewPricingHandler(s.db, s.clock)
	pricingGroup := api.Group("/pricing")
	pricingGroup.GET("/flavorprices", pricingHandler.List)
	pricingGroup.GET("/flavorprices/:id", pricingHandler.Get)

	quotaHandler := NewQuotaHandler(s.db, s.quota)
	quotaGroup := api.Group("/quota", auth.RequireAdmin())
	quotaGroup.GET("/flavorquotas/check", quotaHandler.Check)

	resourcesHandler := NewResourcesHandler(s.db, s.config.UsageConcurrency)
	resourcesGroup := api.Group("/resources")
	resourcesGroup.GET("/flavorgroups/usage", resourcesHandler.FlavorGroupUsage)
}

// healthCheck returns basic health status
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.clock.Now().Format(time.RFC3339),
	})
}

// readyCheck checks if server is ready to handle requests
func (s *Server) readyCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("database ping failed")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "database unavailable",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   s.clock.Now().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.logger.Info().Str("addr", addr).Msg("starting API server")
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// QuotaCache returns the cache shared by quota checks
func (s *Server) QuotaCache() *accounting.QuotaCache {
	return s.quota.Cache()
}

// Echo returns the underlying Echo instance for testing
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
