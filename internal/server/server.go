// Package server sets up the HTTP API with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/go-redis/redis/v8"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/solcloak/solcloak/internal/collect"
	"github.com/solcloak/solcloak/internal/config"
	"github.com/solcloak/solcloak/internal/health"
	"github.com/solcloak/solcloak/internal/labels"
	"github.com/solcloak/solcloak/internal/logging"
	"github.com/solcloak/solcloak/internal/metrics"
	"github.com/solcloak/solcloak/internal/ratelimit"
	"github.com/solcloak/solcloak/internal/realtime"
	"github.com/solcloak/solcloak/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg          *config.Config
	scanner      Scanner
	labels       labels.Provider
	collector    *collect.Collector
	hub          *realtime.Hub
	checks       *health.Registry
	rateLimiter  *ratelimit.Limiter
	db           *sql.DB       // nil if using in-memory labels
	redis        *redis.Client // nil if no cache configured
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithScanner injects a scanner (for testing)
func WithScanner(sc Scanner) Option {
	return func(s *Server) {
		s.scanner = sc
	}
}

// WithLabelProvider injects a label provider (for testing)
func WithLabelProvider(lp labels.Provider) Option {
	return func(s *Server) {
		s.labels = lp
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
		checks: health.NewRegistry(),
	}

	// Apply options first (may set scanner/labels/logger)
	for _, opt := range opts {
		opt(s)
	}

	// Label storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if s.labels == nil {
		if cfg.DatabaseURL != "" {
			db, err := sql.Open("postgres", cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("failed to open database: %w", err)
			}

			db.SetMaxOpenConns(25)
			db.SetMaxIdleConns(5)
			db.SetConnMaxLifetime(5 * time.Minute)

			if err := db.Ping(); err != nil {
				return nil, fmt.Errorf("failed to connect to database: %w", err)
			}

			s.db = db
			s.labels = labels.NewPostgresStore(db)
			s.checks.Register("labels", health.DatabaseChecker("labels", db))
			s.logger.Info("using PostgreSQL label store", "url", maskDSN(cfg.DatabaseURL))
		} else {
			mem := labels.NewMemoryProvider()
			if cfg.LabelsPath != "" {
				if err := mem.LoadFile(cfg.LabelsPath); err != nil {
					return nil, fmt.Errorf("failed to load labels file: %w", err)
				}
				s.logger.Info("loaded labels file", "path", cfg.LabelsPath, "entries", mem.Len())
			}
			s.labels = mem
			s.logger.Info("using in-memory label store", "entries", mem.Len())
		}

		// Optional read-through cache in front of the store
		if cfg.RedisURL != "" {
			rdbOpts, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				return nil, fmt.Errorf("failed to parse redis url: %w", err)
			}
			s.redis = redis.NewClient(rdbOpts)
			s.labels = labels.NewRedisCache(s.redis, s.labels)
			s.checks.Register("redis", health.PingChecker("redis", func(ctx context.Context) error {
				return s.redis.Ping(ctx).Err()
			}))
			s.logger.Info("label cache enabled", "redis", cfg.RedisURL)
		}
	}

	// Collector over the Solana RPC node
	rpcClient := collect.NewRPC(cfg.RPCURL, cfg.RPCTimeout)
	s.collector = collect.NewCollector(rpcClient, collect.Config{
		SignatureLimit:       cfg.SignatureLimit,
		MaxConcurrentFetches: cfg.MaxConcurrentFetches,
		FetchRetries:         cfg.FetchRetries,
	}, s.logger)
	s.checks.Register("rpc", health.PingChecker("rpc", s.collector.Ping))

	// Realtime hub for report streaming
	s.hub = realtime.NewHub(s.logger)

	// Scanner pipeline if not injected
	if s.scanner == nil {
		s.scanner = newScanService(s.collector, s.labels, s.hub, s.logger)
	}

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	limCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPM > 0 {
		limCfg.RequestsPerMinute = s.cfg.RateLimitRPM
	}
	s.rateLimiter = ratelimit.New(limCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Scan ID
	s.router.Use(s.scanIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) scanIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing scan ID (from load balancer, etc.)
		scanID := c.GetHeader("X-Scan-ID")
		if scanID == "" {
			scanID = generateScanID()
		}

		ctx := logging.WithScanID(c.Request.Context(), scanID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Scan-ID", scanID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// API info
	s.router.GET("/api", s.infoHandler)

	// WebSocket stream of scan lifecycle events
	s.router.GET("/v1/stream", func(c *gin.Context) {
		s.hub.HandleWebSocket(c.Writer, c.Request)
	})

	// V1 API group
	v1 := s.router.Group("/v1")
	v1.POST("/scan/wallet", s.scanWalletHandler)
	v1.POST("/scan/transaction", s.scanTransactionHandler)
	v1.POST("/scan/program", s.scanProgramHandler)
	v1.GET("/labels/:address", s.labelHandler)
	v1.GET("/stream/stats", s.streamStatsHandler)
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      90 * time.Second, // wallet scans can be slow on large histories
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"rpc", s.cfg.RPCURL,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.hub.Run(runCtx)

	// Sample DB pool stats into gauges
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, stats collector)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("redis close error", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateScanID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
