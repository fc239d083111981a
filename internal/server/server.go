// Package server sets up the HTTP server with all routes.
package server

import (
	"context"
	"database/sql"
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
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/chichastore/riskd/internal/assessment"
	"github.com/chichastore/riskd/internal/config"
	"github.com/chichastore/riskd/internal/health"
	"github.com/chichastore/riskd/internal/history"
	"github.com/chichastore/riskd/internal/logging"
	"github.com/chichastore/riskd/internal/metrics"
	"github.com/chichastore/riskd/internal/ratelimit"
	"github.com/chichastore/riskd/internal/risk"
	"github.com/chichastore/riskd/internal/rules"
	"github.com/chichastore/riskd/internal/traces"
	"github.com/chichastore/riskd/internal/validation"
	"github.com/chichastore/riskd/internal/verify"
)

// Server wraps the HTTP server and dependencies.
type Server struct {
	cfg          *config.Config
	orchestrator *assessment.Orchestrator
	ruleEngine   *rules.Engine
	records      risk.RecordStore
	hist         history.Provider
	verifyClient verify.Client
	rateLimiter  *ratelimit.Limiter
	healthReg    *health.Registry
	db           *sql.DB       // nil if using in-memory
	redisClient  *redis.Client // nil if using in-memory history
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger

	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithVerifyClient sets a custom verification client (for testing).
func WithVerifyClient(c verify.Client) Option {
	return func(s *Server) { s.verifyClient = c }
}

// New creates a new server instance.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		logger:    logging.New(cfg.LogLevel, "json"),
		healthReg: health.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Storage: Postgres if DATABASE_URL set, otherwise in-memory.
	var ruleStore rules.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		s.db = db
		ruleStore = rules.NewPostgresStore(db)
		s.records = risk.NewPostgresRecordStore(db)
		s.healthReg.Register("postgres", func(ctx context.Context) health.Status {
			if err := db.PingContext(ctx); err != nil {
				return health.Status{Healthy: false, Detail: err.Error()}
			}
			return health.Status{Healthy: true}
		})
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))
	} else {
		ruleStore = rules.NewMemoryStore()
		s.records = risk.NewMemoryRecordStore()
		s.logger.Warn("DATABASE_URL not set, using in-memory storage (rules and audit records do not survive restarts)")
	}

	// Transaction history: Redis if configured, otherwise in-memory.
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rc := redis.NewClient(redisOpts)
		if err := rc.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		s.redisClient = rc
		s.hist = history.NewRedisProvider(rc)
		s.healthReg.Register("redis", func(ctx context.Context) health.Status {
			if err := rc.Ping(ctx).Err(); err != nil {
				return health.Status{Healthy: false, Detail: err.Error()}
			}
			return health.Status{Healthy: true}
		})
		s.logger.Info("using Redis transaction history")
	} else {
		s.hist = history.NewMemoryProvider()
		s.logger.Warn("REDIS_URL not set, using in-memory transaction history")
	}

	// Verification providers: HTTP gateway if configured, static otherwise.
	if s.verifyClient == nil {
		if cfg.VerifyBaseURL != "" {
			s.verifyClient = verify.NewHTTPClient(cfg.VerifyBaseURL, cfg.VerifyAPIKey, &http.Client{
				Timeout: cfg.VerifyTimeout() + time.Second,
			})
			s.logger.Info("using HTTP verification providers", "base_url", cfg.VerifyBaseURL)
		} else {
			s.verifyClient = &verify.StaticClient{}
			s.logger.Warn("VERIFY_BASE_URL not set, external verification checks always PASS")
		}
	}

	aggregator := verify.NewAggregator(s.verifyClient, cfg.VerifyTimeout(), s.logger)

	collector := risk.NewCollector(
		risk.HeuristicUserHistoryScorer{},
		risk.HeuristicDeviceRiskScorer{},
		risk.NewListGeographicScorer(cfg.HighRiskCountries),
		risk.HeuristicTransactionPatternScorer{},
		verify.NewFactorAdapter(aggregator),
		s.logger,
	)

	engine, err := risk.NewEngine(risk.DefaultScoringConfig(), collector, s.logger)
	if err != nil {
		return nil, err
	}

	s.ruleEngine = rules.NewEngine(ruleStore, s.logger)
	s.orchestrator = assessment.NewOrchestrator(engine, s.ruleEngine, s.records, s.logger)

	s.rateLimiter = ratelimit.New(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimitRPM,
		BurstSize:         cfg.RateLimitRPM / 10,
		CleanupInterval:   time.Minute,
	})

	s.setupRoutes()
	s.healthy.Store(true)
	return s, nil
}

func (s *Server) setupRoutes() {
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger))
	r.Use(metrics.Middleware())
	r.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	r.GET("/healthz", s.handleHealthz)
	r.GET("/readyz", s.handleReadyz)
	r.GET("/metrics", metrics.Handler())

	assessHandler := assessment.NewHandler(s.orchestrator, s.hist, s.records)
	ruleHandler := rules.NewHandler(s.ruleEngine)

	v1 := r.Group("/v1")
	v1.Use(s.rateLimiter.Middleware())
	assessHandler.RegisterRoutes(v1)

	admin := r.Group("/v1/admin")
	admin.Use(s.adminAuth())
	ruleHandler.RegisterRoutes(admin)
	assessHandler.RegisterAdminRoutes(admin)

	s.router = r
}

// adminAuth guards the compliance-operator surface with a bearer secret.
func (s *Server) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.AdminSecret == "" && s.cfg.IsDevelopment() {
			c.Next() // open admin surface for local development only
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+s.cfg.AdminSecret || s.cfg.AdminSecret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "admin credentials required",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReadyz(c *gin.Context) {
	healthy, statuses := s.healthReg.CheckAll(c.Request.Context())
	if !s.ready.Load() || !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "checks": statuses})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": statuses})
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler { return s.router }

// Run starts the server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	shutdownTraces, err := traces.Init(ctx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	s.ready.Store(true)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		s.logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("shutting down", "reason", "context cancelled")
	}

	s.ready.Store(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("graceful shutdown failed", "error", err)
	}
	if err := shutdownTraces(shutdownCtx); err != nil {
		s.logger.Warn("trace shutdown failed", "error", err)
	}
	s.rateLimiter.Stop()
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	s.logger.Info("server stopped")
	return nil
}

// requestLogger logs each request with latency and status.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// maskDSN hides credentials in a connection string for logging.
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "(unparseable)"
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.Redacted()
}
