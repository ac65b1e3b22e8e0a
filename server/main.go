package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"net/http/httputil"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gatehouse-dev/gatehouse/pkg/config"
	"github.com/gatehouse-dev/gatehouse/pkg/engine"
	"github.com/gatehouse-dev/gatehouse/pkg/ratelimit"
	"github.com/gatehouse-dev/gatehouse/pkg/telemetry"
)

var (
	listen     = flag.String("listen", "", "Listen address (overrides config)")
	configPath = flag.String("config", "gatehouse.yaml", "Config file path")
	dbPath     = flag.String("db", "", "Database path (overrides config)")
	Version    = "dev"
)

// Server wires the admission gates, the device-flow pages, and the upstream
// proxy around one shared reputation store and rate limiter registry.
type Server struct {
	db        *gorm.DB
	cfg       *config.Config
	logger    zerolog.Logger
	attempts  *AttemptLog
	blacklist blacklistChecker
	whitelist whitelistValidator
	limits    *ratelimit.Registry
	engine    consentFetcher
	proxy     *httputil.ReverseProxy
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		println("failed to load config:", err.Error())
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	logger := newLogger(cfg.Logging)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger.Info().Str("version", Version).Msg("gatehouse starting")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := telemetry.Setup(ctx, "gatehouse", Version, telemetry.Options{
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		LogSpans:    cfg.Tracing.LogSpans,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up tracing")
	}
	defer provider.Shutdown(context.Background())

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	if err := db.AutoMigrate(&BlacklistEntry{}, &WhitelistRule{}, &AccessAttempt{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate schema")
	}

	reputation := NewReputationStore(db)
	limits := ratelimit.NewRegistry(
		cfg.DeviceRate.Requests,
		time.Duration(cfg.DeviceRate.WindowSeconds)*time.Second,
		time.Duration(cfg.DeviceRate.AcquireTimeoutMs)*time.Millisecond,
	)

	srv := &Server{
		db:        db,
		cfg:       cfg,
		logger:    logger,
		attempts:  NewAttemptLog(db, logger, 0),
		blacklist: reputation,
		whitelist: reputation,
		limits:    limits,
		engine: engine.NewClient(
			cfg.Upstream.URL,
			cfg.Upstream.APIToken,
			time.Duration(cfg.Upstream.RequestTimeout)*time.Second,
			engine.RetryPolicy{
				InitialMs:   cfg.Upstream.RetryInitialMs,
				MaxMs:       cfg.Upstream.RetryMaxMs,
				MaxAttempts: cfg.Upstream.RetryMaxTries,
			},
		),
	}

	srv.proxy, err = newUpstreamProxy(cfg.Upstream.URL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid upstream URL")
	}

	go srv.runCleanup(ctx, time.Duration(cfg.Cleanup.IntervalSeconds)*time.Second)

	r := gin.New()
	r.Use(gin.Recovery())
	srv.registerRoutes(r)

	httpServer := &http.Server{Addr: cfg.Listen, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("listen", cfg.Listen).Str("upstream", cfg.Upstream.URL).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("gatehouse stopped")
}

func (s *Server) registerRoutes(r *gin.Engine) {
	r.Use(
		withRequestContext(s.logger),
		s.blacklistGate(),
		s.whitelistGate(),
		s.deviceRateGate(),
		s.admissionAudit(),
	)

	r.GET("/v1/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": Version})
	})

	s.registerDeviceRoutes(r)
	s.registerAdminRoutes(r)

	r.GET("/oauth2/consent", s.handleConsent)
	r.GET(deviceAuthorizationPath, s.proxyUpstream)
	r.GET(deviceVerificationPath, s.proxyUpstream)
	r.POST(deviceVerificationPath, s.proxyUpstream)
	r.GET("/oauth2/authorize", s.proxyUpstream)
	r.POST("/oauth2/token", s.proxyUpstream)

	// Anything else the engine serves passes through the same gates.
	r.NoRoute(s.proxyUpstream)
}

// runCleanup periodically evicts idle rate limiter entries and prunes old
// audit rows. Failures are logged and skipped; the next tick retries.
func (s *Server) runCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := s.limits.Sweep()
			if evicted > 0 {
				s.logger.Debug().Int("evicted", evicted).Msg("rate limiter sweep")
			}
			if err := s.attempts.Prune(); err != nil {
				s.logger.Error().Err(err).Msg("attempt log prune failed")
			}
		}
	}
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.DurationFieldUnit = time.Millisecond

	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level))); err == nil && cfg.Level != "" {
		level = parsed
	}

	var logger zerolog.Logger
	if cfg.JSON {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		logger = zerolog.New(writer).With().Timestamp().Logger()
	}
	return logger.Level(level)
}
