// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/iamisam/codeplay-backend/internal/auth"
	"github.com/iamisam/codeplay-backend/internal/challenge"
	"github.com/iamisam/codeplay-backend/internal/config"
	"github.com/iamisam/codeplay-backend/internal/core"
	"github.com/iamisam/codeplay-backend/internal/health"
	"github.com/iamisam/codeplay-backend/internal/judge"
	"github.com/iamisam/codeplay-backend/internal/leetcode"
	"github.com/iamisam/codeplay-backend/internal/middleware"
	"github.com/iamisam/codeplay-backend/internal/problem"
	"github.com/iamisam/codeplay-backend/internal/server"
	"github.com/iamisam/codeplay-backend/internal/user"
	"github.com/iamisam/codeplay-backend/migrations"
)

const (
	drainDelay       = 5 * time.Second
	refreshPurgeTick = time.Hour
	refreshPurgeLag  = 24 * time.Hour
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		if err := core.Migrate(ctx, db.DB.DB, migrations.FS); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	redis, err := core.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "HS256",
		"access_ttl", cfg.JWT.AccessTokenExpire,
	)

	scheduler, err := core.NewScheduler(logger)
	if err != nil {
		return err
	}

	fixtures, err := problem.LoadFixtures(cfg.Catalog.FixturesPath)
	if err != nil {
		return err
	}
	catalog := problem.NewCatalog(problem.NewRepository(db.DB))
	if err := catalog.Seed(ctx, fixtures); err != nil {
		return err
	}

	leetcodeClient := leetcode.NewClient(cfg.LeetCode)
	judgeClient := judge.NewClient(cfg.Judge)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo, leetcodeClient)
	userHandler := user.NewHandler(userSvc)

	authRepo := auth.NewRepository(db.DB)
	authSvc := auth.NewService(
		authRepo,
		jwtManager,
		userSvc,
		auth.NewLogMailer(logger),
		cfg.Auth,
		logger,
	)
	authHandler := auth.NewHandler(authSvc, auth.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.IsProduction(),
	})

	challengeSvc := challenge.NewService(challenge.Deps{
		Repo:     challenge.NewRepository(db.DB),
		Users:    userSvc,
		Problems: leetcodeClient,
		Catalog:  catalog,
		Judge:    judgeClient,
		Tickets:  challenge.NewRedisTicketStore(
			redis.Client,
			redis.Namespace("judging"),
			cfg.Challenge.TicketTTL,
		),
		Deferrer: scheduler,
		Config:   cfg.Challenge,
		Logger:   logger,
	})
	challengeHandler := challenge.NewHandler(challengeSvc)

	if err := scheduler.Every(
		cfg.Challenge.SweepInterval,
		"expire-stale-challenges",
		challengeSvc.ExpireStale,
	); err != nil {
		return err
	}

	if err := scheduler.Every(
		refreshPurgeTick,
		"purge-refresh-tokens",
		func(ctx context.Context) { authSvc.PurgeExpired(ctx, refreshPurgeLag) },
	); err != nil {
		return err
	}

	scheduler.Start()

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
	)
	if !cfg.IsProduction() {
		healthHandler.WithStats(&health.StatsSource{
			DB:    db.Stats,
			Redis: redis.PoolStats,
		})
	}

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Prefix: redis.Namespace("ratelimit", "global"),
			BypassFunc: middleware.SkipPaths(
				"/healthz",
				"/livez",
				"/readyz",
			),
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	authenticator := middleware.Authenticator(jwtManager)
	submitLimiter := middleware.NewRateLimiter(
		redis.Client,
		middleware.RateLimitConfig{
			Prefix:   redis.Namespace("ratelimit", "submit"),
			Limit:    middleware.PerMinute(10, 5),
			KeyFunc:  middleware.KeyByUserAndEndpoint,
			FailOpen: true,
		},
	).Handler
	recoveryLimiter := middleware.NewRateLimiter(
		redis.Client,
		middleware.RateLimitConfig{
			Prefix:   redis.Namespace("ratelimit", "recovery"),
			Limit:    middleware.PerHour(10, 5),
			KeyFunc:  middleware.KeyByIP,
			FailOpen: true,
		},
	).Handler

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator, recoveryLimiter)
		userHandler.RegisterRoutes(r, authenticator)
		challengeHandler.RegisterRoutes(r, authenticator, submitLimiter)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := scheduler.Shutdown(); err != nil {
		logger.Error("scheduler shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
