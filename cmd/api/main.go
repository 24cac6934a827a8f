// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pressly/goose/v3"

	"github.com/carterperez-dev/stockease/internal/admin"
	"github.com/carterperez-dev/stockease/internal/auth"
	"github.com/carterperez-dev/stockease/internal/config"
	"github.com/carterperez-dev/stockease/internal/core"
	"github.com/carterperez-dev/stockease/internal/health"
	"github.com/carterperez-dev/stockease/internal/inventory"
	"github.com/carterperez-dev/stockease/internal/mail"
	"github.com/carterperez-dev/stockease/internal/middleware"
	"github.com/carterperez-dev/stockease/internal/registration"
	"github.com/carterperez-dev/stockease/internal/server"
	"github.com/carterperez-dev/stockease/internal/user"
	"github.com/carterperez-dev/stockease/migrations"
)

const drainDelay = 5 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	createAdmin := flag.Bool(
		"create-admin",
		false,
		"create an admin account from ADMIN_EMAIL/ADMIN_PASSWORD and exit",
	)
	flag.Parse()

	if err := run(*configPath, *createAdmin); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string, createAdmin bool) error {
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

	if err := runMigrations(db, logger); err != nil {
		return err
	}

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)

	if createAdmin {
		return provisionAdmin(ctx, userSvc, logger)
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	kv := core.NewRedisKV(redis.Client)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	mailer, err := mail.NewSender(cfg.Mail, logger)
	if err != nil {
		return err
	}

	validate := core.NewValidator()

	authRepo := auth.NewRepository(db.DB)
	authSvc := auth.NewService(authRepo, jwtManager, userSvc, kv)
	authHandler := auth.NewHandler(authSvc, validate, logger)

	userHandler := user.NewHandler(userSvc, validate, logger)

	regStore := registration.NewStore(kv, cfg.Registration.SessionTTL)
	regSvc := registration.NewService(regStore, userSvc, mailer, logger)
	regHandler := registration.NewHandler(regSvc, authSvc, validate, logger)

	productRepo := inventory.NewRepository(db.DB)
	productCache := inventory.NewCache(kv, logger)
	productSvc := inventory.NewService(productRepo, productCache)
	productHandler := inventory.NewHandler(productSvc, validate, logger)

	healthHandler := health.NewHandler(
		cfg.App.Version,
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		KV:         kv,
		Sessions:   authRepo,
	})

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

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(jwtManager, authSvc)

	router.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			regHandler.Routes(r)
			authHandler.PublicRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(authenticator)
				authHandler.ProtectedRoutes(r)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authenticator)
			userHandler.Routes(r)
		})

		r.Route("/products", func(r chi.Router) {
			r.Use(authenticator)
			productHandler.Routes(r)
		})

		adminHandler.RegisterRoutes(r, authenticator, middleware.RequireAdmin)
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

func runMigrations(db *core.Database, logger *slog.Logger) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}

	if err := goose.Up(db.DB.DB, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, err := goose.GetDBVersion(db.DB.DB)
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}

	logger.Info("database migrated", "version", version)
	return nil
}

func provisionAdmin(
	ctx context.Context,
	users *user.Service,
	logger *slog.Logger,
) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")

	if email == "" || password == "" {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}

	u, err := users.CreateAdmin(ctx, email, password)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return fmt.Errorf("admin account %q already exists", email)
		}
		return err
	}

	logger.Info("admin account created", "id", u.ID, "email", u.Email)
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
