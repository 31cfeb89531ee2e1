// Package main is the entrypoint for the Tabdeck API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/tabdeck/tabdeck/internal/auth"
	"github.com/tabdeck/tabdeck/internal/cache"
	"github.com/tabdeck/tabdeck/internal/config"
	"github.com/tabdeck/tabdeck/internal/fetcher"
	"github.com/tabdeck/tabdeck/internal/handler"
	"github.com/tabdeck/tabdeck/internal/metrics"
	"github.com/tabdeck/tabdeck/internal/repository"
	"github.com/tabdeck/tabdeck/internal/server"
	"github.com/tabdeck/tabdeck/internal/service"
	"github.com/tabdeck/tabdeck/internal/unsplash"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := repository.Migrate(ctx, cfg.DatabaseURL); err != nil {
		logger.Error(
			"failed to apply migrations",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
		)
		os.Exit(1)
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		repo.Close()
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	clock := clockwork.NewRealClock()
	recorder := metrics.NewPrometheus()

	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		RegisterTTL:   cfg.RegisterTokenTTL,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	}, clock)
	if err != nil {
		logger.Error("failed to create token issuer", "error", err)
		os.Exit(1)
	}

	// Services
	authService := service.NewAuthService(repo, issuer, auth.NewPasswordHasher(cfg.BcryptCost), recorder, logger)
	quickLinksService := service.NewQuickLinksService(repo)
	imageService := service.NewImageService(repo, cacheClient, cfg.LatestImageTTL, recorder, logger)

	r := setupRouter(routerDeps{
		cfg:            cfg,
		logger:         logger,
		recorder:       recorder,
		metricsHandler: recorder.Handler(),
		limiter:        cacheClient,
		authenticator:  authService,
		health:         handler.NewHealthHandler(repo, cacheClient, logger),
		auth:           handler.NewAuthHandler(authService, logger),
		quickLinks:     handler.NewQuickLinksHandler(quickLinksService, logger),
		images:         handler.NewImageHandler(imageService, logger),
	})

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// LIFO: Redis closes before Postgres.
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})

	if cfg.FetcherEnabled() {
		client, err := unsplash.NewClient(unsplash.Config{
			AccessKey:   cfg.UnsplashAccessKey,
			BaseURL:     cfg.UnsplashBaseURL,
			HourlyLimit: cfg.UnsplashHourlyCap,
			Recorder:    recorder,
			Logger:      logger,
		})
		if err != nil {
			logger.Error("failed to create unsplash client", "error", err)
			os.Exit(1)
		}

		job := fetcher.NewJob(fetcher.JobConfig{
			Source:      client,
			Store:       repo,
			Cache:       cacheClient,
			CacheTTL:    cfg.LatestImageTTL,
			Query:       cfg.ImageQuery,
			Orientation: cfg.ImageOrientation,
			Clock:       clock,
			Recorder:    recorder,
			Logger:      logger,
		})
		scheduler := fetcher.NewScheduler(job, cfg.ImageFetchInterval, clock, logger)
		srv.Go("image-fetcher", scheduler.Run)
	} else {
		logger.Warn("image fetcher disabled", "reason", "UNSPLASH_ACCESS_KEY is not set")
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"fetcher_enabled", cfg.FetcherEnabled(),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
