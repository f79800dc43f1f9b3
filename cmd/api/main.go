// Package main is the entrypoint for the QuickAI API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/quickai/quickai/internal/cache"
	"github.com/quickai/quickai/internal/config"
	"github.com/quickai/quickai/internal/document"
	"github.com/quickai/quickai/internal/identity"
	"github.com/quickai/quickai/internal/imaging"
	"github.com/quickai/quickai/internal/llm"
	"github.com/quickai/quickai/internal/metrics"
	"github.com/quickai/quickai/internal/repository"
	"github.com/quickai/quickai/internal/server"
	"github.com/quickai/quickai/internal/service"
	"github.com/quickai/quickai/internal/upstream"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	sentryEnabled := false
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.AppEnv,
			Release:     cfg.Version,
		}); err != nil {
			logger.Warn("failed to initialize sentry", "error", err)
		} else {
			sentryEnabled = true
			logger.Info("sentry enabled")
		}
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxConns: cfg.DatabaseMaxConns,
		MinConns: cfg.DatabaseMinConns,
	})
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

	recorder := metrics.NewPrometheus()
	entitlements := identity.NewAdapter(repo, cfg.FreeUsageLimit)

	var sessions *identity.Verifier
	if v := identity.NewVerifier(cfg.IdentityJWTSecret, cfg.IdentityIssuer); v.Enabled() {
		sessions = v
	} else {
		logger.Warn("IDENTITY_JWT_SECRET not set; only API keys are accepted")
	}

	deps, providers, err := buildPipelineDeps(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize providers", "error", err)
		repo.Close()
		_ = cacheClient.Close()
		os.Exit(1)
	}
	deps.Ledger = repo
	deps.Entitlements = entitlements
	deps.Metrics = recorder
	deps.Logger = logger
	pipeline := service.NewPipeline(deps)

	r := setupRouter(routerDeps{
		cfg:          cfg,
		logger:       logger,
		repo:         repo,
		cache:        cacheClient,
		sessions:     sessions,
		entitlements: entitlements,
		metrics:      recorder,
		pipeline:     pipeline,
		providers:    providers,
	})

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// LIFO: Sentry flushes first, then Redis, then Postgres.
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})
	if sentryEnabled {
		srv.OnShutdown("sentry", func(context.Context) error {
			sentry.Flush(2 * time.Second)
			return nil
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"version", cfg.Version,
		"providers", providers,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// buildPipelineDeps constructs the upstream clients. Image providers are
// optional; operations that need a missing one fail as upstream errors.
func buildPipelineDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Deps, map[string]bool, error) {
	httpClient := upstream.NewHTTPClient()
	providers := map[string]bool{}

	deps := service.Deps{
		Completer: llm.New(llm.Config{
			APIKey:     cfg.OpenRouterAPIKey,
			BaseURL:    cfg.OpenRouterBaseURL,
			Model:      cfg.CompletionModel,
			HTTPClient: httpClient,
		}, logger),
		Extractor: document.NewPDFExtractor(cfg.UploadDir, cfg.MaxUploadSize, logger),
	}
	providers["completion"] = cfg.OpenRouterAPIKey != ""

	if cfg.ClipdropAPIKey != "" {
		deps.Generator = imaging.NewClipdropGenerator(cfg.ClipdropBaseURL, cfg.ClipdropAPIKey, httpClient, logger)
	}
	providers["image_generation"] = deps.Generator != nil

	if cfg.CloudinaryConfigured() {
		editor, err := imaging.NewCloudinaryEditor(imaging.CloudinaryConfig{
			URL:       cfg.CloudinaryURL,
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
		}, logger)
		if err != nil {
			return service.Deps{}, nil, err
		}
		deps.Editor = editor
		deps.Store = editor
	}
	providers["image_edit"] = deps.Editor != nil

	if cfg.S3Bucket != "" {
		store, err := imaging.NewS3Store(ctx, imaging.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			return service.Deps{}, nil, err
		}
		deps.Store = store
	}
	providers["object_store"] = deps.Store != nil

	return deps, providers, nil
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

	logger := slog.New(h).With("service", "quickai")
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
