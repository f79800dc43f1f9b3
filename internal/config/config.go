// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`
	Version string `env:"APP_VERSION" envDefault:"dev"`

	// Database (PostgreSQL)
	DatabaseURL      string `env:"DATABASE_URL,required"`
	DatabaseMaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	DatabaseMinConns int32  `env:"DATABASE_MIN_CONNS" envDefault:"2"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Error reporting. Empty disables Sentry.
	SentryDSN string `env:"SENTRY_DSN"`

	// Server timeouts. Image and resume calls are slow, so the write timeout
	// must cover UpstreamTimeout.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"90s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"60s"`

	// Completion (OpenRouter, OpenAI-compatible)
	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	CompletionModel   string `env:"COMPLETION_MODEL" envDefault:"mistralai/mistral-7b-instruct:free"`

	// Image generation (ClipDrop)
	ClipdropAPIKey  string `env:"CLIPDROP_API_KEY"`
	ClipdropBaseURL string `env:"CLIPDROP_BASE_URL" envDefault:"https://clipdrop-api.co/text-to-image/v1"`

	// Image editing (Cloudinary). CLOUDINARY_URL wins over the split fields.
	CloudinaryURL       string `env:"CLOUDINARY_URL"`
	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder    string `env:"CLOUDINARY_FOLDER" envDefault:"quickai"`

	// Generated image storage. When S3Bucket is empty, Cloudinary hosts images.
	S3Bucket           string `env:"S3_BUCKET"`
	S3Region           string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint         string `env:"S3_ENDPOINT"`
	S3PublicBaseURL    string `env:"S3_PUBLIC_BASE_URL"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	// Identity provider session tokens. Empty secret disables session auth.
	IdentityJWTSecret string `env:"IDENTITY_JWT_SECRET"`
	IdentityIssuer    string `env:"IDENTITY_ISSUER"`

	// Free tier
	FreeUsageLimit int `env:"FREE_USAGE_LIMIT" envDefault:"10"`

	// Uploads
	UploadDir     string `env:"UPLOAD_DIR"`
	MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"`

	// Rate limiting
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://*.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit for JSON routes in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// KeyEnv returns the environment marker embedded in new API keys.
func (c *Config) KeyEnv() string {
	if c.IsProduction() {
		return "live"
	}
	return "test"
}

// CloudinaryConfigured reports whether Cloudinary credentials are present.
func (c *Config) CloudinaryConfigured() bool {
	if c.CloudinaryURL != "" {
		return true
	}
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing or values are out of range.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.FreeUsageLimit < 0 {
		return nil, fmt.Errorf("FREE_USAGE_LIMIT must not be negative, got %d", cfg.FreeUsageLimit)
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_SIZE must be positive, got %d", cfg.MaxUploadSize)
	}
	return cfg, nil
}
