package main

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/quickai/quickai/internal/config"
	"github.com/quickai/quickai/internal/identity"
	"github.com/quickai/quickai/internal/metrics"
	"github.com/quickai/quickai/internal/service"
)

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"postgres://user:secret@db:5432/quickai", "postgres://user@db:5432/quickai"},
		{"redis://:secret@cache:6379/0", "redis://redacted@cache:6379/0"},
		{"redis://cache:6379", "redis://cache:6379"},
	}

	for _, tt := range tests {
		if got := redactURL(tt.in); got != tt.want {
			t.Errorf("redactURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeError(t *testing.T) {
	dsn := "postgres://user:secret@db:5432/quickai"
	err := errors.New("dial " + dsn + " failed: password=hunter2")

	got := sanitizeError(err, dsn)
	if strings.Contains(got, "secret") || strings.Contains(got, "hunter2") {
		t.Errorf("secrets leaked: %s", got)
	}
	if sanitizeError(nil) != "" {
		t.Error("nil error should sanitize to empty string")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupRouter(t *testing.T) {
	cfg := &config.Config{
		AppEnv:             "development",
		Version:            "test",
		MaxUploadSize:      1 << 20,
		MaxRequestBodySize: 1 << 20,
	}
	r := setupRouter(routerDeps{
		cfg:          cfg,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		entitlements: identity.NewAdapter(nil, 10),
		metrics:      metrics.NewPrometheus(),
		pipeline:     service.NewPipeline(service.Deps{}),
		providers:    map[string]bool{},
	})

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"index", http.MethodGet, "/", http.StatusOK},
		{"liveness", http.MethodGet, "/healthz", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"ai requires auth", http.MethodPost, "/api/ai/generate-article", http.StatusUnauthorized},
		{"upload requires auth", http.MethodPost, "/api/ai/resume-review", http.StatusUnauthorized},
		{"creations require auth", http.MethodGet, "/api/user/get-user-creations", http.StatusUnauthorized},
		{"admin requires auth", http.MethodPost, "/api/admin/users/u1/plan", http.StatusUnauthorized},
		{"unknown route", http.MethodGet, "/nope", http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/healthz", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}")))

			if rec.Code != tt.wantStatus {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.wantStatus)
			}
		})
	}
}
