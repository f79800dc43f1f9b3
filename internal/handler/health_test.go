package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// mockHealthChecker is a mock implementation of HealthChecker for testing.
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) Ping(ctx context.Context) error {
	return m.err
}

func TestHealthHandler_Healthz(t *testing.T) {
	h := NewHealthHandler(nil, nil)

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got %s", response.Status)
	}
}

func TestHealthHandler_Readyz(t *testing.T) {
	tests := []struct {
		name       string
		checks     []HealthCheck
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name: "all healthy",
			checks: []HealthCheck{
				{Name: "postgres", Checker: &mockHealthChecker{}},
				{Name: "redis", Checker: &mockHealthChecker{}},
			},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"postgres": "ok", "redis": "ok"},
		},
		{
			name: "database down",
			checks: []HealthCheck{
				{Name: "postgres", Checker: &mockHealthChecker{err: errors.New("connection refused")}},
				{Name: "redis", Checker: &mockHealthChecker{}},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"postgres": "error", "redis": "ok"},
		},
		{
			name: "unconfigured dependency",
			checks: []HealthCheck{
				{Name: "postgres", Checker: &mockHealthChecker{}},
				{Name: "redis"},
			},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"postgres": "ok", "redis": "not configured"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(nil, map[string]bool{"completion": true, "image_generation": false}, tt.checks...)

			rec := httptest.NewRecorder()
			h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var response HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			for name, want := range tt.wantChecks {
				if response.Checks[name] != want {
					t.Errorf("check %s = %q, want %q", name, response.Checks[name], want)
				}
			}
			if !response.Providers["completion"] {
				t.Error("providers not reported")
			}
		})
	}
}
