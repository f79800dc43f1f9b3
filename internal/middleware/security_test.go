package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecurity(t *testing.T) {
	tests := []struct {
		name   string
		isDev  bool
		header string
		want   string
	}{
		{"nosniff", false, "X-Content-Type-Options", "nosniff"},
		{"frame options", false, "X-Frame-Options", "DENY"},
		{"csp", false, "Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
		{"no store", true, "Cache-Control", "no-store"},
		{"hsts in production", false, "Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload"},
		{"no hsts in development", true, "Strict-Transport-Security", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Security(tt.isDev)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			if got := rec.Header().Get(tt.header); got != tt.want {
				t.Errorf("header %s = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestMaxBodySize(t *testing.T) {
	tests := []struct {
		name          string
		maxBytes      int64
		contentLength int64
		body          string
		wantStatus    int
	}{
		{"small body allowed", 1024, 10, "small body", http.StatusOK},
		{"declared length over limit", 10, 100, strings.Repeat("x", 100), http.StatusRequestEntityTooLarge},
		{"streamed body over limit", 10, -1, strings.Repeat("x", 100), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := MaxBodySize(tt.maxBytes)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if _, err := io.Copy(io.Discard, r.Body); err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestMaxBodySize_ErrorEnvelope(t *testing.T) {
	handler := MaxBodySize(1)(http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too big"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Code != "PAYLOAD_TOO_LARGE" {
		t.Errorf("unexpected body: %+v", body)
	}
}
