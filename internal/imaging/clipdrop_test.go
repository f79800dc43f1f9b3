package imaging

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quickai/quickai/internal/upstream"
)

func TestClipdropGenerator_Generate(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("x-api-key"); got != "clip-key" {
			t.Errorf("x-api-key = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("prompt"); got != "a red fox" {
			t.Errorf("prompt = %q", got)
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	g := NewClipdropGenerator(srv.URL, "clip-key", srv.Client(), nil)
	data, err := g.Generate(context.Background(), "a red fox")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if string(data) != string(png) {
		t.Errorf("Generate() returned %q", data)
	}
}

func TestClipdropGenerator_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = io.WriteString(w, `{"error": "Your account has no remaining credits"}`)
	}))
	defer srv.Close()

	g := NewClipdropGenerator(srv.URL, "clip-key", srv.Client(), nil)
	_, err := g.Generate(context.Background(), "a red fox")
	if !errors.Is(err, upstream.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if msg := upstream.MessageOf(err, ""); msg != "Your account has no remaining credits" {
		t.Errorf("message = %q", msg)
	}
}

func TestClipdropGenerator_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := NewClipdropGenerator(srv.URL, "clip-key", srv.Client(), nil)
	_, err := g.Generate(context.Background(), "nothing")
	if !errors.Is(err, ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage, got %v", err)
	}
}

func TestClipdropGenerator_NotConfigured(t *testing.T) {
	g := NewClipdropGenerator("", "", nil, nil)
	if _, err := g.Generate(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestClipdropErrorMessage(t *testing.T) {
	tests := []struct {
		body   string
		status int
		want   string
	}{
		{`{"error":"bad prompt"}`, 400, "bad prompt"},
		{`rate limited`, 429, "rate limited"},
		{``, 500, "Internal Server Error"},
	}
	for _, tt := range tests {
		if got := clipdropErrorMessage([]byte(tt.body), tt.status); got != tt.want {
			t.Errorf("clipdropErrorMessage(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
