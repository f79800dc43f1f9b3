package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quickai/quickai/internal/auth"
	"github.com/quickai/quickai/internal/cache"
	"github.com/quickai/quickai/internal/metrics"
	"github.com/quickai/quickai/internal/model"
	"github.com/quickai/quickai/internal/testutil"
)

func newRateLimited(t *testing.T, enabled bool) (http.Handler, *metrics.InMemoryRecorder) {
	t.Helper()
	_, client := testutil.NewMiniRedis(t)
	rec := metrics.NewInMemory()
	h := RateLimitUser(RateLimitConfig{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Limiter: cache.NewFromClient(client),
		Metrics: rec,
		Enabled: enabled,
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	return h, rec
}

func requestAs(userID string, plan model.Plan) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/ai/generate-article", nil)
	return req.WithContext(auth.ContextWithAuth(req.Context(), &model.AuthContext{UserID: userID, Plan: plan}))
}

func TestRateLimitUser_FreeBurst(t *testing.T) {
	h, rec := newRateLimited(t, true)
	burst := model.RateLimitFor(model.PlanFree).Burst

	for i := 0; i < burst; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, requestAs("user_1", model.PlanFree))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, w.Code)
		}
		if w.Header().Get("X-RateLimit-Limit") != "20" {
			t.Errorf("X-RateLimit-Limit = %q", w.Header().Get("X-RateLimit-Limit"))
		}
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestAs("user_1", model.PlanFree))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if rec.Snapshot().RateLimited != 1 {
		t.Errorf("rate limited = %d, want 1", rec.Snapshot().RateLimited)
	}

	// other users have their own bucket
	w = httptest.NewRecorder()
	h.ServeHTTP(w, requestAs("user_2", model.PlanFree))
	if w.Code != http.StatusOK {
		t.Errorf("other user: status = %d", w.Code)
	}
}

func TestRateLimitUser_PremiumBurst(t *testing.T) {
	h, _ := newRateLimited(t, true)
	burst := model.RateLimitFor(model.PlanPremium).Burst

	for i := 0; i < burst; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, requestAs("user_p", model.PlanPremium))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, w.Code)
		}
	}
}

func TestRateLimitUser_Disabled(t *testing.T) {
	h, _ := newRateLimited(t, false)

	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, requestAs("user_1", model.PlanFree))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, w.Code)
		}
	}
}
