package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/quickai/quickai/internal/auth"
	"github.com/quickai/quickai/internal/cache"
	"github.com/quickai/quickai/internal/metrics"
	"github.com/quickai/quickai/internal/model"
)

// RateLimiter consumes request tokens per user.
type RateLimiter interface {
	CheckUserRateLimit(ctx context.Context, userID string, ratePerMinute, burst int) *cache.RateLimitResult
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter RateLimiter
	Metrics metrics.Recorder
	Enabled bool
}

// RateLimitUser returns middleware that rate limits requests per user,
// with limits chosen by the caller's plan.
// Must be applied after Auth middleware.
func RateLimitUser(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			authCtx := auth.AuthFromContext(r.Context())
			if authCtx == nil {
				next.ServeHTTP(w, r)
				return
			}

			limit := model.RateLimitFor(authCtx.Plan)
			result := cfg.Limiter.CheckUserRateLimit(r.Context(), authCtx.UserID, limit.RequestsPerMinute, limit.Burst)

			setRateLimitHeaders(w, limit.RequestsPerMinute, result.Remaining, result.ResetAt)

			if !result.Allowed {
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("user_id", authCtx.UserID),
					slog.String("plan", string(authCtx.Plan)),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int64("retry_after_seconds", int64(result.RetryAfter.Seconds())),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				cfg.Metrics.IncRateLimited()

				w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
				writeRateLimitError(w, result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// setRateLimitHeaders sets standard rate limit response headers.
func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	if limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	}
}

// writeRateLimitError writes a 429 Too Many Requests response.
func writeRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
		"Too many requests. Retry after "+strconv.Itoa(int(retryAfter.Seconds()))+" seconds.")
}
