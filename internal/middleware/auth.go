package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/quickai/quickai/internal/auth"
	"github.com/quickai/quickai/internal/identity"
	"github.com/quickai/quickai/internal/metrics"
	"github.com/quickai/quickai/internal/model"
)

const (
	// DefaultMinAuthDuration is the minimum time to spend on API key auth to prevent timing attacks.
	DefaultMinAuthDuration = 200 * time.Millisecond
)

// Auth results recorded in metrics.
const (
	authResultOK      = "ok"
	authResultInvalid = "invalid"
	authResultError   = "error"
)

// KeyStore looks up API keys by their public prefix.
type KeyStore interface {
	GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
}

// AuthCache caches resolved callers by credential hash.
type AuthCache interface {
	GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error)
	SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext, ttl time.Duration) error
}

// SessionVerifier validates identity-provider session tokens.
type SessionVerifier interface {
	Verify(token string) (*identity.Session, error)
}

// EntitlementReader resolves the plan for a caller.
type EntitlementReader interface {
	Sync(ctx context.Context, s *identity.Session) (model.Entitlement, error)
	Entitlement(ctx context.Context, userID string) (model.Entitlement, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger       *slog.Logger
	Keys         KeyStore
	Cache        AuthCache
	Sessions     SessionVerifier
	Entitlements EntitlementReader
	Metrics      metrics.Recorder
	// MinDuration pads API key verification. Zero uses DefaultMinAuthDuration;
	// negative disables padding.
	MinDuration time.Duration
}

// Auth returns a middleware that authenticates API requests.
// It accepts either an API key or an identity-provider session token,
// resolves the caller's plan and injects the auth context into the request.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	if cfg.MinDuration == 0 {
		cfg.MinDuration = DefaultMinAuthDuration
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := extractCredential(r)
			if credential == "" {
				logAuthFailure(cfg.Logger, r, "missing_credential")
				cfg.Metrics.IncAuth("none", authResultInvalid)
				writeAuthError(w)
				return
			}

			cacheKey := auth.CacheKey(credential)
			if authCtx, err := cfg.Cache.GetAuthContext(r.Context(), cacheKey); err != nil {
				cfg.Logger.Warn("auth cache read failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
			} else if authCtx != nil {
				cfg.Logger.Debug("authentication successful",
					slog.String("source", authCtx.Source),
					slog.String("user_id", authCtx.UserID),
					slog.Bool("cache_hit", true),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				cfg.Metrics.IncAuth(authCtx.Source, authResultOK)
				annotateUser(r.Context(), authCtx.UserID)
				next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(r.Context(), authCtx)))
				return
			}

			var (
				authCtx *model.AuthContext
				reason  string
				source  string
			)
			if auth.IsAPIKey(credential) {
				source = model.SourceAPIKey
				authCtx, reason = authenticateAPIKey(r, cfg, credential)
			} else {
				source = model.SourceSession
				authCtx, reason = authenticateSession(r, cfg, credential)
			}

			if authCtx == nil {
				logAuthFailure(cfg.Logger, r, reason)
				result := authResultInvalid
				if reason == "lookup_error" {
					result = authResultError
				}
				cfg.Metrics.IncAuth(source, result)
				writeAuthError(w)
				return
			}

			if err := cfg.Cache.SetAuthContext(r.Context(), cacheKey, authCtx, 0); err != nil {
				cfg.Logger.Warn("auth cache write failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
			}

			cfg.Logger.Info("authentication successful",
				slog.String("source", authCtx.Source),
				slog.String("key_prefix", authCtx.KeyPrefix),
				slog.String("user_id", authCtx.UserID),
				slog.String("plan", string(authCtx.Plan)),
				slog.Bool("cache_hit", false),
				slog.String("request_id", GetRequestID(r.Context())),
			)
			cfg.Metrics.IncAuth(authCtx.Source, authResultOK)
			annotateUser(r.Context(), authCtx.UserID)

			next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(r.Context(), authCtx)))
		})
	}
}

// authenticateAPIKey resolves an API key. It returns a failure reason when
// the key is not accepted.
func authenticateAPIKey(r *http.Request, cfg AuthConfig, key string) (*model.AuthContext, string) {
	startTime := time.Now()

	// Ensure consistent timing regardless of outcome
	defer func() {
		if cfg.MinDuration < 0 {
			return
		}
		if elapsed := time.Since(startTime); elapsed < cfg.MinDuration {
			time.Sleep(cfg.MinDuration - elapsed)
		}
	}()

	parsed, err := auth.ParseAPIKey(key)
	if err != nil {
		return nil, "invalid_format"
	}

	keys, err := cfg.Keys.GetAPIKeysByPrefix(r.Context(), parsed.Prefix)
	if err != nil {
		cfg.Logger.Error("database error during auth",
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(r.Context())),
		)
		return nil, "lookup_error"
	}

	// Verify against each candidate key (handles prefix collisions)
	var matched *model.APIKey
	for _, k := range keys {
		ok, err := auth.VerifyKey(key, k.KeyHash)
		if err != nil {
			continue
		}
		if ok {
			matched = k
			break
		}
	}
	if matched == nil {
		return nil, "invalid_key"
	}

	ent, err := cfg.Entitlements.Entitlement(r.Context(), matched.UserID)
	if err != nil {
		cfg.Logger.Error("entitlement lookup failed during auth",
			slog.String("error", err.Error()),
			slog.String("user_id", matched.UserID),
			slog.String("request_id", GetRequestID(r.Context())),
		)
		return nil, "lookup_error"
	}

	// last_used_at is best effort and must outlive the request
	go func(ctx context.Context, id string) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = cfg.Keys.UpdateAPIKeyLastUsed(ctx, id)
	}(context.WithoutCancel(r.Context()), matched.ID)

	return &model.AuthContext{
		Source:    model.SourceAPIKey,
		KeyID:     matched.ID,
		KeyPrefix: matched.KeyPrefix,
		UserID:    matched.UserID,
		Plan:      ent.Plan,
		Scopes:    matched.Scopes,
	}, ""
}

// authenticateSession verifies a session token and syncs the provider's
// plan into the local entitlement store.
func authenticateSession(r *http.Request, cfg AuthConfig, token string) (*model.AuthContext, string) {
	if cfg.Sessions == nil {
		return nil, "sessions_disabled"
	}
	session, err := cfg.Sessions.Verify(token)
	if err != nil {
		return nil, "invalid_token"
	}

	ent, err := cfg.Entitlements.Sync(r.Context(), session)
	if err != nil {
		cfg.Logger.Error("entitlement sync failed during auth",
			slog.String("error", err.Error()),
			slog.String("user_id", session.UserID),
			slog.String("request_id", GetRequestID(r.Context())),
		)
		return nil, "lookup_error"
	}

	return &model.AuthContext{
		Source: model.SourceSession,
		UserID: session.UserID,
		Plan:   ent.Plan,
		Scopes: model.SessionScopes,
	}, ""
}

// extractCredential extracts the credential from the request.
// Supports both "Authorization: Bearer <token>" and "X-API-Key: <key>" headers.
func extractCredential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated")
}
