package auth

import (
	"context"

	"github.com/quickai/quickai/internal/model"
)

type contextKey string

const authContextKey contextKey = "auth_context"

// ContextWithAuth adds the resolved caller to ctx.
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// AuthFromContext returns the caller, or nil outside authenticated routes.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	auth, ok := ctx.Value(authContextKey).(*model.AuthContext)
	if !ok {
		return nil
	}
	return auth
}

// UserIDFromContext returns the caller's user id, or "" when unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	if auth := AuthFromContext(ctx); auth != nil {
		return auth.UserID
	}
	return ""
}

// PlanFromContext returns the plan resolved at authentication time. Callers
// that gate on the plan should re-read it from the entitlement store.
func PlanFromContext(ctx context.Context) model.Plan {
	if auth := AuthFromContext(ctx); auth != nil && auth.Plan != "" {
		return auth.Plan
	}
	return model.PlanFree
}
