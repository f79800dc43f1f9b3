package model

import (
	"slices"
	"time"
)

// Scope constants for credential authorization.
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
	ScopeAdmin = "admin"
)

// ValidScopes contains all valid scope values.
var ValidScopes = []string{ScopeRead, ScopeWrite, ScopeAdmin}

// SessionScopes are granted to identity-provider session tokens.
var SessionScopes = []string{ScopeRead, ScopeWrite}

// Credential sources recorded on the auth context.
const (
	SourceAPIKey  = "api_key"
	SourceSession = "session"
)

// RateLimitConfig defines rate limit parameters per plan.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// PlanRateLimits maps plans to their request rate limits.
var PlanRateLimits = map[Plan]RateLimitConfig{
	PlanFree:    {RequestsPerMinute: 20, Burst: 5},
	PlanPremium: {RequestsPerMinute: 120, Burst: 20},
}

// RateLimitFor returns the rate limit for a plan, falling back to free.
func RateLimitFor(plan Plan) RateLimitConfig {
	if cfg, ok := PlanRateLimits[plan]; ok {
		return cfg
	}
	return PlanRateLimits[PlanFree]
}

// APIKey is a long-lived credential owned by a user.
type APIKey struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	KeyHash    string     `json:"-"`
	KeyPrefix  string     `json:"key_prefix"`
	Scopes     []string   `json:"scopes"`
	Name       string     `json:"name,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IsRevoked returns true if the key has been revoked.
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// HasScope checks if the key has a specific scope.
// Admin scope implies all other scopes.
func (k *APIKey) HasScope(scope string) bool {
	return hasScope(k.Scopes, scope)
}

// AuthContext holds the resolved caller identity.
// It is injected into the request context by auth middleware.
type AuthContext struct {
	Source    string
	KeyID     string
	KeyPrefix string
	UserID    string
	Plan      Plan
	Scopes    []string
}

// HasScope checks if the auth context has a specific scope.
func (a *AuthContext) HasScope(scope string) bool {
	return hasScope(a.Scopes, scope)
}

func hasScope(scopes []string, scope string) bool {
	if slices.Contains(scopes, ScopeAdmin) {
		return true
	}
	return slices.Contains(scopes, scope)
}

// APIKeyCreateRequest represents a request to create a new API key.
type APIKeyCreateRequest struct {
	Name   string   `json:"name,omitempty" validate:"max=100"`
	Scopes []string `json:"scopes" validate:"dive,oneof=read write admin"`
}

// APIKeyResponse represents an API key without secrets.
type APIKeyResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name,omitempty"`
	KeyPrefix  string     `json:"key_prefix"`
	Scopes     []string   `json:"scopes"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	Revoked    bool       `json:"revoked"`
}

// ToResponse converts an APIKey to APIKeyResponse.
func (k *APIKey) ToResponse() APIKeyResponse {
	return APIKeyResponse{
		ID:         k.ID,
		Name:       k.Name,
		KeyPrefix:  k.KeyPrefix,
		Scopes:     k.Scopes,
		CreatedAt:  k.CreatedAt,
		LastUsedAt: k.LastUsedAt,
		Revoked:    k.IsRevoked(),
	}
}

// APIKeyCreateResponse includes the plaintext key, shown only once.
type APIKeyCreateResponse struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name,omitempty"`
	KeyPrefix string    `json:"key_prefix"`
	Scopes    []string  `json:"scopes"`
	CreatedAt time.Time `json:"created_at"`
}

// APIKeyRotateResponse reports a rotation: the revoked key and its replacement.
type APIKeyRotateResponse struct {
	OldKeyID        string               `json:"old_key_id"`
	OldKeyRevokedAt time.Time            `json:"old_key_revoked_at"`
	NewKey          APIKeyCreateResponse `json:"new_key"`
}
