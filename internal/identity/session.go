// Package identity adapts the external identity provider: it verifies the
// provider's session tokens and keeps the local entitlement state (plan and
// free usage) in step with what the provider reports.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quickai/quickai/internal/model"
)

// ErrInvalidToken is returned for any session token that fails verification.
var ErrInvalidToken = errors.New("invalid session token")

// Claims are the provider's session claims. The subject is the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	Plan  string `json:"plan,omitempty"`
	jwt.RegisteredClaims
}

// Session is a verified caller.
type Session struct {
	UserID string
	Email  string
	Plan   model.Plan
}

// Verifier checks HS256 session tokens signed with the shared secret.
type Verifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewVerifier creates a verifier. An empty issuer skips the iss check.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		issuer: issuer,
		leeway: 30 * time.Second,
	}
}

// Enabled reports whether a signing secret is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && len(v.secret) > 0
}

// Verify parses and validates token.
func (v *Verifier) Verify(token string) (*Session, error) {
	if !v.Enabled() {
		return nil, fmt.Errorf("%w: verifier not configured", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Session{
		UserID: claims.Subject,
		Email:  claims.Email,
		Plan:   model.ParsePlan(claims.Plan),
	}, nil
}
