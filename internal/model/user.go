// Package model defines domain entities for the application.
package model

import "time"

// Plan is the subscription tier reported by the identity provider.
type Plan string

// Plan values.
const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// DefaultFreeUsageLimit is the number of text generations a free user gets.
const DefaultFreeUsageLimit = 10

// ParsePlan normalizes a provider plan string. Anything other than premium
// is treated as free.
func ParsePlan(s string) Plan {
	if Plan(s) == PlanPremium {
		return PlanPremium
	}
	return PlanFree
}

// IsValid reports whether p is a known plan.
func (p Plan) IsValid() bool {
	return p == PlanFree || p == PlanPremium
}

// User mirrors the identity provider's user together with locally metered usage.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Plan      Plan      `json:"plan"`
	FreeUsage int       `json:"free_usage"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Entitlement returns the user's current entitlement state.
func (u *User) Entitlement() Entitlement {
	return Entitlement{
		UserID:    u.ID,
		Plan:      u.Plan,
		FreeUsage: u.FreeUsage,
	}
}

// Entitlement is the per-user gate state read by the pipeline.
type Entitlement struct {
	UserID    string
	Plan      Plan
	FreeUsage int
}

// IsPremium reports whether the plan bypasses the free quota.
func (e Entitlement) IsPremium() bool {
	return e.Plan == PlanPremium
}

// QuotaExhausted reports whether a free user has used up limit generations.
// Premium users never exhaust the quota.
func (e Entitlement) QuotaExhausted(limit int) bool {
	return !e.IsPremium() && e.FreeUsage >= limit
}

// Remaining returns how many free generations are left, or -1 for premium.
func (e Entitlement) Remaining(limit int) int {
	if e.IsPremium() {
		return -1
	}
	if e.FreeUsage >= limit {
		return 0
	}
	return limit - e.FreeUsage
}
