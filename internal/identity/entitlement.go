package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/quickai/quickai/internal/model"
	"github.com/quickai/quickai/internal/repository"
)

// Entitlement errors.
var (
	ErrUnknownUser    = errors.New("unknown user")
	ErrQuotaExhausted = errors.New("free usage quota exhausted")
)

// Store persists users and their free usage counters.
type Store interface {
	EnsureUser(ctx context.Context, id, email string, plan model.Plan) (*model.User, error)
	GetEntitlement(ctx context.Context, id string) (model.Entitlement, error)
	ConsumeFreeUsage(ctx context.Context, userID string, limit int) (int, error)
}

// Adapter answers entitlement questions for the request pipeline.
type Adapter struct {
	store Store
	limit int
}

// NewAdapter creates an adapter enforcing limit free generations.
func NewAdapter(store Store, limit int) *Adapter {
	if limit <= 0 {
		limit = model.DefaultFreeUsageLimit
	}
	return &Adapter{store: store, limit: limit}
}

// Limit is the free generation allowance.
func (a *Adapter) Limit() int {
	return a.limit
}

// Sync records the plan the provider reported for a verified session.
// Moving to premium resets the free usage counter.
func (a *Adapter) Sync(ctx context.Context, s *Session) (model.Entitlement, error) {
	u, err := a.store.EnsureUser(ctx, s.UserID, s.Email, s.Plan)
	if err != nil {
		return model.Entitlement{}, fmt.Errorf("sync user: %w", err)
	}
	return u.Entitlement(), nil
}

// Entitlement reads the current plan and free usage for userID.
func (a *Adapter) Entitlement(ctx context.Context, userID string) (model.Entitlement, error) {
	ent, err := a.store.GetEntitlement(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.Entitlement{}, ErrUnknownUser
		}
		return model.Entitlement{}, fmt.Errorf("read entitlement: %w", err)
	}
	return ent, nil
}

// Consume counts one free generation for userID and returns the new count.
// It fails with ErrQuotaExhausted once the limit is reached.
func (a *Adapter) Consume(ctx context.Context, userID string) (int, error) {
	n, err := a.store.ConsumeFreeUsage(ctx, userID, a.limit)
	if err != nil {
		if errors.Is(err, repository.ErrFreeUsageExhausted) {
			return 0, ErrQuotaExhausted
		}
		return 0, fmt.Errorf("consume free usage: %w", err)
	}
	return n, nil
}
