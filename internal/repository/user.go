package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/quickai/quickai/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrFreeUsageExhausted = errors.New("free usage exhausted")
)

const userColumns = `id, email, plan, free_usage, created_at, updated_at`

// EnsureUser upserts the identity provider's view of a user. A transition to
// premium resets free_usage to zero. An empty email keeps the stored one.
func (r *Repository) EnsureUser(ctx context.Context, id, email string, plan model.Plan) (*model.User, error) {
	query := `
		INSERT INTO users (id, email, plan, free_usage, created_at, updated_at)
		VALUES ($1, $2, $3, 0, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
			free_usage = CASE
				WHEN EXCLUDED.plan = 'premium' AND users.plan <> 'premium' THEN 0
				ELSE users.free_usage
			END,
			plan = EXCLUDED.plan,
			updated_at = CASE
				WHEN users.plan <> EXCLUDED.plan OR (EXCLUDED.email <> '' AND users.email <> EXCLUDED.email) THEN NOW()
				ELSE users.updated_at
			END
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, id, email, string(plan)))
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// GetEntitlement returns the gate state for a user.
func (r *Repository) GetEntitlement(ctx context.Context, id string) (model.Entitlement, error) {
	user, err := r.GetUserByID(ctx, id)
	if err != nil {
		return model.Entitlement{}, err
	}
	return user.Entitlement(), nil
}

// ConsumeFreeUsage increments free_usage only while it is below limit and
// returns the new value. Concurrent callers can never push the counter past
// limit; the loser gets ErrFreeUsageExhausted. Unknown users get the same.
func (r *Repository) ConsumeFreeUsage(ctx context.Context, userID string, limit int) (int, error) {
	query := `
		UPDATE users
		SET free_usage = free_usage + 1, updated_at = NOW()
		WHERE id = $1 AND free_usage < $2
		RETURNING free_usage
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, limit).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrFreeUsageExhausted
		}
		return 0, fmt.Errorf("failed to consume free usage: %w", err)
	}
	return count, nil
}

// SetPlan changes a user's plan. Upgrading to premium resets free_usage.
func (r *Repository) SetPlan(ctx context.Context, userID string, plan model.Plan) (*model.User, error) {
	query := `
		UPDATE users
		SET free_usage = CASE WHEN $2 = 'premium' AND plan <> 'premium' THEN 0 ELSE free_usage END,
			plan = $2,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, userID, string(plan)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to set plan: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		user model.User
		plan string
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&plan,
		&user.FreeUsage,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Plan = model.ParsePlan(plan)
	return &user, nil
}
