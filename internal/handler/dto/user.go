package dto

import (
	"time"

	"github.com/quickai/quickai/internal/model"
)

// CreationResponse is one ledger row.
type CreationResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Prompt    string    `json:"prompt"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Publish   bool      `json:"publish"`
	CreatedAt time.Time `json:"created_at"`
}

// CreationListResponse is a page of creations.
type CreationListResponse struct {
	Success    bool               `json:"success"`
	Creations  []CreationResponse `json:"creations"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

// ListCreationsQuery holds paging parameters.
type ListCreationsQuery struct {
	Cursor string
	Limit  int `validate:"min=1,max=100"`
}

// EntitlementResponse reports the caller's plan and free usage.
type EntitlementResponse struct {
	Success   bool   `json:"success"`
	Plan      string `json:"plan"`
	FreeUsage int    `json:"free_usage"`
	FreeLimit int    `json:"free_limit"`
	Remaining int    `json:"remaining"`
}

// SetPlanRequest is the body of POST /api/admin/users/{user_id}/plan.
type SetPlanRequest struct {
	Plan string `json:"plan" validate:"required,oneof=free premium"`
}

// UserResponse is a user as seen by admins.
type UserResponse struct {
	Success   bool      `json:"success"`
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Plan      string    `json:"plan"`
	FreeUsage int       `json:"free_usage"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromCreation converts a ledger row.
func FromCreation(c *model.Creation) CreationResponse {
	return CreationResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		Prompt:    c.Prompt,
		Content:   c.Content,
		Type:      string(c.Type),
		Publish:   c.Publish,
		CreatedAt: c.CreatedAt,
	}
}

// FromUser converts a user.
func FromUser(u *model.User) UserResponse {
	return UserResponse{
		Success:   true,
		ID:        u.ID,
		Email:     u.Email,
		Plan:      string(u.Plan),
		FreeUsage: u.FreeUsage,
		UpdatedAt: u.UpdatedAt,
	}
}
