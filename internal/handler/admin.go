package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/quickai/quickai/internal/handler/dto"
	"github.com/quickai/quickai/internal/model"
	"github.com/quickai/quickai/internal/repository"
)

// PlanSetter changes a user's plan.
type PlanSetter interface {
	SetPlan(ctx context.Context, userID string, plan model.Plan) (*model.User, error)
}

// AdminHandler provides admin-only endpoints. SetPlan stands in for the
// identity provider's plan-change hook.
type AdminHandler struct {
	users  PlanSetter
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(users PlanSetter, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{users: users, logger: logger}
}

// SetPlan handles POST /api/admin/users/{user_id}/plan
// Elevating to premium resets the free usage counter.
func (h *AdminHandler) SetPlan(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_USER_ID", "user_id is required")
		return
	}

	var req dto.SetPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if err := dto.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.users.SetPlan(ctx, userID, model.Plan(req.Plan))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
			return
		}
		h.logger.Error("failed to set plan",
			"error", err,
			"user_id", userID,
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to set plan")
		return
	}

	h.logger.Info("plan changed",
		"user_id", user.ID,
		"plan", user.Plan,
	)
	writeJSON(w, http.StatusOK, dto.FromUser(user))
}
