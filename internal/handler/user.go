package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/quickai/quickai/internal/auth"
	"github.com/quickai/quickai/internal/handler/dto"
	"github.com/quickai/quickai/internal/model"
	"github.com/quickai/quickai/internal/repository"
)

const defaultPageSize = 20

// CreationLister reads the usage ledger.
type CreationLister interface {
	ListCreationsByUser(ctx context.Context, userID, cursor string, limit int) ([]*model.Creation, string, error)
	ListPublishedCreations(ctx context.Context, cursor string, limit int) ([]*model.Creation, string, error)
}

// EntitlementSource reports a user's plan and quota.
type EntitlementSource interface {
	Entitlement(ctx context.Context, userID string) (model.Entitlement, error)
	Limit() int
}

// UserHandler serves /api/user routes.
type UserHandler struct {
	creations    CreationLister
	entitlements EntitlementSource
	logger       *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(creations CreationLister, entitlements EntitlementSource, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{creations: creations, entitlements: entitlements, logger: logger}
}

// GetUserCreations handles GET /api/user/get-user-creations
func (h *UserHandler) GetUserCreations(w http.ResponseWriter, r *http.Request) {
	q, ok := parseListQuery(w, r)
	if !ok {
		return
	}
	userID := auth.UserIDFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	creations, next, err := h.creations.ListCreationsByUser(ctx, userID, q.Cursor, q.Limit)
	h.writeCreations(w, creations, next, err, "user_id", userID)
}

// GetPublishedCreations handles GET /api/user/get-published-creations
func (h *UserHandler) GetPublishedCreations(w http.ResponseWriter, r *http.Request) {
	q, ok := parseListQuery(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	creations, next, err := h.creations.ListPublishedCreations(ctx, q.Cursor, q.Limit)
	h.writeCreations(w, creations, next, err)
}

// GetEntitlement handles GET /api/user/entitlement
func (h *UserHandler) GetEntitlement(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	ent, err := h.entitlements.Entitlement(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to read entitlement", "error", err, "user_id", userID)
		writeAIFailure(w, "Unable to load your plan.")
		return
	}

	limit := h.entitlements.Limit()
	writeJSON(w, http.StatusOK, dto.EntitlementResponse{
		Success:   true,
		Plan:      string(ent.Plan),
		FreeUsage: ent.FreeUsage,
		FreeLimit: limit,
		Remaining: ent.Remaining(limit),
	})
}

func (h *UserHandler) writeCreations(w http.ResponseWriter, creations []*model.Creation, next string, err error, attrs ...any) {
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			writeError(w, http.StatusBadRequest, "INVALID_CURSOR", "invalid cursor")
			return
		}
		h.logger.Error("failed to list creations", append(attrs, "error", err)...)
		writeAIFailure(w, "Failed to load creations.")
		return
	}

	resp := dto.CreationListResponse{
		Success:    true,
		Creations:  make([]dto.CreationResponse, 0, len(creations)),
		NextCursor: next,
	}
	for _, c := range creations {
		resp.Creations = append(resp.Creations, dto.FromCreation(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseListQuery(w http.ResponseWriter, r *http.Request) (dto.ListCreationsQuery, bool) {
	q := dto.ListCreationsQuery{
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  defaultPageSize,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a number")
			return q, false
		}
		q.Limit = n
	}
	if err := dto.Validate(q); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_LIMIT", err.Error())
		return q, false
	}
	return q, true
}
