package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/quickai/quickai/internal/auth"
	"github.com/quickai/quickai/internal/handler/dto"
	"github.com/quickai/quickai/internal/model"
	"github.com/quickai/quickai/internal/repository"
)

// APIKeyStore persists API keys. Lookups and revocation are scoped to the owner.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKeyByID(ctx context.Context, userID, id string) (*model.APIKey, error)
	ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error)
	RevokeAPIKey(ctx context.Context, userID, id string) error
}

// APIKeyHandler handles API key management endpoints.
type APIKeyHandler struct {
	logger *slog.Logger
	keys   APIKeyStore
	env    string
}

// NewAPIKeyHandler creates a new APIKeyHandler. env selects the key
// environment marker (auth.EnvLive or auth.EnvTest).
func NewAPIKeyHandler(logger *slog.Logger, keys APIKeyStore, env string) *APIKeyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIKeyHandler{logger: logger, keys: keys, env: env}
}

// CreateAPIKey handles POST /api/user/api-keys
func (h *APIKeyHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := auth.AuthFromContext(ctx)
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated")
		return
	}

	var req model.APIKeyCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if err := dto.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_SCOPE", err.Error())
		return
	}

	if len(req.Scopes) == 0 {
		req.Scopes = []string{model.ScopeRead, model.ScopeWrite}
	}
	// A key never grants more than the credential that minted it.
	for _, scope := range req.Scopes {
		if !authCtx.HasScope(scope) {
			writeError(w, http.StatusForbidden, "INSUFFICIENT_SCOPE", "cannot grant scope: "+scope)
			return
		}
	}

	key, plaintext, err := h.mint(ctx, authCtx.UserID, req.Name, req.Scopes)
	if err != nil {
		h.logger.Error("failed to create API key", "error", err, "user_id", authCtx.UserID)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create API key")
		return
	}

	h.logger.Info("API key created",
		"key_id", key.ID,
		"key_prefix", key.KeyPrefix,
		"user_id", key.UserID,
	)
	writeJSON(w, http.StatusCreated, createResponse(key, plaintext))
}

// ListAPIKeys handles GET /api/user/api-keys
func (h *APIKeyHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := auth.AuthFromContext(ctx)
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated")
		return
	}

	keys, err := h.keys.ListAPIKeysByUserID(ctx, authCtx.UserID)
	if err != nil {
		h.logger.Error("failed to list API keys", "error", err, "user_id", authCtx.UserID)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list API keys")
		return
	}

	responses := make([]model.APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, key.ToResponse())
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "keys": responses})
}

// RevokeAPIKey handles DELETE /api/user/api-keys/{key_id}
func (h *APIKeyHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := auth.AuthFromContext(ctx)
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated")
		return
	}

	keyID := r.PathValue("key_id")
	if keyID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Key ID is required")
		return
	}

	if err := h.keys.RevokeAPIKey(ctx, authCtx.UserID, keyID); err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			writeError(w, http.StatusNotFound, "KEY_NOT_FOUND", "API key not found or already revoked")
			return
		}
		h.logger.Error("failed to revoke API key", "error", err, "key_id", keyID)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke API key")
		return
	}

	h.logger.Info("API key revoked",
		"key_id", keyID,
		"user_id", authCtx.UserID,
	)
	w.WriteHeader(http.StatusNoContent)
}

// RotateAPIKey handles POST /api/user/api-keys/{key_id}/rotate
func (h *APIKeyHandler) RotateAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := auth.AuthFromContext(ctx)
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated")
		return
	}

	keyID := r.PathValue("key_id")
	if keyID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Key ID is required")
		return
	}

	oldKey, err := h.keys.GetAPIKeyByID(ctx, authCtx.UserID, keyID)
	if err != nil || oldKey.IsRevoked() {
		writeError(w, http.StatusNotFound, "KEY_NOT_FOUND", "API key not found or already revoked")
		return
	}

	// Create the replacement first so the caller is never left without a key.
	newKey, plaintext, err := h.mint(ctx, oldKey.UserID, oldKey.Name, oldKey.Scopes)
	if err != nil {
		h.logger.Error("failed to create rotated API key", "error", err, "key_id", keyID)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to rotate API key")
		return
	}

	revokedAt := time.Now().UTC()
	if err := h.keys.RevokeAPIKey(ctx, authCtx.UserID, oldKey.ID); err != nil {
		h.logger.Error("failed to revoke old API key during rotation",
			"error", err,
			"key_id", oldKey.ID,
		)
	}

	h.logger.Info("API key rotated",
		"old_key_id", oldKey.ID,
		"new_key_id", newKey.ID,
		"user_id", authCtx.UserID,
	)
	writeJSON(w, http.StatusCreated, model.APIKeyRotateResponse{
		OldKeyID:        oldKey.ID,
		OldKeyRevokedAt: revokedAt,
		NewKey:          createResponse(newKey, plaintext),
	})
}

func (h *APIKeyHandler) mint(ctx context.Context, userID, name string, scopes []string) (*model.APIKey, string, error) {
	generated, err := auth.GenerateAPIKey(h.env)
	if err != nil {
		return nil, "", err
	}
	key := &model.APIKey{
		ID:        ulid.Make().String(),
		UserID:    userID,
		KeyHash:   generated.Hash,
		KeyPrefix: generated.Prefix,
		Scopes:    scopes,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.keys.CreateAPIKey(ctx, key); err != nil {
		return nil, "", err
	}
	return key, generated.Plaintext, nil
}

func createResponse(key *model.APIKey, plaintext string) model.APIKeyCreateResponse {
	return model.APIKeyCreateResponse{
		ID:        key.ID,
		Key:       plaintext,
		Name:      key.Name,
		KeyPrefix: key.KeyPrefix,
		Scopes:    key.Scopes,
		CreatedAt: key.CreatedAt,
	}
}
