package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/quickai/quickai/internal/auth"
	"github.com/quickai/quickai/internal/model"
	"github.com/quickai/quickai/internal/repository"
)

type fakeKeyStore struct {
	keys map[string]*model.APIKey
}

func newFakeKeyStore(keys ...*model.APIKey) *fakeKeyStore {
	s := &fakeKeyStore{keys: make(map[string]*model.APIKey)}
	for _, k := range keys {
		s.keys[k.ID] = k
	}
	return s
}

func (s *fakeKeyStore) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	s.keys[key.ID] = key
	return nil
}

func (s *fakeKeyStore) GetAPIKeyByID(_ context.Context, userID, id string) (*model.APIKey, error) {
	k, ok := s.keys[id]
	if !ok || k.UserID != userID {
		return nil, repository.ErrAPIKeyNotFound
	}
	return k, nil
}

func (s *fakeKeyStore) ListAPIKeysByUserID(_ context.Context, userID string) ([]*model.APIKey, error) {
	var out []*model.APIKey
	for _, k := range s.keys {
		if k.UserID == userID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *fakeKeyStore) RevokeAPIKey(_ context.Context, userID, id string) error {
	k, ok := s.keys[id]
	if !ok || k.UserID != userID || k.IsRevoked() {
		return repository.ErrAPIKeyNotFound
	}
	now := time.Now()
	k.RevokedAt = &now
	return nil
}

func withScopes(r *http.Request, userID string, scopes ...string) *http.Request {
	return r.WithContext(auth.ContextWithAuth(r.Context(), &model.AuthContext{
		Source: model.SourceSession,
		UserID: userID,
		Scopes: scopes,
	}))
}

func TestAPIKeyHandler_CreateAPIKey(t *testing.T) {
	store := newFakeKeyStore()
	h := NewAPIKeyHandler(nil, store, auth.EnvTest)

	req := httptest.NewRequest(http.MethodPost, "/api/user/api-keys", strings.NewReader(`{"name":"cli","scopes":["read"]}`))
	rec := httptest.NewRecorder()
	h.CreateAPIKey(rec, withScopes(req, "user_1", model.ScopeRead, model.ScopeWrite))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp model.APIKeyCreateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(resp.Key, "qk_test_") {
		t.Errorf("key = %q, want qk_test_ prefix", resp.Key)
	}
	stored, ok := store.keys[resp.ID]
	if !ok {
		t.Fatal("key not stored")
	}
	if stored.UserID != "user_1" || stored.Name != "cli" {
		t.Errorf("unexpected stored key: %+v", stored)
	}
	if ok, _ := auth.VerifyKey(resp.Key, stored.KeyHash); !ok {
		t.Error("stored hash does not verify plaintext")
	}
}

func TestAPIKeyHandler_CreateAPIKey_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		scopes     []string
		wantStatus int
	}{
		{"invalid scope", `{"scopes":["webhook"]}`, []string{model.ScopeRead, model.ScopeWrite}, http.StatusBadRequest},
		{"bad body", `{`, []string{model.ScopeRead}, http.StatusBadRequest},
		{"escalation to admin", `{"scopes":["admin"]}`, []string{model.ScopeRead, model.ScopeWrite}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAPIKeyHandler(nil, newFakeKeyStore(), auth.EnvTest)

			req := httptest.NewRequest(http.MethodPost, "/api/user/api-keys", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.CreateAPIKey(rec, withScopes(req, "user_1", tt.scopes...))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestAPIKeyHandler_Unauthenticated(t *testing.T) {
	h := NewAPIKeyHandler(nil, newFakeKeyStore(), auth.EnvTest)

	rec := httptest.NewRecorder()
	h.ListAPIKeys(rec, httptest.NewRequest(http.MethodGet, "/api/user/api-keys", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAPIKeyHandler_ListAPIKeys(t *testing.T) {
	store := newFakeKeyStore(
		&model.APIKey{ID: "k1", UserID: "user_1", KeyPrefix: "aaaaaaaa", Scopes: []string{"read"}},
		&model.APIKey{ID: "k2", UserID: "user_2", KeyPrefix: "bbbbbbbb", Scopes: []string{"read"}},
	)
	h := NewAPIKeyHandler(nil, store, auth.EnvTest)

	rec := httptest.NewRecorder()
	h.ListAPIKeys(rec, withScopes(httptest.NewRequest(http.MethodGet, "/api/user/api-keys", nil), "user_1", model.ScopeRead))

	var resp struct {
		Keys []model.APIKeyResponse `json:"keys"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Keys) != 1 || resp.Keys[0].ID != "k1" {
		t.Errorf("unexpected keys: %+v", resp.Keys)
	}
}

func TestAPIKeyHandler_RevokeAPIKey(t *testing.T) {
	store := newFakeKeyStore(
		&model.APIKey{ID: "k1", UserID: "user_1"},
		&model.APIKey{ID: "k2", UserID: "user_2"},
	)
	h := NewAPIKeyHandler(nil, store, auth.EnvTest)

	tests := []struct {
		name       string
		keyID      string
		wantStatus int
	}{
		{"own key", "k1", http.StatusNoContent},
		{"already revoked", "k1", http.StatusNotFound},
		{"other user's key", "k2", http.StatusNotFound},
		{"unknown key", "nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/user/api-keys/"+tt.keyID, nil)
			req.SetPathValue("key_id", tt.keyID)
			rec := httptest.NewRecorder()
			h.RevokeAPIKey(rec, withScopes(req, "user_1", model.ScopeWrite))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestAPIKeyHandler_RotateAPIKey(t *testing.T) {
	store := newFakeKeyStore(&model.APIKey{ID: "k1", UserID: "user_1", Name: "ci", Scopes: []string{"read", "write"}})
	h := NewAPIKeyHandler(nil, store, auth.EnvTest)

	req := httptest.NewRequest(http.MethodPost, "/api/user/api-keys/k1/rotate", nil)
	req.SetPathValue("key_id", "k1")
	rec := httptest.NewRecorder()
	h.RotateAPIKey(rec, withScopes(req, "user_1", model.ScopeWrite))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp model.APIKeyRotateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.OldKeyID != "k1" || resp.NewKey.ID == "k1" || resp.NewKey.Name != "ci" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if !store.keys["k1"].IsRevoked() {
		t.Error("old key should be revoked")
	}
	if store.keys[resp.NewKey.ID].IsRevoked() {
		t.Error("new key should be active")
	}
}
