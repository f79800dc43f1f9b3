package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quickai/quickai/internal/handler/dto"
	"github.com/quickai/quickai/internal/model"
	"github.com/quickai/quickai/internal/repository"
)

type fakeCreations struct {
	rows []*model.Creation
	next string
	err  error

	gotUserID string
	gotCursor string
	gotLimit  int
}

func (f *fakeCreations) ListCreationsByUser(_ context.Context, userID, cursor string, limit int) ([]*model.Creation, string, error) {
	f.gotUserID, f.gotCursor, f.gotLimit = userID, cursor, limit
	return f.rows, f.next, f.err
}

func (f *fakeCreations) ListPublishedCreations(_ context.Context, cursor string, limit int) ([]*model.Creation, string, error) {
	f.gotCursor, f.gotLimit = cursor, limit
	return f.rows, f.next, f.err
}

type fakeEntitlements struct {
	ent model.Entitlement
	err error
}

func (f *fakeEntitlements) Entitlement(context.Context, string) (model.Entitlement, error) {
	return f.ent, f.err
}

func (f *fakeEntitlements) Limit() int { return model.DefaultFreeUsageLimit }

func TestUserHandler_GetUserCreations(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeCreations{
		rows: []*model.Creation{{
			ID: "01J0", UserID: "user_1", Prompt: "Write", Content: "Text",
			Type: model.CreationArticle, CreatedAt: created,
		}},
		next: "next-page",
	}
	h := NewUserHandler(store, &fakeEntitlements{}, nil)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/user/get-user-creations?cursor=abc&limit=5", nil), "user_1")
	rec := httptest.NewRecorder()
	h.GetUserCreations(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.gotUserID != "user_1" || store.gotCursor != "abc" || store.gotLimit != 5 {
		t.Errorf("unexpected query: user=%q cursor=%q limit=%d", store.gotUserID, store.gotCursor, store.gotLimit)
	}

	var resp dto.CreationListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || len(resp.Creations) != 1 || resp.NextCursor != "next-page" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Creations[0].Type != "article" || !resp.Creations[0].CreatedAt.Equal(created) {
		t.Errorf("unexpected creation: %+v", resp.Creations[0])
	}
}

func TestUserHandler_GetPublishedCreations_DefaultLimit(t *testing.T) {
	store := &fakeCreations{}
	h := NewUserHandler(store, &fakeEntitlements{}, nil)

	rec := httptest.NewRecorder()
	h.GetPublishedCreations(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/user/get-published-creations", nil), "user_1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.gotLimit != defaultPageSize {
		t.Errorf("limit = %d, want %d", store.gotLimit, defaultPageSize)
	}

	var resp dto.CreationListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Creations == nil {
		t.Error("creations should be an empty list, not null")
	}
}

func TestUserHandler_ListErrors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
		wantOK     bool
	}{
		{"bad limit", "?limit=abc", nil, http.StatusBadRequest, false},
		{"limit too large", "?limit=1000", nil, http.StatusBadRequest, false},
		{"invalid cursor", "?cursor=zzz", repository.ErrInvalidCursor, http.StatusBadRequest, false},
		{"database error", "", errors.New("boom"), http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewUserHandler(&fakeCreations{err: tt.err}, &fakeEntitlements{}, nil)

			rec := httptest.NewRecorder()
			h.GetUserCreations(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/user/get-user-creations"+tt.query, nil), "user_1"))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body["success"] != tt.wantOK {
				t.Errorf("success = %v, want %v", body["success"], tt.wantOK)
			}
		})
	}
}

func TestUserHandler_GetEntitlement(t *testing.T) {
	tests := []struct {
		name          string
		ent           model.Entitlement
		wantRemaining int
	}{
		{"free with usage", model.Entitlement{Plan: model.PlanFree, FreeUsage: 7}, 3},
		{"free exhausted", model.Entitlement{Plan: model.PlanFree, FreeUsage: 10}, 0},
		{"premium", model.Entitlement{Plan: model.PlanPremium}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewUserHandler(&fakeCreations{}, &fakeEntitlements{ent: tt.ent}, nil)

			rec := httptest.NewRecorder()
			h.GetEntitlement(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/user/entitlement", nil), "user_1"))

			var resp dto.EntitlementResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if !resp.Success || resp.Plan != string(tt.ent.Plan) || resp.FreeLimit != 10 {
				t.Errorf("unexpected response: %+v", resp)
			}
			if resp.Remaining != tt.wantRemaining {
				t.Errorf("remaining = %d, want %d", resp.Remaining, tt.wantRemaining)
			}
		})
	}
}

func TestUserHandler_GetEntitlement_Error(t *testing.T) {
	h := NewUserHandler(&fakeCreations{}, &fakeEntitlements{err: errors.New("db down")}, nil)

	rec := httptest.NewRecorder()
	h.GetEntitlement(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/user/entitlement", nil), "user_1"))

	var resp dto.AIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Success || resp.Message == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
}
