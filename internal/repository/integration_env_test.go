//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/quickai/quickai/internal/testutil"
)

func newTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := New(ctx, dbURL, PoolConfig{})
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return ctx, repo
}

func mustEnsureUser(t *testing.T, ctx context.Context, repo *Repository) string {
	t.Helper()
	u := testutil.NewTestUser(t)
	if _, err := repo.EnsureUser(ctx, u.ID, u.Email, u.Plan); err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}
	return u.ID
}
