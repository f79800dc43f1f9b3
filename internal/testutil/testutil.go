// Package testutil holds helpers shared by unit and integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/quickai/quickai/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 424242

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// Migrations in apply order.
var Migrations = []string{
	"000001_users",
	"000002_api_keys",
	"000003_creations",
}

// ResetSchema applies every down migration in reverse and then every up
// migration in order.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for i := len(Migrations) - 1; i >= 0; i-- {
		if err := applyMigration(ctx, pool, Migrations[i], "down"); err != nil {
			return err
		}
	}
	for _, name := range Migrations {
		if err := applyMigration(ctx, pool, name, "up"); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, name, direction string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	path := filepath.Join(root, "migrations", fmt.Sprintf("%s.%s.sql", name, direction))
	sql, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s %s migration: %w", name, direction, err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply %s %s migration: %w", name, direction, err)
	}
	return nil
}

// NewMiniRedis starts an in-process Redis and returns a client for it.
// Both are closed when the test ends.
func NewMiniRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", "..")), nil
}

// NewTestUser returns a free user with no usage.
func NewTestUser(t testing.TB) *model.User {
	t.Helper()
	now := time.Now().UTC()
	return &model.User{
		ID:        UniqueID("user"),
		Email:     "test@example.com",
		Plan:      model.PlanFree,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestCreation returns an article creation owned by userID.
func NewTestCreation(t testing.TB, userID string) *model.Creation {
	t.Helper()
	return &model.Creation{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Prompt:    "Write about Go",
		Content:   "Go is a programming language.",
		Type:      model.CreationArticle,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// NewTestAPIKey creates a test API key with sensible defaults.
func NewTestAPIKey(t testing.TB, userID string) *model.APIKey {
	t.Helper()
	return &model.APIKey{
		ID:        ulid.Make().String(),
		UserID:    userID,
		KeyHash:   UniqueID("hash"),
		KeyPrefix: "abcd1234",
		Scopes:    []string{model.ScopeRead, model.ScopeWrite},
		Name:      "Test Key",
		CreatedAt: time.Now().UTC(),
	}
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
