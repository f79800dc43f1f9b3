package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/quickai/quickai/internal/model"
)

// ErrCreationExists is returned when a creation id is reused.
var ErrCreationExists = errors.New("creation already exists")

const creationColumns = `id, user_id, prompt, content, type, publish, created_at`

// RecordCreation appends one row to the ledger. Rows are never updated.
func (r *Repository) RecordCreation(ctx context.Context, c *model.Creation) error {
	query := `
		INSERT INTO creations (id, user_id, prompt, content, type, publish, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.UserID,
		c.Prompt,
		c.Content,
		string(c.Type),
		c.Publish,
		c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCreationExists
		}
		return fmt.Errorf("failed to record creation: %w", err)
	}
	return nil
}

// ListCreationsByUser returns a user's creations newest first.
func (r *Repository) ListCreationsByUser(ctx context.Context, userID, cursor string, limit int) ([]*model.Creation, string, error) {
	return r.listCreations(ctx, "user_id = $1", []any{userID}, cursor, limit)
}

// ListPublishedCreations returns every published creation newest first.
func (r *Repository) ListPublishedCreations(ctx context.Context, cursor string, limit int) ([]*model.Creation, string, error) {
	return r.listCreations(ctx, "publish = TRUE", nil, cursor, limit)
}

func (r *Repository) listCreations(ctx context.Context, where string, args []any, cursor string, limit int) ([]*model.Creation, string, error) {
	var cursorData *PaginationCursor
	if cursor != "" {
		var err error
		cursorData, err = decodeCursor(cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
	}

	query := `SELECT ` + creationColumns + ` FROM creations WHERE ` + where
	argIndex := len(args) + 1

	if cursorData != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIndex, argIndex+1)
		args = append(args, cursorData.CreatedAt, cursorData.ID)
		argIndex += 2
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIndex)
	args = append(args, limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list creations: %w", err)
	}
	defer rows.Close()

	var creations []*model.Creation
	for rows.Next() {
		c, err := scanCreation(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan creation: %w", err)
		}
		creations = append(creations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating creations: %w", err)
	}

	var next string
	if len(creations) > limit {
		creations = creations[:limit]
		last := creations[len(creations)-1]
		next = encodeCursor(&PaginationCursor{ID: last.ID, CreatedAt: last.CreatedAt})
	}

	return creations, next, nil
}

func scanCreation(row pgx.Row) (*model.Creation, error) {
	var (
		c   model.Creation
		typ string
	)
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Prompt,
		&c.Content,
		&typ,
		&c.Publish,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Type = model.CreationType(typ)
	return &c, nil
}
