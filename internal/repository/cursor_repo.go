package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smart_climate/internal/models"
)

type CursorSQLite struct {
	db *sql.DB
}

func NewCursorSQLite(db *sql.DB) *CursorSQLite {
	return &CursorSQLite{db: db}
}

const (
	upsertCursorSQL = `
		INSERT INTO archive_cursor (prefix, since, boundary, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(prefix) DO UPDATE SET
			since=excluded.since,
			boundary=excluded.boundary,
			updated_at=excluded.updated_at
	`

	selectCursorSQL = `SELECT prefix, since, boundary, updated_at FROM archive_cursor WHERE prefix=?`
)

// Save upserts the cursor of c.Prefix.
func (r *CursorSQLite) Save(ctx context.Context, c models.ArchiveCursor) error {
	boundary := c.Boundary
	if boundary == nil {
		boundary = []string{}
	}
	ids, err := json.Marshal(boundary)
	if err != nil {
		return fmt.Errorf("encode cursor boundary: %w", err)
	}
	updated := c.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	if _, err := r.db.ExecContext(ctx, upsertCursorSQL, c.Prefix, c.Since.UTC(), string(ids), updated.UTC()); err != nil {
		return fmt.Errorf("save archive cursor %q: %w", c.Prefix, err)
	}
	return nil
}

// Load returns the cursor of prefix. A prefix never exported yields a zero
// cursor, meaning the whole log is pending.
func (r *CursorSQLite) Load(ctx context.Context, prefix string) (models.ArchiveCursor, error) {
	var (
		c   models.ArchiveCursor
		ids string
	)
	err := r.db.QueryRowContext(ctx, selectCursorSQL, prefix).Scan(&c.Prefix, &c.Since, &ids, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ArchiveCursor{Prefix: prefix}, nil
	}
	if err != nil {
		return models.ArchiveCursor{}, fmt.Errorf("load archive cursor %q: %w", prefix, err)
	}
	if err := json.Unmarshal([]byte(ids), &c.Boundary); err != nil {
		return models.ArchiveCursor{}, fmt.Errorf("decode cursor boundary: %w", err)
	}
	c.Since = c.Since.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}
