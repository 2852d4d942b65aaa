package repository

import (
	"context"
	"database/sql"
	"time"

	"smart_climate/internal/models"
)

// Authorization stores the operators allowed to change targets and presets.
type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// StateRepo persists one snapshot per controller.
type StateRepo interface {
	Save(ctx context.Context, s models.ClimateState) error
	Load(ctx context.Context, controllerID string) (models.ClimateState, error)
}

// EventFilter narrows EventRepo.List. Zero fields mean no constraint.
type EventFilter struct {
	From         time.Time
	To           time.Time
	Type         string
	ControllerID string
}

type EventRepo interface {
	Append(ctx context.Context, e models.ClimateEvent) error
	List(ctx context.Context, f EventFilter) ([]models.ClimateEvent, error)
}

// CursorRepo remembers the archive export position across restarts.
type CursorRepo interface {
	Save(ctx context.Context, c models.ArchiveCursor) error
	Load(ctx context.Context, prefix string) (models.ArchiveCursor, error)
}

type Repository struct {
	StateRepo  StateRepo
	EventRepo  EventRepo
	CursorRepo CursorRepo
	Auth       Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo:  NewStateSQLite(db),
		EventRepo:  NewEventSQLite(db),
		CursorRepo: NewCursorSQLite(db),
		Auth:       NewUserSQLite(db),
	}
}
