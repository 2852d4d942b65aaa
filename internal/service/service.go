package service

import (
	"context"
	"time"

	"smart_climate/internal/logger"
	"smart_climate/internal/models"
	"smart_climate/internal/repository"
)

// Authorization manages operator accounts and their tokens.
type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	SignIn(ctx context.Context, username, password string) (string, error)
	Authenticate(token string) (Operator, error)
}

// Climate exposes the user-facing controller operations. Each returns the
// state after the operation, also when the devices could not be evaluated.
type Climate interface {
	SetTemperature(ctx context.Context, id string, tempC float64) (models.ClimateState, error)
	SetPreset(ctx context.Context, id, preset string) (models.ClimateState, error)
	Apply(ctx context.Context, id string) (models.ClimateState, error)
	Restore(ctx context.Context) error
}

// Monitoring exposes read-only controller state.
type Monitoring interface {
	GetState(ctx context.Context, id string) (models.ClimateState, error)
	ListStates(ctx context.Context) ([]models.ClimateState, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.ClimateEvent, error)
}

// Scheduler re-evaluates every controller periodically.
// Stop via context cancellation in main() for graceful shutdown.
type Scheduler interface {
	Run(ctx context.Context, tick time.Duration)
}

// Archiver ships the event log to object storage.
type Archiver interface {
	Run(ctx context.Context, every time.Duration)
}

type Service struct {
	Climate
	Monitoring
	EventLog
	Scheduler
	Authorization
	Archiver // nil when no object store is configured
}

// Options carries the non-repository dependencies of NewService.
type Options struct {
	Auth          AuthConfig
	Archive       ObjectWriter // optional
	ArchivePrefix string
	Log           *logger.Logger
}

// NewService wires the repository layer and the controller registry into concrete services.
func NewService(repos *repository.Repository, reg *Registry, opts Options) *Service {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	climateSvc := NewClimateService(reg, repos.StateRepo, repos.EventRepo, log)

	svc := &Service{
		Climate:       climateSvc,
		Monitoring:    NewMonitoringService(reg),
		EventLog:      NewEventLogService(repos.EventRepo),
		Scheduler:     NewSchedulerService(reg, climateSvc, log),
		Authorization: NewAuthService(repos.Auth, opts.Auth),
	}
	if opts.Archive != nil {
		svc.Archiver = NewArchiveService(repos.EventRepo, repos.CursorRepo, opts.Archive, opts.ArchivePrefix, log)
	}
	return svc
}
