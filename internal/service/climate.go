package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smart_climate/internal/climate"
	"smart_climate/internal/logger"
	"smart_climate/internal/models"
	"smart_climate/internal/repository"
)

// ClimateService runs controller operations and records their outcome: the
// snapshot is persisted and the decision is turned into log events.
type ClimateService struct {
	reg       *Registry
	stateRepo repository.StateRepo
	eventRepo repository.EventRepo
	log       *logger.Logger
	now       func() time.Time
}

func NewClimateService(reg *Registry, stateRepo repository.StateRepo, eventRepo repository.EventRepo, log *logger.Logger) *ClimateService {
	if log == nil {
		log = logger.Nop()
	}
	return &ClimateService{
		reg:       reg,
		stateRepo: stateRepo,
		eventRepo: eventRepo,
		log:       log.Named("climate"),
		now:       time.Now,
	}
}

// SetTemperature sets a manual target on controller id.
// A sensor or device failure is returned together with the new state.
func (s *ClimateService) SetTemperature(ctx context.Context, id string, tempC float64) (models.ClimateState, error) {
	c, err := s.reg.Get(id)
	if err != nil {
		return models.ClimateState{}, err
	}
	before := c.Snapshot()

	d, opErr := c.SetTargetTemperature(ctx, tempC)
	if errors.Is(opErr, climate.ErrInvalidTemperature) {
		return models.ClimateState{}, opErr
	}

	change := &models.ClimateEvent{
		Type:        models.EventTargetChange,
		Description: fmt.Sprintf("Target set to %.1f°C", tempC),
		Metadata: attribute(ctx, map[string]any{
			"from": floatOrNil(before.TargetC),
			"to":   tempC,
		}),
	}
	return s.record(ctx, c, before, d, change, opErr), opErr
}

// SetPreset selects a preset on controller id. Unknown presets change nothing.
func (s *ClimateService) SetPreset(ctx context.Context, id, preset string) (models.ClimateState, error) {
	c, err := s.reg.Get(id)
	if err != nil {
		return models.ClimateState{}, err
	}
	before := c.Snapshot()

	d, opErr := c.SetPresetMode(ctx, preset)
	if errors.Is(opErr, climate.ErrUnknownPreset) {
		return models.ClimateState{}, opErr
	}

	after := c.Snapshot()
	change := &models.ClimateEvent{
		Type:        models.EventPresetChange,
		Description: fmt.Sprintf("Preset changed from %s to %s", before.PresetMode, after.PresetMode),
		Metadata: attribute(ctx, map[string]any{
			"from":   before.PresetMode,
			"to":     after.PresetMode,
			"target": floatOrNil(after.TargetC),
		}),
	}
	return s.record(ctx, c, before, d, change, opErr), opErr
}

// Apply re-evaluates controller id against its current target.
func (s *ClimateService) Apply(ctx context.Context, id string) (models.ClimateState, error) {
	c, err := s.reg.Get(id)
	if err != nil {
		return models.ClimateState{}, err
	}
	return s.apply(ctx, c)
}

func (s *ClimateService) apply(ctx context.Context, c *climate.Controller) (models.ClimateState, error) {
	before := c.Snapshot()
	d, opErr := c.Apply(ctx)
	return s.record(ctx, c, before, d, nil, opErr), opErr
}

// Restore re-applies the persisted preset and target of every registered
// controller. Controllers without a persisted row keep their initial preset.
func (s *ClimateService) Restore(ctx context.Context) error {
	var errs []error
	for _, c := range s.reg.All() {
		st, err := s.stateRepo.Load(ctx, c.ID())
		if err != nil {
			errs = append(errs, fmt.Errorf("load state %s: %w", c.ID(), err))
			continue
		}
		if st.ControllerID == "" {
			continue
		}
		if err := c.Restore(st.PresetMode, st.TargetTempC); err != nil {
			// preset removed from configuration since the state was saved
			s.log.Warnw("climate_restore_skipped", "controller", c.ID(), "preset", st.PresetMode, "err", err)
			continue
		}
		s.log.Infow("climate_restored", "controller", c.ID(), "preset", st.PresetMode, "target", floatOrNil(st.TargetTempC))
	}
	return errors.Join(errs...)
}

// record persists the controller snapshot and appends the events describing d.
// Persistence failures are logged; the devices have already been commanded.
func (s *ClimateService) record(ctx context.Context, c *climate.Controller, before climate.State, d climate.Decision, change *models.ClimateEvent, opErr error) models.ClimateState {
	now := s.now().UTC()
	id := c.ID()

	var events []models.ClimateEvent
	if change != nil {
		events = append(events, *change)
	}
	events = append(events, commandEvents(before, d)...)
	if opErr != nil {
		events = append(events, models.ClimateEvent{
			Type:        models.EventError,
			Description: opErr.Error(),
			Metadata:    map[string]any{"kind": errorKind(opErr)},
		})
		s.log.Warnw("climate_apply_failed", "controller", id, "err", opErr)
	} else {
		s.log.Debugw("climate_applied",
			"controller", id,
			"current", d.CurrentC,
			"target", floatOrNil(d.TargetC),
			"candidate", d.Candidate.String(),
			"effective", d.Effective.String(),
			"secondary", d.Secondary.String(),
			"suppressed", d.Suppressed,
			"held", d.Held,
		)
	}

	for _, ev := range events {
		ev.ControllerID = id
		ev.OccurredAt = now
		if err := s.eventRepo.Append(ctx, ev); err != nil {
			s.log.Errorw("climate_event_append_failed", "controller", id, "type", ev.Type, "err", err)
		}
	}

	st := toClimateState(c.Snapshot(), now)
	if err := s.stateRepo.Save(ctx, st); err != nil {
		s.log.Errorw("climate_state_save_failed", "controller", id, "err", err)
	}
	return st
}

// commandEvents turns the device commands of d into MODE_CHANGE and COMMAND events.
func commandEvents(before climate.State, d climate.Decision) []models.ClimateEvent {
	var out []models.ClimateEvent
	for _, cmd := range d.Commands {
		if cmd.Mode != nil {
			typ, from := models.EventModeChange, "unknown"
			if prev := previousMode(before, cmd.Role); prev != nil {
				from = prev.String()
				if *prev == *cmd.Mode {
					typ = models.EventCommand // mode re-sent together with a new setpoint
				}
			}
			out = append(out, models.ClimateEvent{
				Type:        typ,
				Description: fmt.Sprintf("%s %s: %s -> %s", cmd.Role, cmd.Device, from, cmd.Mode),
				Metadata: map[string]any{
					"device": cmd.Device,
					"role":   cmd.Role,
					"from":   from,
					"to":     cmd.Mode.String(),
				},
			})
		}
		if cmd.TempC != nil {
			out = append(out, models.ClimateEvent{
				Type:        models.EventCommand,
				Description: fmt.Sprintf("%s %s: setpoint %.1f°C", cmd.Role, cmd.Device, *cmd.TempC),
				Metadata: map[string]any{
					"device":   cmd.Device,
					"role":     cmd.Role,
					"setpoint": *cmd.TempC,
				},
			})
		}
	}
	return out
}

func previousMode(st climate.State, role string) *climate.Mode {
	if role == climate.RoleSecondary {
		return st.SecondaryMode
	}
	return st.PrimaryMode
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, climate.ErrSensorUnavailable):
		return "sensor_unavailable"
	case errors.Is(err, climate.ErrCommandFailed):
		return "command_failed"
	default:
		return "other"
	}
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
