package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"smart_climate/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	upsertStateSQL = `
		INSERT INTO climate_state (controller_id, preset_mode, target_c, current_c, outdoor_c,
			last_mode, primary_mode, secondary_mode, last_switch_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(controller_id) DO UPDATE SET
			preset_mode=excluded.preset_mode,
			target_c=excluded.target_c,
			current_c=excluded.current_c,
			outdoor_c=excluded.outdoor_c,
			last_mode=excluded.last_mode,
			primary_mode=excluded.primary_mode,
			secondary_mode=excluded.secondary_mode,
			last_switch_at=excluded.last_switch_at,
			updated_at=excluded.updated_at
	`

	selectStateSQL = `
		SELECT controller_id, preset_mode, target_c, current_c, outdoor_c,
			last_mode, primary_mode, secondary_mode, last_switch_at, updated_at
		FROM climate_state WHERE controller_id=?
	`
)

// nullFloat maps an optional temperature to a nullable column value.
func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Save upserts the climate_state row of s.ControllerID.
func (r *StateSQLite) Save(ctx context.Context, s models.ClimateState) error {
	if s.ControllerID == "" {
		return errors.New("save climate state: controller id is empty")
	}

	// ensure UpdatedAt is always persisted as UTC; set if zero
	tsUTC := s.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err := r.db.ExecContext(ctx, upsertStateSQL,
		s.ControllerID,
		s.PresetMode,
		nullFloat(s.TargetTempC),
		nullFloat(s.CurrentTempC),
		nullFloat(s.OutdoorTempC),
		s.LastMode,
		nullString(s.PrimaryMode),
		nullString(s.SecondaryMode),
		nullTime(s.LastSwitchAt),
		tsUTC,
	)
	return err
}

// Load fetches the row of controllerID. A controller never saved yields a zero state.
func (r *StateSQLite) Load(ctx context.Context, controllerID string) (models.ClimateState, error) {
	row := r.db.QueryRowContext(ctx, selectStateSQL, controllerID)

	var (
		s                          models.ClimateState
		target, current, outdoor   sql.NullFloat64
		primaryMode, secondaryMode sql.NullString
		lastSwitch                 sql.NullTime
	)
	if err := row.Scan(
		&s.ControllerID,
		&s.PresetMode,
		&target,
		&current,
		&outdoor,
		&s.LastMode,
		&primaryMode,
		&secondaryMode,
		&lastSwitch,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ClimateState{}, nil // no state yet
		}
		return models.ClimateState{}, err
	}

	s.TargetTempC = floatPtr(target)
	s.CurrentTempC = floatPtr(current)
	s.OutdoorTempC = floatPtr(outdoor)
	s.PrimaryMode = primaryMode.String
	s.SecondaryMode = secondaryMode.String
	if lastSwitch.Valid {
		s.LastSwitchAt = lastSwitch.Time.UTC()
	}
	s.UpdatedAt = s.UpdatedAt.UTC()

	return s, nil
}
