package service

import (
	"context"
	"time"

	"smart_climate/internal/climate"
	"smart_climate/internal/models"
)

// MonitoringService reads state from the live controllers, not from the store.
type MonitoringService struct {
	reg *Registry
	now func() time.Time
}

func NewMonitoringService(reg *Registry) *MonitoringService {
	return &MonitoringService{reg: reg, now: time.Now}
}

// GetState returns the current state of controller id.
func (s *MonitoringService) GetState(_ context.Context, id string) (models.ClimateState, error) {
	c, err := s.reg.Get(id)
	if err != nil {
		return models.ClimateState{}, err
	}
	return toClimateState(c.Snapshot(), s.now()), nil
}

// ListStates returns the state of every controller in registration order.
func (s *MonitoringService) ListStates(_ context.Context) ([]models.ClimateState, error) {
	now := s.now()
	ctrls := s.reg.All()
	out := make([]models.ClimateState, 0, len(ctrls))
	for _, c := range ctrls {
		out = append(out, toClimateState(c.Snapshot(), now))
	}
	return out, nil
}

func toClimateState(st climate.State, now time.Time) models.ClimateState {
	return models.ClimateState{
		ControllerID:      st.ID,
		Name:              st.Name,
		PresetMode:        st.PresetMode,
		PresetModes:       st.PresetModes,
		TargetTempC:       st.TargetC,
		CurrentTempC:      st.CurrentC,
		OutdoorTempC:      st.OutdoorC,
		LastMode:          st.LastMode.String(),
		PrimaryDevice:     st.PrimaryDevice,
		PrimaryMode:       modeString(st.PrimaryMode),
		PrimarySetpoint:   st.PrimarySetpoint,
		SecondaryDevice:   st.SecondaryDevice,
		SecondaryMode:     modeString(st.SecondaryMode),
		SecondarySetpoint: st.SecondarySetpoint,
		LastSwitchAt:      toUTC(st.LastSwitch),
		UpdatedAt:         now.UTC(),
	}
}

func modeString(m *climate.Mode) string {
	if m == nil {
		return ""
	}
	return m.String()
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
