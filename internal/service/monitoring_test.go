package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMonitoringService_GetState(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "office")
	if _, err := f.svc.SetTemperature(context.Background(), "office", 22); err != nil {
		t.Fatalf("SetTemperature: %v", err)
	}

	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("UTC+1", 3600))
	mon := NewMonitoringService(f.reg)
	mon.now = func() time.Time { return fixed }

	got, err := mon.GetState(context.Background(), "office")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if got.ControllerID != "office" || got.Name != "Smart Climate (climate.office_heat_pump + climate.office_furnace)" {
		t.Fatalf("unexpected identity: %+v", got)
	}
	if got.TargetTempC == nil || *got.TargetTempC != 22 || got.CurrentTempC == nil || *got.CurrentTempC != 20 {
		t.Fatalf("unexpected temperatures: %+v", got)
	}
	if got.PrimaryMode != "heat" || got.SecondaryMode != "off" {
		t.Fatalf("unexpected modes: %q %q", got.PrimaryMode, got.SecondaryMode)
	}
	if len(got.PresetModes) != 8 {
		t.Fatalf("expected the default preset names, got %v", got.PresetModes)
	}
	if !got.UpdatedAt.Equal(fixed) || got.UpdatedAt.Location() != time.UTC {
		t.Fatalf("UpdatedAt should be now in UTC, got %v", got.UpdatedAt)
	}
	if got.LastSwitchAt.IsZero() || got.LastSwitchAt.Location() != time.UTC {
		t.Fatalf("LastSwitchAt should be set in UTC, got %v", got.LastSwitchAt)
	}
}

func TestMonitoringService_GetState_NotFound(t *testing.T) {
	t.Parallel()

	mon := NewMonitoringService(newFixture(t, "office").reg)
	if _, err := mon.GetState(context.Background(), "garage"); !errors.Is(err, ErrControllerNotFound) {
		t.Fatalf("expected ErrControllerNotFound, got %v", err)
	}
}

func TestMonitoringService_ListStates_RegistrationOrder(t *testing.T) {
	t.Parallel()

	mon := NewMonitoringService(newFixture(t, "office", "bedroom", "attic").reg)
	got, err := mon.ListStates(context.Background())
	if err != nil {
		t.Fatalf("ListStates: %v", err)
	}
	if len(got) != 3 || got[0].ControllerID != "office" || got[1].ControllerID != "bedroom" || got[2].ControllerID != "attic" {
		t.Fatalf("unexpected order: %+v", got)
	}
	for _, st := range got {
		// never evaluated: device modes unknown, no reading yet
		if st.PrimaryMode != "" || st.CurrentTempC != nil || st.LastMode != "off" || !st.LastSwitchAt.IsZero() {
			t.Fatalf("unexpected initial state: %+v", st)
		}
	}
}

func Test_toUTC(t *testing.T) {
	t.Parallel()

	if !toUTC(time.Time{}).IsZero() {
		t.Fatalf("zero time must stay zero")
	}
	in := time.Date(2025, 1, 1, 10, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	if out := toUTC(in); out.Location() != time.UTC || !out.Equal(in) {
		t.Fatalf("unexpected conversion: %v", out)
	}
}
