package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"smart_climate/internal/climate"
	"smart_climate/internal/models"
	"smart_climate/internal/repository"
)

// ---- Test doubles ----

type stubSensors struct {
	mu     sync.Mutex
	values map[string]float64
}

func (s *stubSensors) set(id string, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[id] = v
}

func (s *stubSensors) drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, id)
}

func (s *stubSensors) ReadSensor(_ context.Context, id string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[id]
	if !ok {
		return 0, climate.ErrSensorUnavailable
	}
	return v, nil
}

type deviceCall struct {
	device string
	mode   *climate.Mode
	temp   *float64
}

type stubDevices struct {
	mu    sync.Mutex
	calls []deviceCall
	fail  error
}

func (d *stubDevices) SetHVACMode(_ context.Context, dev string, m climate.Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return d.fail
	}
	d.calls = append(d.calls, deviceCall{device: dev, mode: &m})
	return nil
}

func (d *stubDevices) SetTemperature(_ context.Context, dev string, v float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return d.fail
	}
	d.calls = append(d.calls, deviceCall{device: dev, temp: &v})
	return nil
}

func (d *stubDevices) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

// memStateRepo is an in-memory repository.StateRepo.
type memStateRepo struct {
	mu      sync.Mutex
	rows    map[string]models.ClimateState
	loadErr error
	saveErr error
	saves   int
}

func newMemStateRepo() *memStateRepo {
	return &memStateRepo{rows: map[string]models.ClimateState{}}
}

func (r *memStateRepo) Save(_ context.Context, s models.ClimateState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.rows[s.ControllerID] = s
	return nil
}

func (r *memStateRepo) Load(_ context.Context, id string) (models.ClimateState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return models.ClimateState{}, r.loadErr
	}
	return r.rows[id], nil
}

// memEventRepo is an in-memory repository.EventRepo that ignores filters except From.
type memEventRepo struct {
	mu        sync.Mutex
	events    []models.ClimateEvent
	appendErr error
	listErr   error
}

func (r *memEventRepo) Append(_ context.Context, e models.ClimateEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	if e.EventID == "" {
		e.EventID = fmt.Sprintf("ev-%d", len(r.events)+1)
	}
	r.events = append(r.events, e)
	return nil
}

func (r *memEventRepo) List(_ context.Context, f repository.EventFilter) ([]models.ClimateEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []models.ClimateEvent
	for _, e := range r.events {
		if !f.From.IsZero() && e.OccurredAt.Before(f.From) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *memEventRepo) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *memEventRepo) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

var errDown = errors.New("db down")

// newTestController builds a heat pump + furnace pair with zero min runtime.
func newTestController(t *testing.T, id string, sensors *stubSensors, devices *stubDevices) *climate.Controller {
	t.Helper()
	cfg := climate.DefaultConfig()
	cfg.ID = id
	cfg.PrimaryDevice = "climate." + id + "_heat_pump"
	cfg.SecondaryDevice = "climate." + id + "_furnace"
	cfg.IndoorSensor = "sensor." + id + "_temperature"
	cfg.MinRuntime = 0
	c, err := climate.NewController(cfg, sensors, devices)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

type fixture struct {
	sensors *stubSensors
	devices *stubDevices
	states  *memStateRepo
	events  *memEventRepo
	reg     *Registry
	svc     *ClimateService
}

func newFixture(t *testing.T, ids ...string) *fixture {
	t.Helper()
	f := &fixture{
		sensors: &stubSensors{values: map[string]float64{}},
		devices: &stubDevices{},
		states:  newMemStateRepo(),
		events:  &memEventRepo{},
	}
	var ctrls []*climate.Controller
	for _, id := range ids {
		f.sensors.set("sensor."+id+"_temperature", 20)
		ctrls = append(ctrls, newTestController(t, id, f.sensors, f.devices))
	}
	reg, err := NewRegistry(ctrls...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	f.reg = reg
	f.svc = NewClimateService(reg, f.states, f.events, nil)
	return f
}
