package climate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"smart_climate/internal/logger"
)

// Device roles reported in Command.
const (
	RolePrimary   = "primary"
	RoleSecondary = "secondary"
)

// Reasons a candidate mode was replaced, reported in Decision.Suppressed.
const (
	SuppressedOutdoorCool = "outdoor_below_hot_threshold"
	SuppressedOutdoorWarm = "outdoor_above_cold_threshold"
	SuppressedModeSync    = "mode_sync"
	SuppressedMinRuntime  = "min_runtime"
)

// ErrInvalidTemperature is returned for NaN or infinite targets.
var ErrInvalidTemperature = errors.New("invalid target temperature")

// Command is one call made to the DeviceCommander during an evaluation.
type Command struct {
	Device string   `json:"device"`
	Role   string   `json:"role"`
	Mode   *Mode    `json:"mode,omitempty"`
	TempC  *float64 `json:"temp_c,omitempty"`
}

// Decision is the outcome of one evaluation.
type Decision struct {
	At         time.Time `json:"at"`
	CurrentC   float64   `json:"current_temp_c"`
	TargetC    *float64  `json:"target_temp_c"`
	OutdoorC   *float64  `json:"outdoor_temp_c,omitempty"`
	Candidate  Mode      `json:"candidate_mode"`
	Effective  Mode      `json:"effective_mode"`
	Secondary  Mode      `json:"secondary_mode"`
	Diff       float64   `json:"diff"`
	Held       bool      `json:"held,omitempty"`
	Suppressed string    `json:"suppressed,omitempty"`
	Commands   []Command `json:"commands,omitempty"`
}

// State is a read-only snapshot of a Controller.
type State struct {
	ID                string
	Name              string
	PresetMode        string
	PresetModes       []string
	TargetC           *float64
	CurrentC          *float64
	OutdoorC          *float64
	LastMode          Mode
	LastSwitch        time.Time
	PrimaryDevice     string
	PrimaryMode       *Mode
	PrimarySetpoint   *float64
	SecondaryDevice   string
	SecondaryMode     *Mode
	SecondarySetpoint *float64
}

// deviceCache remembers what was last sent to a device so unchanged commands are skipped.
type deviceCache struct {
	mode      Mode
	modeKnown bool
	setpoint  *float64
}

func (d deviceCache) modePtr() *Mode {
	if !d.modeKnown {
		return nil
	}
	m := d.mode
	return &m
}

// Controller coordinates a primary and an optional secondary climate device
// around one target temperature. Calls are serialised.
type Controller struct {
	mu sync.Mutex

	cfg      Config
	presets  PresetTables
	sensors  SensorReader
	devices  DeviceCommander
	clock    Clock
	log      *logger.Logger
	modeSync *modeSync

	target     *float64
	preset     string
	current    *float64
	outdoor    *float64
	lastMode   Mode
	lastSwitch time.Time
	primary    deviceCache
	secondary  deviceCache
}

// Option customises a Controller.
type Option func(*Controller)

// WithClock replaces the system clock.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// NewController validates cfg and builds a Controller. The initial preset is
// resolved without an indoor reading.
func NewController(cfg Config, sensors SensorReader, devices DeviceCommander, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sensors == nil || devices == nil {
		return nil, fmt.Errorf("%w: %s: sensor reader and device commander are required", ErrInvalidConfig, cfg.ID)
	}

	cfg.HeatingPresets = cfg.HeatingPresets.Clone()
	cfg.CoolingPresets = cfg.CoolingPresets.Clone()
	c := &Controller{
		cfg:     cfg,
		presets: cfg.Presets(),
		sensors: sensors,
		devices: devices,
		clock:   SystemClock(),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("controller", cfg.ID)

	ms, err := newModeSync(cfg.ModeSyncTemplate)
	if err != nil {
		c.log.Errorw("mode_sync_template_disabled", "err", err)
	}
	c.modeSync = ms

	if name, ok := c.presets.Canonical(cfg.InitialPreset); ok {
		c.preset = name
		c.target, _ = c.presets.Resolve(name, nil)
	}
	return c, nil
}

// ID returns the configured controller id.
func (c *Controller) ID() string { return c.cfg.ID }

// Config returns the configuration the controller was built with.
func (c *Controller) Config() Config { return c.cfg }

// PresetModes returns the sorted names of all configured presets.
func (c *Controller) PresetModes() []string { return c.presets.Names() }

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		ID:                c.cfg.ID,
		Name:              c.cfg.DisplayName(),
		PresetMode:        c.preset,
		PresetModes:       c.presets.Names(),
		TargetC:           copyFloat(c.target),
		CurrentC:          copyFloat(c.current),
		OutdoorC:          copyFloat(c.outdoor),
		LastMode:          c.lastMode,
		LastSwitch:        c.lastSwitch,
		PrimaryDevice:     c.cfg.PrimaryDevice,
		PrimaryMode:       c.primary.modePtr(),
		PrimarySetpoint:   copyFloat(c.primary.setpoint),
		SecondaryDevice:   c.cfg.SecondaryDevice,
		SecondaryMode:     c.secondary.modePtr(),
		SecondarySetpoint: copyFloat(c.secondary.setpoint),
	}
}

// Restore re-applies a persisted preset and target without commanding devices.
// An unknown preset is rejected and nothing changes.
func (c *Controller) Restore(preset string, target *float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if preset != "" {
		name, ok := c.presets.Canonical(preset)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
		}
		c.preset = name
	}
	c.target = copyFloat(target)
	c.log.Debugw("climate_restored", "preset", c.preset, "target", floatField(c.target))
	return nil
}

// SetTargetTemperature sets a manual target and re-evaluates.
func (c *Controller) SetTargetTemperature(ctx context.Context, tempC float64) (Decision, error) {
	if math.IsNaN(tempC) || math.IsInf(tempC, 0) {
		return Decision{}, fmt.Errorf("%w: %v", ErrInvalidTemperature, tempC)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.target = Float(tempC)
	c.log.Debugw("climate_target_set", "target", tempC)
	return c.apply(ctx, false)
}

// SetPresetMode selects a preset, resolves its target and re-evaluates. Unknown
// presets are rejected without any state change.
func (c *Controller) SetPresetMode(ctx context.Context, preset string) (Decision, error) {
	preset = strings.TrimSpace(preset)

	c.mu.Lock()
	defer c.mu.Unlock()

	name, ok := c.presets.Canonical(preset)
	if !ok {
		c.log.Errorw("preset_not_recognized", "preset", preset)
		return Decision{}, fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
	}
	preset = name

	var current *float64
	if v, err := c.sensors.ReadSensor(ctx, c.cfg.IndoorSensor); err != nil {
		c.log.Warnw("preset_resolved_without_indoor_reading", "sensor", c.cfg.IndoorSensor, "err", err)
	} else {
		current = Float(v)
		c.current = Float(v)
	}

	target, err := c.presets.Resolve(preset, current)
	if err != nil {
		return Decision{}, err
	}
	c.preset = preset
	c.target = target
	c.log.Debugw("climate_preset_set", "preset", preset, "target", floatField(target))

	return c.apply(ctx, c.cfg.SkipMinRuntimeOnPreset)
}

// Apply reads the sensors and commands the devices toward the target.
func (c *Controller) Apply(ctx context.Context) (Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apply(ctx, false)
}

func (c *Controller) apply(ctx context.Context, skipMinRuntime bool) (Decision, error) {
	now := c.clock.Now()
	d := Decision{At: now, TargetC: copyFloat(c.target)}

	current, err := c.sensors.ReadSensor(ctx, c.cfg.IndoorSensor)
	if err != nil {
		err = asUnavailable(err)
		c.log.Errorw("indoor_sensor_unavailable", "sensor", c.cfg.IndoorSensor, "err", err)
		return d, fmt.Errorf("indoor sensor %s: %w", c.cfg.IndoorSensor, err)
	}
	c.current = Float(current)
	d.CurrentC = current

	if c.target == nil {
		c.log.Debugw("climate_no_target_devices_off")
		if err := c.commandPrimary(ctx, ModeOff, nil, &d); err != nil {
			return d, err
		}
		if err := c.commandSecondary(ctx, ModeOff, nil, &d); err != nil {
			return d, err
		}
		return d, nil
	}

	target := *c.target
	runtimeElapsed := skipMinRuntime || now.Sub(c.lastSwitch) >= c.cfg.MinRuntime
	candidate := ModeOff

	switch {
	case current < target-c.cfg.PrimaryThreshold:
		d.Candidate = ModeHeat
		d.Diff = target - current
		candidate = ModeHeat
		if c.heatingSuppressed(ctx, &d) {
			candidate = ModeOff
			d.Suppressed = SuppressedOutdoorWarm
		}
	case current > target+c.cfg.PrimaryThreshold:
		d.Candidate = ModeCool
		d.Diff = current - target
		candidate = ModeCool
		if c.coolingSuppressed(ctx, &d) {
			candidate = ModeOff
			d.Suppressed = SuppressedOutdoorCool
		}
	default:
		if !runtimeElapsed {
			d.Held = true
			d.Effective = c.lastMode
			c.log.Debugw("climate_in_band_hold", "current", current, "target", target,
				"since_switch", now.Sub(c.lastSwitch).String())
			return d, nil
		}
	}

	if candidate != ModeOff {
		if locked, ok := c.syncedMode(current, target, now, &d); ok && locked != candidate {
			candidate = ModeOff
			d.Suppressed = SuppressedModeSync
		}
	}

	effective := candidate
	if candidate != ModeOff && candidate != c.lastMode && !runtimeElapsed {
		c.log.Debugw("climate_switch_suppressed", "from", c.lastMode.String(), "to", candidate.String())
		effective = c.lastMode
		d.Suppressed = SuppressedMinRuntime
	}
	d.Effective = effective

	c.log.Debugw("climate_evaluated",
		"current", current,
		"target", target,
		"diff", d.Diff,
		"candidate", d.Candidate.String(),
		"effective", effective.String(),
	)

	var primarySetpoint *float64
	if effective != ModeOff {
		primarySetpoint = Float(target + c.cfg.PrimaryOffset)
	}
	if err := c.commandPrimary(ctx, effective, primarySetpoint, &d); err != nil {
		return d, err
	}

	secondary := ModeOff
	var secondarySetpoint *float64
	if effective != ModeOff && d.Diff > c.cfg.SecondaryThreshold {
		secondary = effective
		secondarySetpoint = Float(target + c.cfg.SecondaryOffset)
	}
	d.Secondary = secondary
	if err := c.commandSecondary(ctx, secondary, secondarySetpoint, &d); err != nil {
		return d, err
	}

	if effective != ModeOff {
		c.lastSwitch = now
		c.lastMode = effective
	}
	return d, nil
}

// coolingSuppressed reports whether the outdoor reading forbids cooling. An
// unavailable outdoor reading suppresses cooling.
func (c *Controller) coolingSuppressed(ctx context.Context, d *Decision) bool {
	if c.cfg.OutdoorSensor == "" || c.cfg.OutdoorHotThreshold == nil {
		return false
	}
	outdoor, ok := c.readOutdoor(ctx, d)
	if !ok || outdoor < *c.cfg.OutdoorHotThreshold {
		c.log.Debugw("climate_cooling_suppressed", "outdoor", floatField(d.OutdoorC),
			"threshold", *c.cfg.OutdoorHotThreshold)
		return true
	}
	return false
}

// heatingSuppressed reports whether the outdoor reading forbids heating. An
// unavailable outdoor reading never suppresses heating.
func (c *Controller) heatingSuppressed(ctx context.Context, d *Decision) bool {
	if c.cfg.OutdoorSensor == "" || c.cfg.OutdoorColdThreshold == nil {
		return false
	}
	outdoor, ok := c.readOutdoor(ctx, d)
	if ok && outdoor > *c.cfg.OutdoorColdThreshold {
		c.log.Debugw("climate_heating_suppressed", "outdoor", outdoor,
			"threshold", *c.cfg.OutdoorColdThreshold)
		return true
	}
	return false
}

func (c *Controller) readOutdoor(ctx context.Context, d *Decision) (float64, bool) {
	v, err := c.sensors.ReadSensor(ctx, c.cfg.OutdoorSensor)
	if err != nil {
		c.log.Errorw("outdoor_sensor_unavailable", "sensor", c.cfg.OutdoorSensor, "err", err)
		return 0, false
	}
	c.outdoor = Float(v)
	d.OutdoorC = Float(v)
	return v, true
}

// syncedMode evaluates the mode sync template. Errors mean no override.
func (c *Controller) syncedMode(current, target float64, now time.Time, d *Decision) (Mode, bool) {
	if c.modeSync == nil {
		return ModeOff, false
	}
	mode, ok, err := c.modeSync.Evaluate(ModeSyncInput{
		Indoor:  current,
		Outdoor: copyFloat(d.OutdoorC),
		Target:  target,
		Preset:  c.preset,
		Now:     now,
	})
	if err != nil {
		c.log.Errorw("mode_sync_template_failed", "err", err)
		return ModeOff, false
	}
	return mode, ok
}

func (c *Controller) commandPrimary(ctx context.Context, mode Mode, setpoint *float64, d *Decision) error {
	dev := c.cfg.PrimaryDevice

	if !c.primary.modeKnown || c.primary.mode != mode {
		if err := c.devices.SetHVACMode(ctx, dev, mode); err != nil {
			return c.commandError(dev, err)
		}
		c.primary.mode, c.primary.modeKnown = mode, true
		d.Commands = append(d.Commands, Command{Device: dev, Role: RolePrimary, Mode: &mode})
	}

	if mode == ModeOff || setpoint == nil || sameSetpoint(c.primary.setpoint, setpoint) {
		return nil
	}
	if err := c.devices.SetTemperature(ctx, dev, *setpoint); err != nil {
		return c.commandError(dev, err)
	}
	c.primary.setpoint = copyFloat(setpoint)
	d.Commands = append(d.Commands, Command{Device: dev, Role: RolePrimary, TempC: copyFloat(setpoint)})
	return nil
}

// commandSecondary sends the setpoint before the mode so the device never runs
// toward a stale target.
func (c *Controller) commandSecondary(ctx context.Context, mode Mode, setpoint *float64, d *Decision) error {
	dev := c.cfg.SecondaryDevice
	if dev == "" {
		return nil
	}
	if c.secondary.modeKnown && c.secondary.mode == mode && sameSetpoint(c.secondary.setpoint, setpoint) {
		return nil
	}

	if mode != ModeOff && setpoint != nil {
		if err := c.devices.SetTemperature(ctx, dev, *setpoint); err != nil {
			return c.commandError(dev, err)
		}
		d.Commands = append(d.Commands, Command{Device: dev, Role: RoleSecondary, TempC: copyFloat(setpoint)})
	}
	if err := c.devices.SetHVACMode(ctx, dev, mode); err != nil {
		return c.commandError(dev, err)
	}
	d.Commands = append(d.Commands, Command{Device: dev, Role: RoleSecondary, Mode: &mode})

	c.secondary.mode, c.secondary.modeKnown = mode, true
	c.secondary.setpoint = copyFloat(setpoint)
	return nil
}

func (c *Controller) commandError(device string, err error) error {
	c.log.Errorw("device_command_failed", "device", device, "err", err)
	return fmt.Errorf("%w: %s: %v", ErrCommandFailed, device, err)
}

func asUnavailable(err error) error {
	if errors.Is(err, ErrSensorUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrSensorUnavailable, err)
}

func sameSetpoint(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return Float(*v)
}

// floatField renders an optional value for structured logs.
func floatField(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
