package climate

import (
	"fmt"
	"time"
)

// Defaults applied by Config.WithDefaults.
const (
	DefaultPrimaryThreshold   = 0.0
	DefaultSecondaryThreshold = 2.0
	DefaultPrimaryOffset      = 1.0
	DefaultSecondaryOffset    = 0.0
	DefaultMinRuntime         = 300 * time.Second
	DefaultPreset             = "eco"
)

// DefaultOutdoorHotThreshold mirrors the cooling "home" setpoint.
const DefaultOutdoorHotThreshold = 26.0

// Config describes one controlled device pair. It is not modified after NewController.
type Config struct {
	ID   string
	Name string

	PrimaryDevice   string
	SecondaryDevice string // optional
	IndoorSensor    string
	OutdoorSensor   string // optional

	PrimaryThreshold   float64
	SecondaryThreshold float64

	OutdoorHotThreshold  *float64
	OutdoorColdThreshold *float64

	PrimaryOffset   float64
	SecondaryOffset float64

	HeatingPresets Presets
	CoolingPresets Presets

	MinRuntime             time.Duration
	SkipMinRuntimeOnPreset bool

	InitialPreset    string
	ModeSyncTemplate string
}

// DefaultConfig returns a Config populated with the defaults for every optional field.
func DefaultConfig() Config {
	return Config{
		PrimaryThreshold:       DefaultPrimaryThreshold,
		SecondaryThreshold:     DefaultSecondaryThreshold,
		OutdoorHotThreshold:    Float(DefaultOutdoorHotThreshold),
		PrimaryOffset:          DefaultPrimaryOffset,
		SecondaryOffset:        DefaultSecondaryOffset,
		HeatingPresets:         DefaultHeatingPresets(),
		CoolingPresets:         DefaultCoolingPresets(),
		MinRuntime:             DefaultMinRuntime,
		SkipMinRuntimeOnPreset: true,
		InitialPreset:          DefaultPreset,
	}
}

// DisplayName returns Name, or a name derived from the device ids.
func (c Config) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if c.SecondaryDevice != "" {
		return fmt.Sprintf("Smart Climate (%s + %s)", c.PrimaryDevice, c.SecondaryDevice)
	}
	return fmt.Sprintf("Smart Climate (%s)", c.PrimaryDevice)
}

// Presets returns both preset tables.
func (c Config) Presets() PresetTables {
	return PresetTables{Heating: c.HeatingPresets, Cooling: c.CoolingPresets}
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	switch {
	case c.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidConfig)
	case c.PrimaryDevice == "":
		return fmt.Errorf("%w: %s: main climate device is required", ErrInvalidConfig, c.ID)
	case c.IndoorSensor == "":
		return fmt.Errorf("%w: %s: indoor sensor is required", ErrInvalidConfig, c.ID)
	case c.PrimaryThreshold < 0 || c.SecondaryThreshold < 0:
		return fmt.Errorf("%w: %s: thresholds must be >= 0", ErrInvalidConfig, c.ID)
	case c.MinRuntime < 0:
		return fmt.Errorf("%w: %s: min runtime must be >= 0", ErrInvalidConfig, c.ID)
	case len(c.HeatingPresets) == 0 && len(c.CoolingPresets) == 0:
		return fmt.Errorf("%w: %s: at least one preset is required", ErrInvalidConfig, c.ID)
	}
	if c.InitialPreset != "" && !c.Presets().Has(c.InitialPreset) {
		return fmt.Errorf("%w: %s: initial preset %q", ErrUnknownPreset, c.ID, c.InitialPreset)
	}
	return nil
}
