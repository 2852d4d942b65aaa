package climate

import "errors"

var (
	// ErrSensorUnavailable is returned when a sensor is missing, unknown or not numeric.
	ErrSensorUnavailable = errors.New("sensor unavailable")
	// ErrUnknownPreset is returned when a preset is in neither preset table.
	ErrUnknownPreset = errors.New("preset mode not recognized")
	// ErrTemplate wraps mode sync template failures. They never abort an evaluation.
	ErrTemplate = errors.New("mode sync template")
	// ErrCommandFailed wraps errors returned by a DeviceCommander.
	ErrCommandFailed = errors.New("device command failed")
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid climate config")
)
