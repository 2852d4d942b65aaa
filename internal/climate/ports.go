package climate

import (
	"context"
	"time"
)

// SensorReader reads the numeric state of a named sensor.
// Implementations return an error wrapping ErrSensorUnavailable when the value is missing,
// unknown or cannot be parsed.
type SensorReader interface {
	ReadSensor(ctx context.Context, sensorID string) (float64, error)
}

// DeviceCommander sends commands to a named climate device.
type DeviceCommander interface {
	SetHVACMode(ctx context.Context, deviceID string, mode Mode) error
	SetTemperature(ctx context.Context, deviceID string, tempC float64) error
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
