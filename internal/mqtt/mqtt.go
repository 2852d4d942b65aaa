// Package mqtt feeds sensor readings from MQTT topics and publishes device
// commands, with a broker abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"smart_climate/internal/climate"
)

// MessageHandler receives the topic and raw payload of an incoming message.
type MessageHandler func(topic string, payload []byte)

// Client is the subset of a broker connection used by this package.
type Client interface {
	// Publish sends payload to topic. Returns error if publishing fails.
	Publish(topic string, qos byte, retained bool, payload []byte) error

	// Subscribe registers handler for topic. Subscriptions survive reconnects.
	Subscribe(topic string, qos byte, handler MessageHandler) error

	// Close disconnects from the broker.
	Close() error
}

// ModeTopic is the topic device mode commands are published to.
func ModeTopic(prefix, device string) string {
	return joinTopic(prefix, device, "mode/set")
}

// TemperatureTopic is the topic device setpoints are published to.
func TemperatureTopic(prefix, device string) string {
	return joinTopic(prefix, device, "temperature/set")
}

func joinTopic(prefix, device, suffix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return device + "/" + suffix
	}
	return prefix + "/" + device + "/" + suffix
}

type readingPayload struct {
	Temperature *float64 `json:"temperature"`
	Value       *float64 `json:"value"`
}

// ParseReading accepts a plain number or a JSON object with a "temperature"
// or "value" field. "unknown" and "unavailable" are ErrSensorUnavailable.
func ParseReading(payload []byte) (float64, error) {
	s := strings.TrimSpace(string(payload))
	switch s {
	case "", "unknown", "unavailable":
		return 0, fmt.Errorf("%w: payload %q", climate.ErrSensorUnavailable, s)
	}

	if strings.HasPrefix(s, "{") {
		var p readingPayload
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			return 0, fmt.Errorf("%w: decode payload: %v", climate.ErrSensorUnavailable, err)
		}
		switch {
		case p.Temperature != nil:
			return *p.Temperature, nil
		case p.Value != nil:
			return *p.Value, nil
		}
		return 0, fmt.Errorf("%w: payload has no temperature or value", climate.ErrSensorUnavailable)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric payload %q", climate.ErrSensorUnavailable, s)
	}
	return v, nil
}
