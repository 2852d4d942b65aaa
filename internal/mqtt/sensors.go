package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smart_climate/internal/climate"
	"smart_climate/internal/logger"
)

// DefaultSensorMaxAge is how long a cached reading stays usable.
const DefaultSensorMaxAge = 10 * time.Minute

type reading struct {
	value float64
	at    time.Time
}

// SensorCache keeps the latest reading published on each sensor topic.
type SensorCache struct {
	client Client
	qos    byte
	topics map[string]string // sensor id -> topic
	maxAge time.Duration
	log    *logger.Logger
	now    func() time.Time

	mu       sync.RWMutex
	readings map[string]reading
}

// NewSensorCache maps sensor ids to the topics their readings arrive on.
// maxAge <= 0 means DefaultSensorMaxAge.
func NewSensorCache(client Client, topics map[string]string, qos byte, maxAge time.Duration, log *logger.Logger) *SensorCache {
	if maxAge <= 0 {
		maxAge = DefaultSensorMaxAge
	}
	if log == nil {
		log = logger.Nop()
	}
	t := make(map[string]string, len(topics))
	for id, topic := range topics {
		t[id] = topic
	}
	return &SensorCache{
		client:   client,
		qos:      qos,
		topics:   t,
		maxAge:   maxAge,
		log:      log.Named("mqtt_sensors"),
		now:      time.Now,
		readings: map[string]reading{},
	}
}

// Start subscribes to every sensor topic.
func (s *SensorCache) Start() error {
	for id, topic := range s.topics {
		id := id
		if err := s.client.Subscribe(topic, s.qos, func(_ string, payload []byte) {
			s.handle(id, payload)
		}); err != nil {
			return fmt.Errorf("subscribe sensor %s: %w", id, err)
		}
	}
	return nil
}

func (s *SensorCache) handle(id string, payload []byte) {
	v, err := ParseReading(payload)
	if err != nil {
		// An unusable payload invalidates the previous value.
		s.mu.Lock()
		delete(s.readings, id)
		s.mu.Unlock()
		s.log.Warnw("sensor_payload_rejected", "sensor", id, "err", err)
		return
	}
	s.mu.Lock()
	s.readings[id] = reading{value: v, at: s.now()}
	s.mu.Unlock()
	s.log.Debugw("sensor_reading", "sensor", id, "value", v)
}

// ReadSensor returns the cached value for sensorID.
func (s *SensorCache) ReadSensor(_ context.Context, sensorID string) (float64, error) {
	if _, ok := s.topics[sensorID]; !ok {
		return 0, fmt.Errorf("%w: sensor %s has no topic", climate.ErrSensorUnavailable, sensorID)
	}
	s.mu.RLock()
	r, ok := s.readings[sensorID]
	s.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: no reading for %s", climate.ErrSensorUnavailable, sensorID)
	}
	if age := s.now().Sub(r.at); age > s.maxAge {
		return 0, fmt.Errorf("%w: reading for %s is %s old", climate.ErrSensorUnavailable, sensorID, age.Truncate(time.Second))
	}
	return r.value, nil
}

var _ climate.SensorReader = (*SensorCache)(nil)
