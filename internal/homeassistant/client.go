// Package homeassistant reads sensors and commands climate entities through
// the Home Assistant REST API.
package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"smart_climate/internal/climate"
	"smart_climate/internal/logger"
)

// DefaultTimeout bounds a single REST call.
const DefaultTimeout = 10 * time.Second

// ErrNotConfigured is returned when the base URL or token is missing.
var ErrNotConfigured = errors.New("home assistant not configured")

// Client implements climate.SensorReader and climate.DeviceCommander.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	log        *logger.Logger
}

var (
	_ climate.SensorReader    = (*Client)(nil)
	_ climate.DeviceCommander = (*Client)(nil)
)

// NewClient returns a client for the instance at baseURL, authenticated with a
// long-lived access token.
func NewClient(baseURL, token string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		url:        strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.Named("homeassistant"),
	}
}

func (c *Client) IsConfigured() bool {
	return c.url != "" && c.token != ""
}

type entityState struct {
	EntityID   string                 `json:"entity_id"`
	State      string                 `json:"state"`
	Attributes map[string]interface{} `json:"attributes"`
}

// ReadSensor returns the numeric state of a sensor entity. Missing entities,
// "unknown"/"unavailable" states and non-numeric states are ErrSensorUnavailable.
func (c *Client) ReadSensor(ctx context.Context, entityID string) (float64, error) {
	if !c.IsConfigured() {
		return 0, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/api/states/"+entityID, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", climate.ErrSensorUnavailable, entityID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, fmt.Errorf("%w: %s: entity not found", climate.ErrSensorUnavailable, entityID)
	case resp.StatusCode != http.StatusOK:
		return 0, fmt.Errorf("%w: %s: HA API error: %d", climate.ErrSensorUnavailable, entityID, resp.StatusCode)
	}

	var st entityState
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return 0, fmt.Errorf("%w: %s: decode state: %v", climate.ErrSensorUnavailable, entityID, err)
	}
	return parseState(entityID, st.State)
}

func parseState(entityID, state string) (float64, error) {
	switch state {
	case "", "unknown", "unavailable":
		return 0, fmt.Errorf("%w: %s is %q", climate.ErrSensorUnavailable, entityID, state)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(state), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: non-numeric state %q", climate.ErrSensorUnavailable, entityID, state)
	}
	return v, nil
}

// SetHVACMode calls climate.set_hvac_mode.
func (c *Client) SetHVACMode(ctx context.Context, entityID string, mode climate.Mode) error {
	return c.callService(ctx, "climate", "set_hvac_mode", map[string]interface{}{
		"entity_id": entityID,
		"hvac_mode": mode.String(),
	})
}

// SetTemperature calls climate.set_temperature.
func (c *Client) SetTemperature(ctx context.Context, entityID string, tempC float64) error {
	return c.callService(ctx, "climate", "set_temperature", map[string]interface{}{
		"entity_id":   entityID,
		"temperature": tempC,
	})
}

func (c *Client) callService(ctx context.Context, domain, service string, payload map[string]interface{}) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/api/services/%s/%s", c.url, domain, service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s.%s: %w", domain, service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("call %s.%s: HA API error: %d", domain, service, resp.StatusCode)
	}
	c.log.Debugw("ha_service_called", "service", domain+"."+service, "entity", payload["entity_id"])
	return nil
}
