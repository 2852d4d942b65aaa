package homeassistant

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"smart_climate/internal/climate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	path string
	body map[string]interface{}
}

func newFakeHA(t *testing.T, states map[string]string) (*httptest.Server, *[]recordedCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recordedCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodGet && len(r.URL.Path) > len("/api/states/"):
			id := r.URL.Path[len("/api/states/"):]
			st, ok := states[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"entity_id": id, "state": st})
		case r.Method == http.MethodPost:
			raw, _ := io.ReadAll(r.Body)
			var body map[string]interface{}
			_ = json.Unmarshal(raw, &body)
			mu.Lock()
			calls = append(calls, recordedCall{path: r.URL.Path, body: body})
			mu.Unlock()
			if body["entity_id"] == "climate.broken" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte("[]"))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestClient_ReadSensor(t *testing.T) {
	srv, _ := newFakeHA(t, map[string]string{
		"sensor.living_room": "21.4",
		"sensor.offline":     "unavailable",
		"sensor.booting":     "unknown",
		"sensor.garbage":     "warm",
	})
	c := NewClient(srv.URL+"/", "secret", 0, nil)
	ctx := context.Background()

	v, err := c.ReadSensor(ctx, "sensor.living_room")
	require.NoError(t, err)
	assert.Equal(t, 21.4, v)

	for _, id := range []string{"sensor.offline", "sensor.booting", "sensor.garbage", "sensor.missing"} {
		_, err := c.ReadSensor(ctx, id)
		assert.ErrorIs(t, err, climate.ErrSensorUnavailable, id)
	}
}

func TestClient_ReadSensor_BadToken(t *testing.T) {
	srv, _ := newFakeHA(t, map[string]string{"sensor.x": "20"})
	c := NewClient(srv.URL, "wrong", 0, nil)

	_, err := c.ReadSensor(context.Background(), "sensor.x")
	assert.ErrorIs(t, err, climate.ErrSensorUnavailable)
}

func TestClient_Commands(t *testing.T) {
	srv, calls := newFakeHA(t, nil)
	c := NewClient(srv.URL, "secret", 0, nil)
	ctx := context.Background()

	require.NoError(t, c.SetHVACMode(ctx, "climate.heat_pump", climate.ModeHeat))
	require.NoError(t, c.SetTemperature(ctx, "climate.heat_pump", 23))

	require.Len(t, *calls, 2)
	assert.Equal(t, "/api/services/climate/set_hvac_mode", (*calls)[0].path)
	assert.Equal(t, map[string]interface{}{"entity_id": "climate.heat_pump", "hvac_mode": "heat"}, (*calls)[0].body)
	assert.Equal(t, "/api/services/climate/set_temperature", (*calls)[1].path)
	assert.Equal(t, 23.0, (*calls)[1].body["temperature"])

	assert.Error(t, c.SetHVACMode(ctx, "climate.broken", climate.ModeOff))
}

func TestClient_NotConfigured(t *testing.T) {
	c := NewClient("", "", 0, nil)
	assert.False(t, c.IsConfigured())

	_, err := c.ReadSensor(context.Background(), "sensor.x")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, c.SetTemperature(context.Background(), "climate.x", 20), ErrNotConfigured)
}
