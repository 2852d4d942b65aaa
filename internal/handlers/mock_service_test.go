package handlers

import (
	"context"
	"net/http"

	"smart_climate/internal/models"
	"smart_climate/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID  int
	signUpErr error
	token     string
	signInErr error
	op        service.Operator
	authErr   error

	lastSignUp [2]string
	lastSignIn [2]string
	lastToken  string
}

// testOperator is the operator every "valid" token authenticates as.
var testOperator = service.Operator{ID: 7, Username: "alice"}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUp = [2]string{username, password}
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) SignIn(_ context.Context, username, password string) (string, error) {
	m.lastSignIn = [2]string{username, password}
	return m.token, m.signInErr
}
func (m *mockAuth) Authenticate(token string) (service.Operator, error) {
	m.lastToken = token
	return m.op, m.authErr
}

type mockClimate struct {
	state models.ClimateState
	err   error

	lastOperator service.Operator

	lastID     string
	lastTemp   float64
	lastPreset string
	applyCalls int
}

func (m *mockClimate) SetTemperature(ctx context.Context, id string, tempC float64) (models.ClimateState, error) {
	m.lastID, m.lastTemp = id, tempC
	m.lastOperator, _ = service.OperatorFrom(ctx)
	return m.state, m.err
}
func (m *mockClimate) SetPreset(ctx context.Context, id, preset string) (models.ClimateState, error) {
	m.lastID, m.lastPreset = id, preset
	m.lastOperator, _ = service.OperatorFrom(ctx)
	return m.state, m.err
}
func (m *mockClimate) Apply(ctx context.Context, id string) (models.ClimateState, error) {
	m.lastID = id
	m.applyCalls++
	return m.state, m.err
}
func (m *mockClimate) Restore(ctx context.Context) error { return nil }

type mockMonitoring struct {
	states map[string]models.ClimateState
	order  []string
	err    error
}

func newMockMonitoring(states ...models.ClimateState) *mockMonitoring {
	m := &mockMonitoring{states: map[string]models.ClimateState{}}
	for _, st := range states {
		m.states[st.ControllerID] = st
		m.order = append(m.order, st.ControllerID)
	}
	return m
}

func (m *mockMonitoring) GetState(ctx context.Context, id string) (models.ClimateState, error) {
	if m.err != nil {
		return models.ClimateState{}, m.err
	}
	st, ok := m.states[id]
	if !ok {
		return models.ClimateState{}, service.ErrControllerNotFound
	}
	return st, nil
}

func (m *mockMonitoring) ListStates(ctx context.Context) ([]models.ClimateState, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.ClimateState, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.states[id])
	}
	return out, nil
}

type mockEventLog struct {
	resp       []models.ClimateEvent
	err        error
	lastFilter service.LogFilter
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.ClimateEvent, error) {
	m.lastFilter = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func withAuth(req *http.Request) *http.Request {
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
