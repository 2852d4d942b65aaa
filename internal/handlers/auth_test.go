package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"smart_climate/internal/service"
)

func postAuth(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAuthHandlers_SignUp(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{"created", `{"username":"alice","password":"pw"}`, nil, http.StatusOK},
		{"taken", `{"username":"alice","password":"pw"}`, fmt.Errorf("%w: alice", service.ErrUsernameTaken), http.StatusConflict},
		{"bad username", `{"username":"a b","password":"pw"}`, service.ErrInvalidUsername, http.StatusBadRequest},
		{"store down", `{"username":"alice","password":"pw"}`, errors.New("database is locked"), http.StatusInternalServerError},
		{"missing password", `{"username":"alice"}`, nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{signUpID: 42, signUpErr: tc.err}
			r := newTestRouter(&service.Service{Authorization: auth})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, postAuth("/auth/sign-up", tc.body))
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d want %d, body=%s", w.Code, tc.wantCode, w.Body.String())
			}
			if tc.wantCode == http.StatusOK {
				var out struct {
					ID int `json:"id"`
				}
				_ = json.Unmarshal(w.Body.Bytes(), &out)
				if out.ID != 42 || auth.lastSignUp != [2]string{"alice", "pw"} {
					t.Fatalf("unexpected result id=%d call=%v", out.ID, auth.lastSignUp)
				}
			}
		})
	}
}

func TestAuthHandlers_SignIn(t *testing.T) {
	auth := &mockAuth{token: "tok123"}
	r := newTestRouter(&service.Service{Authorization: auth})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postAuth("/auth/sign-in", `{"username":"alice","password":"pw"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Token != "tok123" {
		t.Fatalf("token=%q", out.Token)
	}

	auth.signInErr = service.ErrInvalidCredentials
	w = httptest.NewRecorder()
	r.ServeHTTP(w, postAuth("/auth/sign-in", `{"username":"alice","password":"nope"}`))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad credentials, got %d", w.Code)
	}

	auth.signInErr = service.ErrNoSigningKey
	w = httptest.NewRecorder()
	r.ServeHTTP(w, postAuth("/auth/sign-in", `{"username":"alice","password":"pw"}`))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when tokens cannot be issued, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, postAuth("/auth/sign-in", `{"username":1}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad body, got %d", w.Code)
	}
}
