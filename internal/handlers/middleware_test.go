package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"smart_climate/internal/service"

	"github.com/gin-gonic/gin"
)

// operatorEcho answers with the operator found on the gin and request contexts.
func operatorEcho(c *gin.Context) {
	fromGin, _ := operatorFrom(c)
	fromReq, _ := service.OperatorFrom(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"gin": fromGin, "request": fromReq})
}

func newAuthOnlyRouter(auth *mockAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(&service.Service{Authorization: auth}, nil)
	r.GET("/secure", h.authMiddleware, operatorEcho)
	return r
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		authErr error
		wantMsg string
	}{
		{"missing header", "", nil, "missing Authorization header"},
		{"basic scheme", "Basic dXNlcjpwdw==", nil, "invalid Authorization header format"},
		{"bearer without token", "Bearer", nil, "invalid Authorization header format"},
		{"bearer with blank token", "Bearer    ", nil, "invalid Authorization header format"},
		{"rejected token", "Bearer stale", service.ErrInvalidToken, "invalid or expired token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{op: testOperator, authErr: tc.authErr}
			r := newAuthOnlyRouter(auth)

			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
			}
			var out struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out.Error != tc.wantMsg {
				t.Fatalf("error=%q, want %q", out.Error, tc.wantMsg)
			}
		})
	}
}

func TestAuthMiddleware_AttachesOperator(t *testing.T) {
	for _, header := range []string{"Bearer good-token", "bearer good-token", "  Bearer  good-token "} {
		auth := &mockAuth{op: testOperator}
		r := newAuthOnlyRouter(auth)

		req := httptest.NewRequest(http.MethodGet, "/secure", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("%q: status=%d, body=%s", header, w.Code, w.Body.String())
		}
		if auth.lastToken != "good-token" {
			t.Fatalf("%q: Authenticate got %q", header, auth.lastToken)
		}
		var out struct {
			Gin     service.Operator `json:"gin"`
			Request service.Operator `json:"request"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if out.Gin != testOperator || out.Request != testOperator {
			t.Fatalf("%q: operator not propagated: %+v", header, out)
		}
	}
}
