package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	_ "smart_climate/docs"
	"smart_climate/internal/service"
)

type swaggerDoc struct {
	Paths map[string]map[string]struct {
		Responses map[string]json.RawMessage `json:"responses"`
	} `json:"paths"`
}

var ginParam = regexp.MustCompile(`:(\w+)`)

func loadSwaggerDoc(t *testing.T) swaggerDoc {
	t.Helper()
	r := newTestRouter(&service.Service{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /swagger/doc.json = %d", w.Code)
	}
	var doc swaggerDoc
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode swagger doc: %v", err)
	}
	return doc
}

func TestSwaggerDocCoversRoutes(t *testing.T) {
	doc := loadSwaggerDoc(t)
	r := newTestRouter(&service.Service{})

	routes := map[string]bool{}
	for _, rt := range r.Routes() {
		if strings.HasPrefix(rt.Path, "/swagger/") {
			continue
		}
		path := ginParam.ReplaceAllString(rt.Path, "{$1}")
		method := strings.ToLower(rt.Method)
		routes[method+" "+path] = true
		if _, ok := doc.Paths[path][method]; !ok {
			t.Errorf("route %s %s is not documented", rt.Method, path)
		}
	}
	for path, ops := range doc.Paths {
		for method := range ops {
			if !routes[method+" "+path] {
				t.Errorf("documented %s %s has no route", method, path)
			}
		}
	}
}

func TestSwaggerDocAuthResponses(t *testing.T) {
	doc := loadSwaggerDoc(t)

	cases := map[string][]string{
		"/auth/sign-up": {"200", "400", "409", "500"},
		"/auth/sign-in": {"200", "400", "401", "500"},
	}
	for path, codes := range cases {
		got := doc.Paths[path]["post"].Responses
		for _, code := range codes {
			if _, ok := got[code]; !ok {
				t.Errorf("%s: response %s not documented", path, code)
			}
		}
	}
}
