package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"speselog/internal/log"
)

func TestMiddlewareAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Component: log.ComponentHTTP, Output: &buf})
	m := NewMiddleware(logger, nil)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		log.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("unexpected request id %q", seen)
	}
	out := buf.String()
	if strings.Count(out, seen) != 2 {
		t.Fatalf("handler log and completion log should both carry the request id:\n%s", out)
	}
	if !strings.Contains(out, "status_code=418") || !strings.Contains(out, "level=WARN") {
		t.Fatalf("completion log missing status or level:\n%s", out)
	}
	if m.Requests() != 1 {
		t.Fatalf("expected 1 request, got %d", m.Requests())
	}
}
