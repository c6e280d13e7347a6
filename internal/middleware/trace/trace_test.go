package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "financas/internal/log"
)

func TestMiddleware_AssignsRequestIDAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Handler: applog.NewHandler(&buf, slog.LevelInfo, "text")})

	var seenID string
	var seenLogger *applog.Logger
	h := NewMiddleware(logger, func(*http.Request) string { return "203.0.113.9" }).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenID = GetRequestID(r.Context())
			seenLogger = applog.FromContext(r.Context())
			w.WriteHeader(http.StatusNotFound)
		}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/movements", nil))

	if !strings.HasPrefix(seenID, "req_") {
		t.Fatalf("request id = %q, want req_ prefix", seenID)
	}
	if got := rr.Header().Get(RequestIDHeader); got != seenID {
		t.Errorf("%s header = %q, want %q", RequestIDHeader, got, seenID)
	}
	if seenLogger == nil || seenLogger.Logger == nil {
		t.Fatal("request logger missing from context")
	}

	out := buf.String()
	for _, want := range []string{"HTTP request started", "HTTP request completed", "status_code=404", "client_ip=203.0.113.9", "level=WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestMiddleware_Metrics(t *testing.T) {
	logger := applog.New(applog.Config{Handler: applog.NewHandler(&bytes.Buffer{}, slog.LevelError, "text")})
	m := NewMiddleware(logger, nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	if got := m.GetMetrics().TotalRequests; got != 3 {
		t.Errorf("TotalRequests = %d, want 3", got)
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetRequestID(r.Context()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}
