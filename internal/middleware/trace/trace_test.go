package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"brokemate/internal/log"
)

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf, Component: log.ComponentApp})

	var seenID string
	var seenLogger *log.Logger
	handler := NewMiddleware(logger, func(*http.Request) string { return "203.0.113.1" }).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenID = GetRequestID(r.Context())
			seenLogger = log.FromContext(r.Context())
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("short and stout"))
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/transaction", nil))

	assert.True(t, strings.HasPrefix(seenID, "req_"))
	assert.Equal(t, seenID, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, log.ComponentHTTP, seenLogger.Component())

	out := buf.String()
	assert.Contains(t, out, "HTTP request completed")
	assert.Contains(t, out, "request_id="+seenID)
	assert.Contains(t, out, "status_code=418")
	assert.Contains(t, out, "path=/transaction")
	assert.Contains(t, out, "client_ip=203.0.113.1")
	assert.Contains(t, out, "level=WARN")
}

func TestMiddleware_UpstreamRequestID(t *testing.T) {
	logger := log.New(log.Config{Output: &bytes.Buffer{}})
	handler := NewMiddleware(logger, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "edge-abc.123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "edge-abc.123", rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "bad id with spaces\n")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.True(t, strings.HasPrefix(rec.Header().Get(RequestIDHeader), "req_"))
}

func TestGenerateRequestID(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, len("req_")+16)
}
