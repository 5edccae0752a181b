package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestGetStatusColor(t *testing.T) {
	tests := []struct {
		statusCode int
		expected   string
	}{
		{http.StatusOK, colorGreen},
		{http.StatusNoContent, colorGreen},
		{http.StatusFound, colorCyan},
		{http.StatusBadRequest, colorYellow},
		{http.StatusTooManyRequests, colorYellow},
		{http.StatusInternalServerError, colorRed},
		{http.StatusBadGateway, colorRed},
		{http.StatusContinue, colorReset},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.statusCode), func(t *testing.T) {
			if got := getStatusColor(tt.statusCode); got != tt.expected {
				t.Errorf("Expected color %q for status %d, got %q", tt.expected, tt.statusCode, got)
			}
		})
	}
}

func TestResponseRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := NewResponseRecorder(w)

	if rec.StatusCode != http.StatusOK {
		t.Errorf("Expected default status code %d, got %d", http.StatusOK, rec.StatusCode)
	}

	rec.WriteHeader(http.StatusAccepted)
	rec.Write([]byte("Hello"))
	rec.Write([]byte(", World"))

	if rec.StatusCode != http.StatusAccepted || w.Code != http.StatusAccepted {
		t.Errorf("Expected status %d recorded and forwarded, got %d / %d", http.StatusAccepted, rec.StatusCode, w.Code)
	}
	if rec.BodySize != len("Hello, World") {
		t.Errorf("Expected body size %d, got %d", len("Hello, World"), rec.BodySize)
	}
}

func TestLoggingMiddleware_AssignsRequestID(t *testing.T) {
	var seen string
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/player", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected status %d, got %d", http.StatusTeapot, rec.Code)
	}
	id := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("Expected a uuid request id, got %q", id)
	}
	if seen != id {
		t.Errorf("Expected handler to see request id %q, got %q", id, seen)
	}
}

func TestLoggingMiddleware_KeepsIncomingRequestID(t *testing.T) {
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/player/next", nil)
	req.Header.Set(RequestIDHeader, "from-playerctl")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "from-playerctl" {
		t.Errorf("Expected incoming request id to be kept, got %q", got)
	}
}
