package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIKeyMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	public := []string{"/health", "/static/*"}

	tests := []struct {
		name     string
		key      string
		required bool
		path     string
		header   string
		expected int
	}{
		{"not required", "secret", false, "/player", "", http.StatusOK},
		{"required but unconfigured", "", true, "/player", "", http.StatusOK},
		{"missing key", "secret", true, "/player", "", http.StatusUnauthorized},
		{"wrong key", "secret", true, "/player", "nope", http.StatusUnauthorized},
		{"right key", "secret", true, "/player", "secret", http.StatusOK},
		{"public exact", "secret", true, "/health", "", http.StatusOK},
		{"public prefix", "secret", true, "/static/app.css", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := APIKeyMiddleware(tt.key, tt.required, public)(ok)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, rec.Code)
			}
			if rec.Code == http.StatusUnauthorized && rec.Header().Get("Content-Type") != "application/json" {
				t.Error("Expected JSON error body")
			}
		})
	}
}
