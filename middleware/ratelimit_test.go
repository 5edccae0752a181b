package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestGetLimiter_PerIP(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(1), 5)

	a := rl.GetLimiter("192.168.1.1")
	if a != rl.GetLimiter("192.168.1.1") {
		t.Error("Expected the same limiter for the same IP")
	}
	if a == rl.GetLimiter("192.168.1.2") {
		t.Error("Expected different limiters for different IPs")
	}
	if Remaining(a) != 5 {
		t.Errorf("Expected 5 tokens initially, got %d", Remaining(a))
	}
}

func TestPrune(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(1), 1)
	rl.GetLimiter("10.0.0.1")
	rl.visitors["10.0.0.1"].lastSeen = time.Now().Add(-time.Hour)
	rl.GetLimiter("10.0.0.2")

	if removed := rl.Prune(time.Minute); removed != 1 {
		t.Errorf("Expected 1 idle client removed, got %d", removed)
	}
	if _, ok := rl.visitors["10.0.0.2"]; !ok {
		t.Error("Expected active client to be kept")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	tests := []struct {
		name     string
		apiKey   string
		header   string
		expected []int
	}{
		{"burst then reject", "", "", []int{200, 200, 429}},
		{"valid key bypasses", "k", "k", []int{200, 200, 200}},
		{"wrong key is limited", "k", "x", []int{200, 200, 429}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RateLimitMiddleware(NewIPRateLimiter(rate.Limit(0.001), 2), tt.apiKey)(ok)

			for i, want := range tt.expected {
				req := httptest.NewRequest(http.MethodGet, "/player", nil)
				req.RemoteAddr = "192.168.1.9:5555"
				if tt.header != "" {
					req.Header.Set("X-API-Key", tt.header)
				}
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)

				if rec.Code != want {
					t.Errorf("Request %d: expected status %d, got %d", i, want, rec.Code)
				}
				if want == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
					t.Error("Expected Retry-After on rejected request")
				}
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[::1]:8080"
	if got := clientIP(req); got != "::1" {
		t.Errorf("Expected ::1, got %q", got)
	}
	req.RemoteAddr = "pipe"
	if got := clientIP(req); got != "pipe" {
		t.Errorf("Expected raw address fallback, got %q", got)
	}
}
