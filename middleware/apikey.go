package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"music-player-go/logcolors"

	log "github.com/sirupsen/logrus"
)

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// isPublic matches exact paths and prefixes written as "/path/*".
func isPublic(path string, public []string) bool {
	for _, p := range public {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		} else if p == path {
			return true
		}
	}
	return false
}

// APIKeyMiddleware requires a matching X-API-Key header on every non-public
// path when required is set. A required but empty key is a misconfiguration:
// it is logged and requests are let through.
func APIKeyMiddleware(apiKey string, required bool, publicPaths []string) func(http.Handler) http.Handler {
	if required && apiKey == "" {
		log.Warnf("%s API key required but not configured, remote control is open", logcolors.LogAPIKey)
	}

	return func(next http.Handler) http.Handler {
		if !required || apiKey == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || isPublic(r.URL.Path, publicPaths) {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-API-Key")
			switch {
			case provided == "":
				log.Warnf("%s Missing API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, r.URL.Path)
				writeJSONError(w, http.StatusUnauthorized, "API key required")
			case subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1:
				log.Warnf("%s Invalid API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, r.URL.Path)
				writeJSONError(w, http.StatusUnauthorized, "Invalid API key")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
