package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"music-player-go/middleware"
	"music-player-go/models"
	"music-player-go/player"
	"music-player-go/search"
)

func (e *testEnv) do(t *testing.T, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	e.server.Router().ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func TestGetPlayer_Idle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/player", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if got := w.Header().Get("X-Player-State"); got != "idle" {
		t.Errorf("Expected X-Player-State idle, got %q", got)
	}

	view := decodeBody[player.View](t, w)
	if view.CatalogSize != 3 {
		t.Errorf("Expected catalog size 3, got %d", view.CatalogSize)
	}
	if view.Song != nil {
		t.Errorf("Expected no song, got %+v", view.Song)
	}
}

func TestPlayByIndex(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/player/play?index=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	view := decodeBody[player.View](t, w)
	if view.State != player.Playing {
		t.Errorf("Expected state playing, got %s", view.State)
	}
	if view.CatalogIndex != 1 {
		t.Errorf("Expected catalog index 1, got %d", view.CatalogIndex)
	}
	if got := env.audio.currentURL(); got != "http://music.test/api/play/2" {
		t.Errorf("Expected stream for song 2, got %q", got)
	}
}

func TestPlayByIndex_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		status int
	}{
		{"missing index", "/player/play", http.StatusBadRequest},
		{"non-numeric index", "/player/play?index=abc", http.StatusBadRequest},
		{"catalog index out of range", "/player/play?index=9", http.StatusNotFound},
		{"display index out of range", "/player/play?index=5&display=true", http.StatusNotFound},
		{"unknown id", "/player/play/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			w := env.do(t, http.MethodPost, tt.target, "")
			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			resp := decodeBody[ErrorResponse](t, w)
			if resp.Error == "" {
				t.Error("Expected an error message")
			}
		})
	}
}

func TestPlayByIndex_PlaybackFailure(t *testing.T) {
	env := newTestEnv(t)
	env.audio.playErr = errors.New("device busy")

	w := env.do(t, http.MethodPost, "/player/play?index=0", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected status 502, got %d", w.Code)
	}
	if got := w.Header().Get("X-Player-State"); got != "paused" {
		t.Errorf("Expected X-Player-State paused, got %q", got)
	}
}

func TestTransportRoutes_RequireSong(t *testing.T) {
	for _, target := range []string{"/player/toggle", "/player/seek?t=3", "/player/like"} {
		t.Run(target, func(t *testing.T) {
			env := newTestEnv(t)
			w := env.do(t, http.MethodPost, target, "")
			if w.Code != http.StatusConflict {
				t.Errorf("Expected status 409, got %d", w.Code)
			}
		})
	}
}

func TestSeekAndVolume(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/player/play?index=0", "")

	w := env.do(t, http.MethodPost, "/player/seek?t=42.5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if view := decodeBody[player.View](t, w); view.CurrentTime != 42.5 {
		t.Errorf("Expected current time 42.5, got %v", view.CurrentTime)
	}

	w = env.do(t, http.MethodPost, "/player/volume?v=2", "")
	if view := decodeBody[player.View](t, w); view.Volume != 1 {
		t.Errorf("Expected volume clamped to 1, got %v", view.Volume)
	}

	if w := env.do(t, http.MethodPost, "/player/seek?t=soon", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad seek, got %d", w.Code)
	}
}

func TestToggleModeCycles(t *testing.T) {
	env := newTestEnv(t)

	expected := []player.Mode{player.Random, player.Repeat, player.Sequence}
	for _, want := range expected {
		w := env.do(t, http.MethodPost, "/player/mode", "")
		if view := decodeBody[player.View](t, w); view.Mode != want {
			t.Errorf("Expected mode %s, got %s", want, view.Mode)
		}
	}
}

func TestToggleLike(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/player/play?index=0", "")

	w := env.do(t, http.MethodPost, "/player/like", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	view := decodeBody[player.View](t, w)
	if !view.IsLiked || view.LikesCount != 1 {
		t.Errorf("Expected liked with 1 like, got %v/%d", view.IsLiked, view.LikesCount)
	}
}

func TestPlaylistRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/playlist?id=2", "")
	if add := decodeBody[PlaylistAddResponse](t, w); !add.Added || add.Size != 1 {
		t.Errorf("Expected added with size 1, got %+v", add)
	}

	w = env.do(t, http.MethodPost, "/playlist?id=2", "")
	if add := decodeBody[PlaylistAddResponse](t, w); add.Added {
		t.Error("Expected duplicate add to be ignored")
	}

	if w := env.do(t, http.MethodPost, "/playlist?id=missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown song, got %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/playlist", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without id, got %d", w.Code)
	}

	env.do(t, http.MethodPost, "/playlist?id=3", "")
	w = env.do(t, http.MethodPost, "/playlist/1/play", "")
	if view := decodeBody[player.View](t, w); !view.FromPlaylist || view.PlaylistIndex != 1 {
		t.Errorf("Expected playlist playback at 1, got from_playlist=%v index=%d", view.FromPlaylist, view.PlaylistIndex)
	}

	w = env.do(t, http.MethodDelete, "/playlist/0", "")
	list := decodeBody[PlaylistResponse](t, w)
	if len(list.Songs) != 1 || list.Songs[0].ID != "3" {
		t.Errorf("Expected only song 3 left, got %+v", list.Songs)
	}

	if w := env.do(t, http.MethodDelete, "/playlist/7", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 removing index 7, got %d", w.Code)
	}

	w = env.do(t, http.MethodDelete, "/playlist", "")
	if list := decodeBody[PlaylistResponse](t, w); len(list.Songs) != 0 {
		t.Errorf("Expected empty playlist, got %d songs", len(list.Songs))
	}
}

func TestCatalogViews(t *testing.T) {
	tests := []struct {
		target string
		status int
		view   string
	}{
		{"/catalog", http.StatusOK, "displayed"},
		{"/catalog?view=all", http.StatusOK, "all"},
		{"/catalog?view=liked", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			env := newTestEnv(t)
			w := env.do(t, http.MethodGet, tt.target, "")
			if w.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, w.Code)
			}
			if tt.status != http.StatusOK {
				return
			}
			resp := decodeBody[CatalogResponse](t, w)
			if resp.View != tt.view || len(resp.Songs) != 3 || resp.Page != 1 {
				t.Errorf("Unexpected catalog response: %+v", resp)
			}
		})
	}
}

func TestLoadMore(t *testing.T) {
	env := newTestEnv(t)
	env.music.more = models.Page{
		Songs:       []models.Song{{ID: "4", Name: "Fourth"}, {ID: "5", Name: "Fifth"}},
		TotalLoaded: 5,
		Total:       5,
		HasMore:     false,
	}

	w := env.do(t, http.MethodPost, "/catalog/more", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeBody[LoadMoreResponse](t, w)
	if resp.Page != 2 {
		t.Errorf("Expected page 2, got %d", resp.Page)
	}
	if resp.DisplayedSize != 5 {
		t.Errorf("Expected 5 displayed songs, got %d", resp.DisplayedSize)
	}
	if resp.Status != "no_more" {
		t.Errorf("Expected status no_more, got %q", resp.Status)
	}
	if len(env.music.pages) != 1 || env.music.pages[0] != 2 {
		t.Errorf("Expected a request for page 2, got %v", env.music.pages)
	}

	// An empty page leaves the page counter alone.
	env.music.more = models.Page{Total: 5, TotalLoaded: 5}
	w = env.do(t, http.MethodPost, "/catalog/more", "")
	if resp := decodeBody[LoadMoreResponse](t, w); resp.Page != 2 || resp.Added != 0 {
		t.Errorf("Expected page 2 with nothing added, got %+v", resp)
	}
}

func TestSearchRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.music.results = []models.SearchResult{{Title: "Hello", Artist: "Adele"}}

	w := env.do(t, http.MethodGet, "/search?q=hello", "")
	view := decodeBody[search.View](t, w)
	if !view.ResultsVisible || len(view.Results) != 1 {
		t.Errorf("Expected one visible result, got %+v", view)
	}

	w = env.do(t, http.MethodGet, "/search/suggest?q=hel", "")
	if w.Code != http.StatusAccepted {
		t.Errorf("Expected status 202, got %d", w.Code)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		w = env.do(t, http.MethodGet, "/search/suggest", "")
		if v := decodeBody[search.View](t, w); v.SuggestionsVisible {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for suggestions")
		}
		time.Sleep(5 * time.Millisecond)
	}

	w = env.do(t, http.MethodPost, "/search/dismiss", "")
	if v := decodeBody[search.View](t, w); v.SuggestionsVisible {
		t.Error("Expected suggestions hidden after dismiss")
	}
}

func TestDownload(t *testing.T) {
	env := newTestEnv(t)
	env.music.download = models.DownloadResult{
		Success: true,
		Song:    &models.Song{ID: "9", Name: "Fresh"},
	}

	w := env.do(t, http.MethodPost, "/download", `{"song":"Fresh","artist":"New"}`)
	resp := decodeBody[DownloadResponse](t, w)
	if resp.Notification.Kind != search.KindSuccess {
		t.Errorf("Expected success notification, got %+v", resp.Notification)
	}
	if got := len(env.player.Catalog()); got != 4 {
		t.Errorf("Expected downloaded song in catalog (4 songs), got %d", got)
	}

	// Downloading the same song again does not duplicate it.
	env.do(t, http.MethodPost, "/download", `{"song":"Fresh","artist":"New"}`)
	if got := len(env.player.Catalog()); got != 4 {
		t.Errorf("Expected catalog to stay at 4 songs, got %d", got)
	}

	if w := env.do(t, http.MethodPost, "/download", `{not json`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed body, got %d", w.Code)
	}
}

func TestLyricsRoute(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/lyrics", "")
	if resp := decodeBody[LyricsResponse](t, w); len(resp.Lines) != 0 {
		t.Errorf("Expected no lyrics before playback, got %d lines", len(resp.Lines))
	}
}

func TestCircuitBreakerRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.breaker.RecordFailure()
	env.breaker.RecordFailure()

	w := env.do(t, http.MethodGet, "/circuit-breaker", "")
	resp := decodeBody[CircuitBreakerResponse](t, w)
	if resp.State != "OPEN" || resp.Failures != 2 {
		t.Errorf("Expected OPEN with 2 failures, got %+v", resp)
	}

	w = env.do(t, http.MethodGet, "/health", "")
	if health := decodeBody[HealthResponse](t, w); health.Status != "degraded" {
		t.Errorf("Expected degraded health while open, got %q", health.Status)
	}

	w = env.do(t, http.MethodPost, "/circuit-breaker/reset", "")
	if resp := decodeBody[CircuitBreakerResponse](t, w); resp.State != "CLOSED" {
		t.Errorf("Expected CLOSED after reset, got %s", resp.State)
	}
}

func TestSnapshotBackups(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/snapshot/backup", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decodeBody[BackupResponse](t, w); resp.Path == "" {
		t.Error("Expected a backup path")
	}

	w = env.do(t, http.MethodGet, "/snapshot/backups", "")
	if list := decodeBody[BackupListResponse](t, w); list.Count != 1 {
		t.Errorf("Expected 1 backup, got %d", list.Count)
	}
}

func TestStatsRoute(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/player/play?index=0", "")

	w := env.do(t, http.MethodGet, "/stats", "")
	body := decodeBody[map[string]map[string]interface{}](t, w)
	if got := body["playback"]["songs_started"]; got != float64(1) {
		t.Errorf("Expected 1 song started, got %v", got)
	}
	if _, ok := body["snapshot_store"]; !ok {
		t.Error("Expected snapshot_store section")
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/nowhere", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	w = env.do(t, http.MethodDelete, "/player", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestHandler_MiddlewareChain(t *testing.T) {
	env := newTestEnv(t)
	handler := env.server.Handler(HandlerOptions{
		AllowedOrigins: []string{"http://localhost:3000"},
		APIKey:         "secret",
		APIKeyRequired: true,
		Limiter:        middleware.NewIPRateLimiter(100, 100),
	})

	tests := []struct {
		name   string
		path   string
		key    string
		status int
	}{
		{"public health", "/health", "", http.StatusOK},
		{"missing key", "/player", "", http.StatusUnauthorized},
		{"wrong key", "/player", "nope", http.StatusUnauthorized},
		{"valid key", "/player", "secret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.key != "" {
				r.Header.Set("X-API-Key", tt.key)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			if w.Header().Get(middleware.RequestIDHeader) == "" {
				t.Error("Expected a request id header")
			}
		})
	}
}
