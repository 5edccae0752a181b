// Package search holds the state of the online search box: debounced
// suggestions while typing, explicit result lists, and download requests for
// songs found online.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"music-player-go/logcolors"
	"music-player-go/models"
	"music-player-go/stats"

	log "github.com/sirupsen/logrus"
)

// DefaultDebounce is the pause in typing before suggestions are fetched.
const DefaultDebounce = 300 * time.Millisecond

// Backend is the part of the music server the search box uses.
type Backend interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
	Download(ctx context.Context, song, artist string) (models.DownloadResult, error)
}

// Options tune a Manager. Zero values select defaults.
type Options struct {
	Debounce time.Duration
	Stats    *stats.Stats

	// OnUpdate receives the view after every asynchronous suggestion update.
	OnUpdate func(View)
}

// View is what a search box would render.
type View struct {
	Query              string                `json:"query"`
	SuggestionsVisible bool                  `json:"suggestions_visible"`
	Suggestions        []models.SearchResult `json:"suggestions"`
	ResultsVisible     bool                  `json:"results_visible"`
	Results            []models.SearchResult `json:"results"`
	Error              string                `json:"error,omitempty"`
}

// NotificationKind classifies a Notification.
type NotificationKind string

const (
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
)

// Notification is the user-facing outcome of a download.
type Notification struct {
	Message string           `json:"message"`
	Kind    NotificationKind `json:"kind"`
	Song    *models.Song     `json:"song,omitempty"`
}

// Manager is safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	backend  Backend
	debounce time.Duration
	stats    *stats.Stats
	onUpdate func(View)

	base       context.Context
	stop       context.CancelFunc
	timer      *time.Timer
	cancel     context.CancelFunc
	generation uint64

	view View
}

// New returns a manager using backend for lookups.
func New(backend Backend, opts Options) *Manager {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Stats == nil {
		opts.Stats = stats.Get()
	}
	base, stop := context.WithCancel(context.Background())
	return &Manager{
		backend:  backend,
		debounce: opts.Debounce,
		stats:    opts.Stats,
		onUpdate: opts.OnUpdate,
		base:     base,
		stop:     stop,
	}
}

// Suggest records a keystroke. Suggestions are fetched once typing pauses;
// a newer keystroke cancels the pending fetch. An empty query hides them.
func (m *Manager) Suggest(query string) {
	query = strings.TrimSpace(query)

	m.mu.Lock()
	m.cancelPendingLocked()
	m.generation++
	m.view.Query = query

	if query == "" {
		m.view.SuggestionsVisible = false
		m.view.Suggestions = nil
		m.mu.Unlock()
		return
	}

	gen := m.generation
	ctx, cancel := context.WithCancel(m.base)
	m.cancel = cancel
	m.timer = time.AfterFunc(m.debounce, func() {
		m.fetchSuggestions(ctx, gen, query)
	})
	m.mu.Unlock()
}

func (m *Manager) fetchSuggestions(ctx context.Context, gen uint64, query string) {
	results, err := m.backend.Search(ctx, query)

	m.mu.Lock()
	if gen != m.generation || ctx.Err() != nil {
		m.mu.Unlock()
		m.stats.StaleResponses.Add(1)
		log.Debugf("%s Dropped suggestions for %q, query changed", logcolors.LogSearch, query)
		return
	}

	if err != nil {
		log.Warnf("%s Suggestions for %q failed: %v", logcolors.LogSearch, query, err)
		m.view.Error = "Failed to load suggestions"
	} else {
		m.view.Error = ""
		m.view.Suggestions = results
		m.view.SuggestionsVisible = true
	}
	v := m.viewLocked()
	cb := m.onUpdate
	m.mu.Unlock()

	if cb != nil {
		cb(v)
	}
}

// Search runs an explicit search. Results become visible and suggestions are
// hidden. An empty query hides the results.
func (m *Manager) Search(ctx context.Context, query string) (View, error) {
	query = strings.TrimSpace(query)

	m.mu.Lock()
	m.cancelPendingLocked()
	m.generation++
	gen := m.generation
	m.view.Query = query
	m.view.SuggestionsVisible = false

	if query == "" {
		m.view.ResultsVisible = false
		m.view.Results = nil
		v := m.viewLocked()
		m.mu.Unlock()
		return v, nil
	}
	m.mu.Unlock()

	results, err := m.backend.Search(ctx, query)

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		m.stats.StaleResponses.Add(1)
		return m.viewLocked(), nil
	}

	if err != nil {
		log.Errorf("%s Search for %q failed: %v", logcolors.LogSearch, query, err)
		m.view.Error = "Search failed, please try again later"
		return m.viewLocked(), err
	}

	log.Infof("%s %d results for %q", logcolors.LogSearch, len(results), query)
	m.view.Error = ""
	m.view.Results = results
	m.view.ResultsVisible = true
	return m.viewLocked(), nil
}

// Dismiss hides the suggestion list, as clicking outside the search box does.
func (m *Manager) Dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelPendingLocked()
	m.generation++
	m.view.SuggestionsVisible = false
}

// Download asks the server to add a song found online. Failures become an
// error notification rather than a returned error.
func (m *Manager) Download(ctx context.Context, song, artist string) Notification {
	song = strings.TrimSpace(song)
	if song == "" {
		return Notification{Message: "Song name is required", Kind: KindError}
	}

	result, err := m.backend.Download(ctx, song, strings.TrimSpace(artist))
	if err != nil {
		log.Errorf("%s Download of %q failed: %v", logcolors.LogDownload, song, err)
		return Notification{Message: "Download failed, please try again later", Kind: KindError}
	}
	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = "Download failed"
		}
		return Notification{Message: msg, Kind: KindError}
	}
	return Notification{Message: "Download complete", Kind: KindSuccess, Song: result.Song}
}

// View returns a copy of the current state.
func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

func (m *Manager) viewLocked() View {
	v := m.view
	v.Suggestions = append([]models.SearchResult(nil), m.view.Suggestions...)
	v.Results = append([]models.SearchResult(nil), m.view.Results...)
	return v
}

// Close cancels any pending suggestion fetch.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelPendingLocked()
	m.stop()
}

func (m *Manager) cancelPendingLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}
