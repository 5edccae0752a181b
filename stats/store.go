package stats

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"music-player-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// Key is the snapshot store key stats are persisted under.
const Key = "daemonStats"

// KV is the subset of the snapshot store used for persistence.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Store persists cumulative counters across daemon restarts
type Store struct {
	kv       KV
	stats    *Stats
	mu       sync.Mutex
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// PersistedStats is the on-disk form of the counters
type PersistedStats struct {
	TotalRequests     int64 `json:"total_requests"`
	PlayerRequests    int64 `json:"player_requests"`
	PlaylistRequests  int64 `json:"playlist_requests"`
	LyricsRequests    int64 `json:"lyrics_requests"`
	SearchRequests    int64 `json:"search_requests"`
	OtherRequests     int64 `json:"other_requests"`
	RateLimitExceeded int64 `json:"rate_limit_exceeded"`
	Status2xx         int64 `json:"status_2xx"`
	Status4xx         int64 `json:"status_4xx"`
	Status5xx         int64 `json:"status_5xx"`

	SongsStarted   int64 `json:"songs_started"`
	SongsCompleted int64 `json:"songs_completed"`
	PlaybackErrors int64 `json:"playback_errors"`
	LyricsLoaded   int64 `json:"lyrics_loaded"`
	LyricsMissing  int64 `json:"lyrics_missing"`
	LikesToggled   int64 `json:"likes_toggled"`
	StaleResponses int64 `json:"stale_responses"`
	UpstreamErrors int64 `json:"upstream_errors"`

	TotalResponseTime int64 `json:"total_response_time"`
	ResponseCount     int64 `json:"response_count"`
	MinResponseTime   int64 `json:"min_response_time"`
	MaxResponseTime   int64 `json:"max_response_time"`

	LastSaved    time.Time `json:"last_saved"`
	FirstStarted time.Time `json:"first_started"`
}

// NewStore binds s to kv.
func NewStore(kv KV, s *Stats) *Store {
	return &Store{
		kv:       kv,
		stats:    s,
		stopChan: make(chan struct{}),
	}
}

// Load applies persisted counters to the bound stats
func (st *Store) Load() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	raw, ok := st.kv.Get(Key)
	if !ok {
		return nil
	}

	var p PersistedStats
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}

	s := st.stats
	s.TotalRequests.Store(p.TotalRequests)
	s.PlayerRequests.Store(p.PlayerRequests)
	s.PlaylistRequests.Store(p.PlaylistRequests)
	s.LyricsRequests.Store(p.LyricsRequests)
	s.SearchRequests.Store(p.SearchRequests)
	s.OtherRequests.Store(p.OtherRequests)
	s.RateLimitExceeded.Store(p.RateLimitExceeded)
	s.Status2xx.Store(p.Status2xx)
	s.Status4xx.Store(p.Status4xx)
	s.Status5xx.Store(p.Status5xx)
	s.SongsStarted.Store(p.SongsStarted)
	s.SongsCompleted.Store(p.SongsCompleted)
	s.PlaybackErrors.Store(p.PlaybackErrors)
	s.LyricsLoaded.Store(p.LyricsLoaded)
	s.LyricsMissing.Store(p.LyricsMissing)
	s.LikesToggled.Store(p.LikesToggled)
	s.StaleResponses.Store(p.StaleResponses)
	s.UpstreamErrors.Store(p.UpstreamErrors)
	s.totalResponseTime.Store(p.TotalResponseTime)
	s.responseCount.Store(p.ResponseCount)

	if p.MinResponseTime > 0 && p.MinResponseTime < maxInt64 {
		s.minResponseTime.Store(p.MinResponseTime)
	}
	if p.MaxResponseTime > 0 {
		s.maxResponseTime.Store(p.MaxResponseTime)
	}
	if !p.FirstStarted.IsZero() {
		s.StartTime = p.FirstStarted
	}

	log.Infof("%s Loaded persisted stats (songs started: %d, first started: %s)",
		logcolors.LogStats, p.SongsStarted, p.FirstStarted.Format(time.RFC3339))
	return nil
}

// Save writes the current counters
func (st *Store) Save() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.stats
	p := PersistedStats{
		TotalRequests:     s.TotalRequests.Load(),
		PlayerRequests:    s.PlayerRequests.Load(),
		PlaylistRequests:  s.PlaylistRequests.Load(),
		LyricsRequests:    s.LyricsRequests.Load(),
		SearchRequests:    s.SearchRequests.Load(),
		OtherRequests:     s.OtherRequests.Load(),
		RateLimitExceeded: s.RateLimitExceeded.Load(),
		Status2xx:         s.Status2xx.Load(),
		Status4xx:         s.Status4xx.Load(),
		Status5xx:         s.Status5xx.Load(),
		SongsStarted:      s.SongsStarted.Load(),
		SongsCompleted:    s.SongsCompleted.Load(),
		PlaybackErrors:    s.PlaybackErrors.Load(),
		LyricsLoaded:      s.LyricsLoaded.Load(),
		LyricsMissing:     s.LyricsMissing.Load(),
		LikesToggled:      s.LikesToggled.Load(),
		StaleResponses:    s.StaleResponses.Load(),
		UpstreamErrors:    s.UpstreamErrors.Load(),
		TotalResponseTime: s.totalResponseTime.Load(),
		ResponseCount:     s.responseCount.Load(),
		MinResponseTime:   s.minResponseTime.Load(),
		MaxResponseTime:   s.maxResponseTime.Load(),
		LastSaved:         time.Now(),
		FirstStarted:      s.StartTime,
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	if err := st.kv.Set(Key, string(data)); err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}

// StartAutoSave begins periodic saving of stats
func (st *Store) StartAutoSave(interval time.Duration) {
	st.wg.Add(1)
	go func() {
		defer st.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := st.Save(); err != nil {
					log.Warnf("%s Failed to auto-save stats: %v", logcolors.LogStats, err)
				}
			case <-st.stopChan:
				return
			}
		}
	}()
	log.Infof("%s Started auto-save with interval %v", logcolors.LogStats, interval)
}

// Close stops auto-save and writes a final save
func (st *Store) Close() error {
	st.stopOnce.Do(func() { close(st.stopChan) })
	st.wg.Wait()

	if err := st.Save(); err != nil {
		return err
	}
	log.Infof("%s Stats saved on shutdown", logcolors.LogStats)
	return nil
}
