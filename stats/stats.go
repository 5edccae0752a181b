package stats

import (
	"strings"
	"sync/atomic"
	"time"
)

const maxInt64 = int64(^uint64(0) >> 1)

// Stats holds daemon and playback counters
type Stats struct {
	StartTime time.Time

	// Remote-control requests
	TotalRequests    atomic.Int64
	PlayerRequests   atomic.Int64
	PlaylistRequests atomic.Int64
	LyricsRequests   atomic.Int64
	SearchRequests   atomic.Int64
	OtherRequests    atomic.Int64

	RateLimitExceeded atomic.Int64

	Status2xx atomic.Int64
	Status4xx atomic.Int64
	Status5xx atomic.Int64

	// Playback
	SongsStarted   atomic.Int64
	SongsCompleted atomic.Int64
	PlaybackErrors atomic.Int64
	LyricsLoaded   atomic.Int64
	LyricsMissing  atomic.Int64
	LikesToggled   atomic.Int64
	StaleResponses atomic.Int64

	// Music server
	UpstreamErrors atomic.Int64

	// Response times in microseconds
	totalResponseTime atomic.Int64
	responseCount     atomic.Int64
	minResponseTime   atomic.Int64
	maxResponseTime   atomic.Int64
}

var global = New()

// New returns a zeroed Stats starting now.
func New() *Stats {
	s := &Stats{StartTime: time.Now()}
	s.minResponseTime.Store(maxInt64)
	return s
}

// Get returns the process-wide stats instance
func Get() *Stats {
	return global
}

// RecordRequest counts a request by its route group
func (s *Stats) RecordRequest(path string) {
	s.TotalRequests.Add(1)
	switch {
	case strings.HasPrefix(path, "/player"):
		s.PlayerRequests.Add(1)
	case strings.HasPrefix(path, "/playlist"):
		s.PlaylistRequests.Add(1)
	case strings.HasPrefix(path, "/lyrics"):
		s.LyricsRequests.Add(1)
	case strings.HasPrefix(path, "/search"), path == "/download":
		s.SearchRequests.Add(1)
	default:
		s.OtherRequests.Add(1)
	}
}

// RecordStatusCode records a response status code
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// RecordResponseTime records a response time
func (s *Stats) RecordResponseTime(d time.Duration) {
	us := d.Microseconds()
	s.totalResponseTime.Add(us)
	s.responseCount.Add(1)

	for {
		current := s.minResponseTime.Load()
		if us >= current || s.minResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
	for {
		current := s.maxResponseTime.Load()
		if us <= current || s.maxResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
}

// Uptime returns time since the first recorded start
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// LyricsHitRate is the share of played songs that had lyrics, as a percentage
func (s *Stats) LyricsHitRate() float64 {
	hits := s.LyricsLoaded.Load()
	total := hits + s.LyricsMissing.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// AvgResponseTime returns the average response time
func (s *Stats) AvgResponseTime() time.Duration {
	count := s.responseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.totalResponseTime.Load()/count) * time.Microsecond
}

// MinResponseTime returns the minimum response time
func (s *Stats) MinResponseTime() time.Duration {
	min := s.minResponseTime.Load()
	if min == maxInt64 {
		return 0
	}
	return time.Duration(min) * time.Microsecond
}

// MaxResponseTime returns the maximum response time
func (s *Stats) MaxResponseTime() time.Duration {
	return time.Duration(s.maxResponseTime.Load()) * time.Microsecond
}

// Snapshot returns a point-in-time view for the /stats route
func (s *Stats) Snapshot() map[string]interface{} {
	uptime := s.Uptime()

	return map[string]interface{}{
		"server": map[string]interface{}{
			"start_time":     s.StartTime.Format(time.RFC3339),
			"uptime":         uptime.String(),
			"uptime_seconds": int64(uptime.Seconds()),
		},
		"requests": map[string]interface{}{
			"total":               s.TotalRequests.Load(),
			"player":              s.PlayerRequests.Load(),
			"playlist":            s.PlaylistRequests.Load(),
			"lyrics":              s.LyricsRequests.Load(),
			"search":              s.SearchRequests.Load(),
			"other":               s.OtherRequests.Load(),
			"rate_limit_exceeded": s.RateLimitExceeded.Load(),
		},
		"responses": map[string]interface{}{
			"2xx": s.Status2xx.Load(),
			"4xx": s.Status4xx.Load(),
			"5xx": s.Status5xx.Load(),
		},
		"playback": map[string]interface{}{
			"songs_started":   s.SongsStarted.Load(),
			"songs_completed": s.SongsCompleted.Load(),
			"playback_errors": s.PlaybackErrors.Load(),
			"likes_toggled":   s.LikesToggled.Load(),
			"stale_responses": s.StaleResponses.Load(),
			"lyrics_hit_rate": s.LyricsHitRate(),
		},
		"music_server": map[string]interface{}{
			"errors": s.UpstreamErrors.Load(),
		},
		"response_times": map[string]interface{}{
			"avg": s.AvgResponseTime().String(),
			"min": s.MinResponseTime().String(),
			"max": s.MaxResponseTime().String(),
		},
	}
}
