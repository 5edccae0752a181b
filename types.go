package main

import (
	"music-player-go/lyrics"
	"music-player-go/models"
	"music-player-go/search"
	"music-player-go/store"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LyricsResponse is the body of GET /lyrics.
type LyricsResponse struct {
	Display lyrics.Display `json:"display"`
	Lines   []lyrics.Line  `json:"lines"`
}

// PlaylistResponse is the body of the playlist routes.
type PlaylistResponse struct {
	Songs        []models.Song `json:"songs"`
	CurrentIndex int           `json:"current_index"`
	FromPlaylist bool          `json:"from_playlist"`
}

// PlaylistAddResponse reports whether an add changed the playlist.
type PlaylistAddResponse struct {
	Added bool `json:"added"`
	Size  int  `json:"size"`
}

// CatalogResponse is the body of GET /catalog.
type CatalogResponse struct {
	View  string        `json:"view"`
	Songs []models.Song `json:"songs"`
	Page  int           `json:"page"`
}

// LoadMoreResponse is the body of POST /catalog/more.
type LoadMoreResponse struct {
	Added         int    `json:"added"`
	Page          int    `json:"page"`
	TotalLoaded   int    `json:"total_loaded"`
	Total         int    `json:"total"`
	HasMore       bool   `json:"has_more"`
	DisplayedSize int    `json:"displayed_size"`
	Status        string `json:"status"`
}

// DownloadRequest is the body of POST /download.
type DownloadRequest struct {
	Song   string `json:"song"`
	Artist string `json:"artist"`
}

// DownloadResponse wraps the notification shown after a download.
type DownloadResponse struct {
	Notification search.Notification `json:"notification"`
}

// CircuitBreakerResponse is the body of the circuit breaker routes.
type CircuitBreakerResponse struct {
	Name           string `json:"name"`
	State          string `json:"state"`
	Failures       int    `json:"failures"`
	TimeUntilRetry string `json:"time_until_retry"`
}

// BackupResponse is the body of POST /snapshot/backup.
type BackupResponse struct {
	Path string `json:"path"`
}

// BackupListResponse is the body of GET /snapshot/backups.
type BackupListResponse struct {
	Backups []store.BackupInfo `json:"backups"`
	Count   int                `json:"count"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status         string `json:"status"`
	Uptime         string `json:"uptime"`
	MusicServer    string `json:"music_server"`
	CircuitBreaker string `json:"circuit_breaker"`
	AudioAvailable bool   `json:"audio_available"`
	PlayerState    string `json:"player_state"`
}
