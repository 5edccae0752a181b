package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// DefaultArtworkURL is served when a song carries no artwork of its own.
const DefaultArtworkURL = "/static/images/default-album.png"

// SongID is the server's opaque song identifier.
// The server emits integers; the client treats ids as strings everywhere.
type SongID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *SongID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SongID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid song id %s: %w", data, err)
	}
	*id = SongID(n.String())
	return nil
}

func (id SongID) String() string {
	return string(id)
}

// Song is a catalog entry as returned by the music server.
type Song struct {
	ID         SongID  `json:"id"`
	Name       string  `json:"name"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album,omitempty"`
	Duration   float64 `json:"duration"`
	ImageURL   string  `json:"image_url,omitempty"`
	LikesCount int     `json:"likes_count"`
	IsLiked    bool    `json:"is_liked"`
}

// ArtworkURL returns the song's artwork or the default asset.
func (s Song) ArtworkURL() string {
	if s.ImageURL == "" {
		return DefaultArtworkURL
	}
	return s.ImageURL
}

// Info projects the fields kept in the currentSongInfo snapshot key.
func (s Song) Info() SongInfo {
	return SongInfo{Name: s.Name, Artist: s.Artist, ImageURL: s.ImageURL}
}

// SongInfo is the display-only projection of the playing song.
type SongInfo struct {
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	ImageURL string `json:"image_url,omitempty"`
}

// LikeStatus is the server's authoritative like state for one song.
type LikeStatus struct {
	Status     string `json:"status"`
	IsLiked    bool   `json:"is_liked"`
	LikesCount int    `json:"likes_count"`
}

// OK reports whether the server accepted the request.
func (l LikeStatus) OK() bool {
	return l.Status == "success"
}

// Page is one slice of the paginated catalog.
type Page struct {
	Songs       []Song `json:"songs"`
	TotalLoaded int    `json:"total_loaded"`
	Total       int    `json:"total"`
	HasMore     bool   `json:"has_more"`
}

// SearchResult is an online search hit. These are not catalog songs until downloaded.
type SearchResult struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album,omitempty"`
	Duration   int    `json:"duration"`
	ImageURL   string `json:"image_url,omitempty"`
	EmixSongID string `json:"emixsong_id,omitempty"`
	FileName   string `json:"file_name,omitempty"`
}

// DownloadResult is the server's answer to a download request.
type DownloadResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Song    *Song  `json:"song,omitempty"`
}

// FormatTime renders seconds as m:ss, matching the player's time display.
func FormatTime(seconds float64) string {
	if seconds != seconds || seconds < 0 {
		return "0:00"
	}
	total := int(seconds)
	secs := strconv.Itoa(total % 60)
	if len(secs) < 2 {
		secs = "0" + secs
	}
	return strconv.Itoa(total/60) + ":" + secs
}
