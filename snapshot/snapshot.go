// Package snapshot reads and writes the durable player state that lets a
// restarted daemon resume mid-song. Values are stored as strings under the
// same keys the browser client used in local storage.
package snapshot

import (
	"encoding/json"
	"fmt"
	"strconv"

	"music-player-go/logcolors"
	"music-player-go/models"

	log "github.com/sirupsen/logrus"
)

const (
	KeyCurrentTime   = "currentTime"
	KeySongIndex     = "songIndex"
	KeyPlaylistIndex = "currentPlaylistIndex"
	KeyFromPlaylist  = "isPlayingFromPlaylist"
	KeyPlayMode      = "playMode"
	KeySongInfo      = "currentSongInfo"
	KeyPlaylist      = "musicPlayerPlaylist"
	KeyVolume        = "volume"
)

// DefaultMode is used when no valid play mode was saved.
const DefaultMode = "sequence"

// KV is a string key-value store.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Playback is the saved playback state.
type Playback struct {
	CurrentTime   float64          `json:"currentTime"`
	SongIndex     int              `json:"songIndex"`
	PlaylistIndex int              `json:"currentPlaylistIndex"`
	FromPlaylist  bool             `json:"isPlayingFromPlaylist"`
	Mode          string           `json:"playMode"`
	SongInfo      *models.SongInfo `json:"currentSongInfo,omitempty"`
	Volume        float64          `json:"volume"`

	// HasSong reports whether a song index was ever saved.
	HasSong bool `json:"-"`
}

// Store maps player state onto KV keys. Playback and playlist use disjoint keys.
type Store struct {
	kv KV
}

func New(kv KV) *Store {
	return &Store{kv: kv}
}

// SaveProgress writes the two keys updated on every time update.
func (s *Store) SaveProgress(currentTime float64, songIndex int) error {
	if err := s.kv.Set(KeyCurrentTime, formatFloat(currentTime)); err != nil {
		return fmt.Errorf("failed to save %s: %w", KeyCurrentTime, err)
	}
	if err := s.kv.Set(KeySongIndex, strconv.Itoa(songIndex)); err != nil {
		return fmt.Errorf("failed to save %s: %w", KeySongIndex, err)
	}
	return nil
}

// SavePlayback writes every playback key. The song info key is left
// untouched when p.SongInfo is nil.
func (s *Store) SavePlayback(p Playback) error {
	values := []struct{ key, value string }{
		{KeyCurrentTime, formatFloat(p.CurrentTime)},
		{KeySongIndex, strconv.Itoa(p.SongIndex)},
		{KeyPlayMode, p.Mode},
		{KeyPlaylistIndex, strconv.Itoa(p.PlaylistIndex)},
		{KeyFromPlaylist, strconv.FormatBool(p.FromPlaylist)},
		{KeyVolume, formatFloat(p.Volume)},
	}
	if p.SongInfo != nil {
		info, err := json.Marshal(p.SongInfo)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", KeySongInfo, err)
		}
		values = append(values, struct{ key, value string }{KeySongInfo, string(info)})
	}

	for _, v := range values {
		if err := s.kv.Set(v.key, v.value); err != nil {
			return fmt.Errorf("failed to save %s: %w", v.key, err)
		}
	}
	return nil
}

// LoadPlayback reads the saved playback state. It never fails: missing or
// unparsable keys fall back to their defaults.
func (s *Store) LoadPlayback() Playback {
	p := Playback{
		SongIndex:     -1,
		PlaylistIndex: -1,
		Mode:          DefaultMode,
		Volume:        1,
	}

	if raw, ok := s.kv.Get(KeySongIndex); ok {
		if n, err := strconv.Atoi(raw); err == nil {
			p.SongIndex = n
			p.HasSong = true
		} else {
			s.warn(KeySongIndex, raw, err)
		}
	}
	if raw, ok := s.kv.Get(KeyCurrentTime); ok {
		if f, err := strconv.ParseFloat(raw, 64); err == nil && f >= 0 {
			p.CurrentTime = f
		} else {
			s.warn(KeyCurrentTime, raw, err)
		}
	}
	if raw, ok := s.kv.Get(KeyPlaylistIndex); ok {
		if n, err := strconv.Atoi(raw); err == nil {
			p.PlaylistIndex = n
		} else {
			s.warn(KeyPlaylistIndex, raw, err)
		}
	}
	if raw, ok := s.kv.Get(KeyFromPlaylist); ok {
		p.FromPlaylist = raw == "true"
	}
	if raw, ok := s.kv.Get(KeyPlayMode); ok && raw != "" {
		p.Mode = raw
	}
	if raw, ok := s.kv.Get(KeyVolume); ok {
		if f, err := strconv.ParseFloat(raw, 64); err == nil && f >= 0 && f <= 1 {
			p.Volume = f
		} else {
			s.warn(KeyVolume, raw, err)
		}
	}
	if raw, ok := s.kv.Get(KeySongInfo); ok {
		var info models.SongInfo
		if err := json.Unmarshal([]byte(raw), &info); err == nil {
			p.SongInfo = &info
		} else {
			s.warn(KeySongInfo, raw, err)
		}
	}

	return p
}

type playlistData struct {
	Songs        []models.Song `json:"songs"`
	CurrentIndex int           `json:"currentIndex"`
}

// SavePlaylist writes the playlist as {songs, currentIndex}.
func (s *Store) SavePlaylist(songs []models.Song, current int) error {
	if songs == nil {
		songs = []models.Song{}
	}
	data, err := json.Marshal(playlistData{Songs: songs, CurrentIndex: current})
	if err != nil {
		return fmt.Errorf("failed to encode playlist: %w", err)
	}
	if err := s.kv.Set(KeyPlaylist, string(data)); err != nil {
		return fmt.Errorf("failed to save playlist: %w", err)
	}
	return nil
}

// LoadPlaylist returns the saved playlist. Missing or corrupt data yields an
// empty playlist and -1.
func (s *Store) LoadPlaylist() ([]models.Song, int) {
	raw, ok := s.kv.Get(KeyPlaylist)
	if !ok || raw == "" {
		return nil, -1
	}

	var data playlistData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		s.warn(KeyPlaylist, raw, err)
		return nil, -1
	}
	if data.CurrentIndex < -1 || data.CurrentIndex >= len(data.Songs) {
		data.CurrentIndex = -1
	}
	return data.Songs, data.CurrentIndex
}

func (s *Store) warn(key, raw string, err error) {
	if len(raw) > 64 {
		raw = raw[:64] + "..."
	}
	log.Warnf("%s Ignoring unreadable %s %q: %v", logcolors.LogSnapshot, key, raw, err)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
