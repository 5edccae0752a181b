// Package playlist is the user-curated play queue: an ordered, duplicate-free
// list of songs with its own cursor, persisted on every mutation.
package playlist

import (
	"sync"

	"music-player-go/logcolors"
	"music-player-go/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Persister stores and loads the playlist as a whole.
type Persister interface {
	SavePlaylist(songs []models.Song, current int) error
	LoadPlaylist() ([]models.Song, int)
}

// Playlist is safe for concurrent use.
type Playlist struct {
	mu      sync.RWMutex
	songs   []models.Song
	current int
	store   Persister
}

// New returns an empty playlist. store may be nil for an in-memory playlist.
func New(store Persister) *Playlist {
	return &Playlist{current: -1, store: store}
}

// Restore seeds the playlist from the persister. Duplicate ids are dropped
// and an out-of-range cursor becomes -1.
func (p *Playlist) Restore() {
	if p.store == nil {
		return
	}
	songs, current := p.store.LoadPlaylist()
	songs = lo.UniqBy(songs, func(s models.Song) models.SongID { return s.ID })
	if current < -1 || current >= len(songs) {
		current = -1
	}

	p.mu.Lock()
	p.songs = songs
	p.current = current
	p.mu.Unlock()

	log.Infof("%s Restored %d songs (current: %d)", logcolors.LogPlaylist, len(songs), current)
}

// Add appends song unless its id is already queued. It reports whether the song was added.
func (p *Playlist) Add(song models.Song) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if lo.ContainsBy(p.songs, func(s models.Song) bool { return s.ID == song.ID }) {
		return false
	}
	p.songs = append(p.songs, song)
	p.persistLocked()
	return true
}

// RemoveAt removes the entry at index and keeps the cursor on the same logical
// entry. Out-of-range indexes are a no-op.
func (p *Playlist) RemoveAt(index int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.songs) {
		return false
	}
	p.songs = append(p.songs[:index:index], p.songs[index+1:]...)
	if p.current >= index {
		p.current--
	}
	p.persistLocked()
	return true
}

// Clear empties the playlist and resets the cursor.
func (p *Playlist) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.songs = nil
	p.current = -1
	p.persistLocked()
}

// SetCurrent moves the cursor. Out-of-range indexes are rejected.
func (p *Playlist) SetCurrent(index int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.songs) {
		return false
	}
	p.current = index
	p.persistLocked()
	return true
}

// Song returns the entry at index.
func (p *Playlist) Song(index int) (models.Song, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if index < 0 || index >= len(p.songs) {
		return models.Song{}, false
	}
	return p.songs[index], true
}

// Songs returns a copy of the entries.
func (p *Playlist) Songs() []models.Song {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]models.Song, len(p.songs))
	copy(out, p.songs)
	return out
}

func (p *Playlist) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.songs)
}

// Current returns the cursor, -1 for none.
func (p *Playlist) Current() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Next returns the index after the cursor, wrapping around. -1 when empty.
func (p *Playlist) Next() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.songs) == 0 {
		return -1
	}
	return (p.current + 1) % len(p.songs)
}

// Prev returns the index before the cursor, wrapping around. -1 when empty.
func (p *Playlist) Prev() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := len(p.songs)
	if n == 0 {
		return -1
	}
	return ((p.current-1)%n + n) % n
}

// IndexOf returns the position of id, -1 if not queued.
func (p *Playlist) IndexOf(id models.SongID) int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, index, _ := lo.FindIndexOf(p.songs, func(s models.Song) bool { return s.ID == id })
	return index
}

func (p *Playlist) persistLocked() {
	if p.store == nil {
		return
	}
	songs := make([]models.Song, len(p.songs))
	copy(songs, p.songs)
	if err := p.store.SavePlaylist(songs, p.current); err != nil {
		log.Errorf("%s Failed to persist playlist: %v", logcolors.LogPlaylist, err)
	}
}
