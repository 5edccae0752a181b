package player

import (
	"context"
	"errors"
	"sync"

	"music-player-go/lyrics"
	"music-player-go/models"
)

type fakeAudio struct {
	mu       sync.Mutex
	url      string
	loads    []string
	paused   bool
	time     float64
	duration float64
	volume   float64
	source   uint64
	loadErr  error
	playErr  error
}

func newFakeAudio() *fakeAudio {
	return &fakeAudio{paused: true, duration: 200, volume: 1}
}

func (a *fakeAudio) Load(_ context.Context, url string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loadErr != nil {
		return a.loadErr
	}
	a.url = url
	a.source++
	a.loads = append(a.loads, url)
	a.paused = true
	a.time = 0
	return nil
}

func (a *fakeAudio) Source() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.source
}

func (a *fakeAudio) Play(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.playErr != nil {
		return a.playErr
	}
	a.paused = false
	return nil
}

func (a *fakeAudio) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paused = true
}

func (a *fakeAudio) Paused() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.paused
}

func (a *fakeAudio) CurrentTime() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.time
}

func (a *fakeAudio) Seek(seconds float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.time = seconds
	return nil
}

func (a *fakeAudio) Duration() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.duration
}

func (a *fakeAudio) SetVolume(v float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.volume = v
}

func (a *fakeAudio) setTime(t float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.time = t
}

func (a *fakeAudio) loadCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.loads)
}

func (a *fakeAudio) currentURL() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.url
}

type fakeBackend struct {
	mu        sync.Mutex
	lyrics    map[models.SongID][]lyrics.Line
	lyricsErr error

	// gates block the lyrics fetch for a song until closed
	gates map[models.SongID]chan struct{}

	like      models.LikeStatus
	toggle    models.LikeStatus
	toggleErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		lyrics: make(map[models.SongID][]lyrics.Line),
		gates:  make(map[models.SongID]chan struct{}),
		like:   models.LikeStatus{Status: "success"},
	}
}

func (b *fakeBackend) StreamURL(id models.SongID) string {
	return "/api/play/" + string(id)
}

func (b *fakeBackend) Lyrics(_ context.Context, id models.SongID) ([]lyrics.Line, error) {
	b.mu.Lock()
	gate := b.gates[id]
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lyricsErr != nil {
		return nil, b.lyricsErr
	}
	return b.lyrics[id], nil
}

func (b *fakeBackend) LikeStatus(context.Context, models.SongID) (models.LikeStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.like, nil
}

func (b *fakeBackend) ToggleLike(context.Context, models.SongID) (models.LikeStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.toggleErr != nil {
		return models.LikeStatus{}, b.toggleErr
	}
	return b.toggle, nil
}

type memKV struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemKV() *memKV {
	return &memKV{m: make(map[string]string)}
}

func (kv *memKV) Get(key string) (string, bool) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.m[key]
	return v, ok
}

func (kv *memKV) Set(key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.m[key] = value
	return nil
}

var errRejected = errors.New("play request rejected")
