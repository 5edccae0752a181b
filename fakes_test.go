package main

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"music-player-go/circuitbreaker"
	"music-player-go/lyrics"
	"music-player-go/models"
	"music-player-go/player"
	"music-player-go/playlist"
	"music-player-go/search"
	"music-player-go/snapshot"
	"music-player-go/stats"
	"music-player-go/store"
)

type fakeAudio struct {
	mu      sync.Mutex
	url     string
	source  uint64
	paused  bool
	time    float64
	volume  float64
	playErr error
}

func (a *fakeAudio) Load(_ context.Context, url string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.url, a.paused, a.time = url, true, 0
	a.source++
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

func (a *fakeAudio) Duration() float64 { return 180 }

func (a *fakeAudio) SetVolume(v float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.volume = v
}

func (a *fakeAudio) currentURL() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.url
}

// fakeMusicServer stands in for the music server across every interface the
// daemon consumes.
type fakeMusicServer struct {
	mu        sync.Mutex
	songs     []models.Song
	more      models.Page
	moreErr   error
	pages     []int
	results   []models.SearchResult
	download  models.DownloadResult
	searchErr error
}

func (f *fakeMusicServer) StreamURL(id models.SongID) string {
	return "http://music.test/api/play/" + id.String()
}

func (f *fakeMusicServer) Lyrics(context.Context, models.SongID) ([]lyrics.Line, error) {
	return []lyrics.Line{{Timestamp: 0, Text: "first"}, {Timestamp: 5, Text: "second"}}, nil
}

func (f *fakeMusicServer) LikeStatus(context.Context, models.SongID) (models.LikeStatus, error) {
	return models.LikeStatus{Status: "success"}, nil
}

func (f *fakeMusicServer) ToggleLike(context.Context, models.SongID) (models.LikeStatus, error) {
	return models.LikeStatus{Status: "success", IsLiked: true, LikesCount: 1}, nil
}

func (f *fakeMusicServer) Songs(context.Context) ([]models.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Song(nil), f.songs...), nil
}

func (f *fakeMusicServer) AllSongs(ctx context.Context) ([]models.Song, error) {
	return f.Songs(ctx)
}

func (f *fakeMusicServer) LoadMore(_ context.Context, page, _ int) (models.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, page)
	return f.more, f.moreErr
}

func (f *fakeMusicServer) Search(context.Context, string) ([]models.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results, f.searchErr
}

func (f *fakeMusicServer) Download(context.Context, string, string) (models.DownloadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.download, nil
}

func testSongs() []models.Song {
	return []models.Song{
		{ID: "1", Name: "Intro", Artist: "A", Duration: 180},
		{ID: "2", Name: "Second", Artist: "B", Duration: 200},
		{ID: "3", Name: "Third", Artist: "C", Duration: 220},
	}
}

type testEnv struct {
	server  *Server
	audio   *fakeAudio
	music   *fakeMusicServer
	player  *player.Player
	breaker *circuitbreaker.CircuitBreaker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "snapshot.db"), filepath.Join(dir, "backups"), false)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	audio := &fakeAudio{paused: true, volume: 1}
	music := &fakeMusicServer{songs: testSongs()}
	counters := stats.New()
	snapshots := snapshot.New(st)
	p := player.New(audio, music, snapshots, playlist.New(snapshots), player.Options{Stats: counters})
	searcher := search.New(music, search.Options{Debounce: 10 * time.Millisecond, Stats: counters})
	breaker := circuitbreaker.New(circuitbreaker.Config{Name: "test", Threshold: 2, Cooldown: time.Minute})

	t.Cleanup(func() {
		p.Close()
		searcher.Close()
		st.Close()
	})

	srv := NewServer(ServerConfig{
		Player:         p,
		Catalog:        music,
		Search:         searcher,
		Store:          st,
		Breaker:        breaker,
		Stats:          counters,
		PageSize:       2,
		AudioAvailable: true,
		MusicServerURL: "http://music.test",
	})
	if err := srv.LoadCatalog(context.Background()); err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}

	return &testEnv{server: srv, audio: audio, music: music, player: p, breaker: breaker}
}
