// Package player owns the playback state: the loaded song, the index into the
// catalog or the playlist, the play mode and the lyric timeline. It is the only
// component that drives the audio output.
package player

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"music-player-go/logcolors"
	"music-player-go/lyrics"
	"music-player-go/models"
	"music-player-go/playlist"
	"music-player-go/snapshot"
	"music-player-go/stats"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrSongNotFound    = errors.New("song not found in catalog")
	ErrNoSong          = errors.New("no song loaded")
	ErrEmptyCatalog    = errors.New("catalog is empty")
	ErrEmptyPlaylist   = errors.New("playlist is empty")

	// ErrPlayback wraps failures of the audio output to load or start a song.
	ErrPlayback = errors.New("playback failed")
)

// DefaultScrubThreshold is how far into a song "previous" restarts it instead of changing songs.
const DefaultScrubThreshold = 3.0

// Audio is the single playback output. Only the player calls it.
type Audio interface {
	Load(ctx context.Context, url string) error
	// Source identifies the loaded source; events carry the same value.
	Source() uint64
	Play(ctx context.Context) error
	Pause()
	Paused() bool
	CurrentTime() float64
	Seek(seconds float64) error
	Duration() float64
	SetVolume(v float64)
}

// Backend is the music server as seen by the player.
type Backend interface {
	StreamURL(id models.SongID) string
	Lyrics(ctx context.Context, id models.SongID) ([]lyrics.Line, error)
	LikeStatus(ctx context.Context, id models.SongID) (models.LikeStatus, error)
	ToggleLike(ctx context.Context, id models.SongID) (models.LikeStatus, error)
}

// StateStore persists playback state. *snapshot.Store satisfies it.
type StateStore interface {
	SaveProgress(currentTime float64, songIndex int) error
	SavePlayback(p snapshot.Playback) error
	LoadPlayback() snapshot.Playback
}

// Options tune a Player. Zero values select defaults.
type Options struct {
	ScrubThreshold float64
	Stats          *stats.Stats
	Renderer       lyrics.Renderer

	// Rand returns a uniform int in [0, n).
	Rand func(n int) int
}

// Player is the playback state machine. It is safe for concurrent use.
type Player struct {
	mu sync.Mutex

	audio    Audio
	backend  Backend
	store    StateStore
	playlist *playlist.Playlist
	lyrics   *lyrics.Timeline

	catalog   []models.Song
	displayed []models.Song

	catalogIndex int
	displayIndex int
	fromPlaylist bool
	mode         Mode
	state        State
	volume       float64
	current      *models.Song
	like         models.LikeStatus
	lastErr      string

	// generation increments on every song switch; enrichment responses
	// carrying an older generation are discarded.
	generation    uint64
	cancelEnrich  context.CancelFunc

	// source is the audio source of the current song, 0 until its Load
	// succeeds. Audio events for any other source are dropped.
	source   uint64
	resumeAt float64

	baseCtx       context.Context
	cancelBaseCtx context.CancelFunc
	enrichWG      sync.WaitGroup

	scrubThreshold float64
	randIntN       func(n int) int
	stats          *stats.Stats
}

// New builds an idle player.
func New(audio Audio, backend Backend, store StateStore, pl *playlist.Playlist, opts Options) *Player {
	if opts.ScrubThreshold <= 0 {
		opts.ScrubThreshold = DefaultScrubThreshold
	}
	if opts.Rand == nil {
		opts.Rand = rand.IntN
	}
	if opts.Stats == nil {
		opts.Stats = stats.Get()
	}
	if pl == nil {
		pl = playlist.New(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Player{
		audio:          audio,
		backend:        backend,
		store:          store,
		playlist:       pl,
		lyrics:         lyrics.NewTimeline(opts.Renderer),
		catalogIndex:   -1,
		displayIndex:   -1,
		volume:         1,
		baseCtx:        ctx,
		cancelBaseCtx:  cancel,
		scrubThreshold: opts.ScrubThreshold,
		randIntN:       opts.Rand,
		stats:          opts.Stats,
	}
}

// Close cancels in-flight enrichment and waits for it to finish.
func (p *Player) Close() {
	p.cancelBaseCtx()
	p.enrichWG.Wait()
}

// SetCatalog replaces the full catalog used for next/prev.
// The loaded song keeps playing; its catalog index is re-resolved by id.
func (p *Player) SetCatalog(songs []models.Song) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.catalog = songs
	if p.current != nil {
		p.catalogIndex = p.catalogIndexOf(p.current.ID)
	} else if p.catalogIndex >= len(songs) {
		p.catalogIndex = -1
	}
	log.Debugf("%s Catalog set (%d songs)", logcolors.LogPlayer, len(songs))
}

// SetDisplayed replaces the displayed page.
func (p *Player) SetDisplayed(songs []models.Song) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.displayed = songs
	p.displayIndex = -1
}

// AppendDisplayed extends the displayed list with a further page.
func (p *Player) AppendDisplayed(songs []models.Song) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.displayed = append(p.displayed, songs...)
	return len(p.displayed)
}

// Catalog returns a copy of the full catalog.
func (p *Player) Catalog() []models.Song {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Song(nil), p.catalog...)
}

// Displayed returns a copy of the displayed list.
func (p *Player) Displayed() []models.Song {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Song(nil), p.displayed...)
}

// Playlist exposes the queue for read access.
func (p *Player) Playlist() *playlist.Playlist {
	return p.playlist
}

// PlayByIndex plays a catalog song. With fromDisplay the index is into the
// displayed list and is resolved to the catalog by song id. An index that
// does not resolve to a song leaves the state unchanged.
func (p *Player) PlayByIndex(ctx context.Context, index int, fromDisplay bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	catalogIndex := index
	if fromDisplay {
		if index < 0 || index >= len(p.displayed) {
			return ErrIndexOutOfRange
		}
		catalogIndex = p.catalogIndexOf(p.displayed[index].ID)
		if catalogIndex < 0 {
			return ErrSongNotFound
		}
		p.displayIndex = index
	}
	return p.playCatalogLocked(ctx, catalogIndex, 0)
}

// PlayByID plays the catalog song with the given id.
func (p *Player) PlayByID(ctx context.Context, id models.SongID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	index := p.catalogIndexOf(id)
	if index < 0 {
		return ErrSongNotFound
	}
	return p.playCatalogLocked(ctx, index, 0)
}

// PlayFromPlaylist plays the playlist entry at index and makes the playlist the active source.
func (p *Player) PlayFromPlaylist(ctx context.Context, index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playPlaylistLocked(ctx, index, 0)
}

// PlayNext advances according to the active source and mode.
func (p *Player) PlayNext(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.advanceLocked(ctx, true)
}

// PlayPrev goes back. In the playlist it always moves to the previous entry;
// in the catalog, more than the scrub threshold into a song restarts it instead.
func (p *Player) PlayPrev(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.fromPlaylist && p.current != nil && p.audio.CurrentTime() > p.scrubThreshold {
		if err := p.audio.Seek(0); err != nil {
			return fmt.Errorf("failed to restart song: %w", err)
		}
		p.lyrics.Resync(0)
		p.saveProgressLocked(0)
		return nil
	}
	return p.advanceLocked(ctx, false)
}

func (p *Player) advanceLocked(ctx context.Context, forward bool) error {
	if p.fromPlaylist {
		next := p.playlist.Prev()
		if forward {
			next = p.playlist.Next()
		}
		if next < 0 {
			return ErrEmptyPlaylist
		}
		return p.playPlaylistLocked(ctx, next, 0)
	}

	n := len(p.catalog)
	if n == 0 {
		return ErrEmptyCatalog
	}

	var next int
	switch p.mode {
	case Random:
		for {
			next = p.randIntN(n)
			if next != p.catalogIndex || n <= 1 {
				break
			}
		}
	case Repeat:
		next = p.catalogIndex
		if next < 0 || next >= n {
			next = 0
		}
	default:
		if forward {
			next = (p.catalogIndex + 1) % n
		} else {
			next = ((p.catalogIndex-1)%n + n) % n
		}
	}
	return p.playCatalogLocked(ctx, next, 0)
}

func (p *Player) playCatalogLocked(ctx context.Context, index int, startAt float64) error {
	if index < 0 || index >= len(p.catalog) {
		return ErrIndexOutOfRange
	}
	p.catalogIndex = index
	p.fromPlaylist = false
	return p.loadLocked(ctx, p.catalog[index], startAt)
}

func (p *Player) playPlaylistLocked(ctx context.Context, index int, startAt float64) error {
	song, ok := p.playlist.Song(index)
	if !ok {
		return ErrIndexOutOfRange
	}
	p.fromPlaylist = true
	p.playlist.SetCurrent(index)
	if i := p.catalogIndexOf(song.ID); i >= 0 {
		p.catalogIndex = i
	}
	return p.loadLocked(ctx, song, startAt)
}

// loadLocked switches the output to song: stop, set source, seek, play.
// Lyrics and like status are fetched concurrently and applied only if no
// newer song was loaded meanwhile.
func (p *Player) loadLocked(ctx context.Context, song models.Song, startAt float64) error {
	p.generation++
	gen := p.generation

	p.current = &song
	p.source = 0
	p.resumeAt = startAt
	p.state = Loading
	p.lastErr = ""
	p.like = models.LikeStatus{IsLiked: song.IsLiked, LikesCount: song.LikesCount}
	p.lyrics.Clear()
	p.startEnrichmentLocked(gen, song.ID)
	p.stats.SongsStarted.Add(1)

	log.Infof("%s Loading %s", logcolors.LogPlayer, logcolors.Song(song.ID.String(), song.Name))

	if !p.audio.Paused() {
		p.audio.Pause()
	}
	if err := p.audio.Load(ctx, p.backend.StreamURL(song.ID)); err != nil {
		return p.playbackFailedLocked(err)
	}
	p.source = p.audio.Source()
	if startAt > 0 {
		if err := p.audio.Seek(startAt); err != nil {
			log.Warnf("%s Failed to resume at %.2fs: %v", logcolors.LogPlayer, startAt, err)
		}
	}
	if err := p.audio.Play(ctx); err != nil {
		return p.playbackFailedLocked(err)
	}

	p.state = Playing
	p.saveStateLocked()
	return nil
}

// playbackFailedLocked reverts to Paused without retrying or advancing.
func (p *Player) playbackFailedLocked(err error) error {
	p.state = Paused
	p.lastErr = err.Error()
	p.stats.PlaybackErrors.Add(1)
	log.Errorf("%s Playback failed: %v", logcolors.LogPlayer, err)
	p.saveStateLocked()
	return fmt.Errorf("%w: %w", ErrPlayback, err)
}

func (p *Player) startEnrichmentLocked(gen uint64, id models.SongID) {
	if p.cancelEnrich != nil {
		p.cancelEnrich()
	}
	ctx, cancel := context.WithCancel(p.baseCtx)
	p.cancelEnrich = cancel

	p.enrichWG.Add(2)
	go func() {
		defer p.enrichWG.Done()
		lines, err := p.backend.Lyrics(ctx, id)
		p.applyLyrics(gen, id, lines, err)
	}()
	go func() {
		defer p.enrichWG.Done()
		status, err := p.backend.LikeStatus(ctx, id)
		p.applyLikeStatus(gen, id, status, err)
	}()
}

func (p *Player) applyLyrics(gen uint64, id models.SongID, lines []lyrics.Line, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		p.stats.StaleResponses.Add(1)
		log.Debugf("%s Discarding stale lyrics for song %s", logcolors.LogLyrics, id)
		return
	}
	if err != nil {
		p.stats.LyricsMissing.Add(1)
		p.lyrics.Clear()
		log.Warnf("%s Failed to fetch lyrics for song %s: %v", logcolors.LogLyrics, id, err)
		return
	}
	if len(lines) == 0 {
		p.stats.LyricsMissing.Add(1)
		p.lyrics.Clear()
		return
	}

	p.stats.LyricsLoaded.Add(1)
	p.lyrics.Load(lines)
	p.lyrics.Resync(p.audio.CurrentTime())
	log.Debugf("%s Loaded %d lines for song %s", logcolors.LogLyrics, len(lines), id)
}

func (p *Player) applyLikeStatus(gen uint64, id models.SongID, status models.LikeStatus, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		p.stats.StaleResponses.Add(1)
		return
	}
	if err != nil {
		log.Warnf("%s Failed to load like status for song %s: %v", logcolors.LogLike, id, err)
		return
	}
	if status.OK() {
		p.like = status
	}
}

// TogglePause flips between Playing and Paused.
func (p *Player) TogglePause(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return ErrNoSong
	}
	if p.audio.Paused() {
		if err := p.audio.Play(ctx); err != nil {
			return p.playbackFailedLocked(err)
		}
		p.state = Playing
		p.lastErr = ""
	} else {
		p.audio.Pause()
		p.state = Paused
	}
	p.saveStateLocked()
	return nil
}

// Seek moves the playback position, clamped to the song.
func (p *Player) Seek(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return ErrNoSong
	}
	if seconds < 0 {
		seconds = 0
	}
	if d := p.audio.Duration(); d > 0 && seconds > d {
		seconds = d
	}
	if err := p.audio.Seek(seconds); err != nil {
		return fmt.Errorf("seek failed: %w", err)
	}
	p.lyrics.Resync(seconds)
	p.saveProgressLocked(seconds)
	return nil
}

// SetVolume sets the output volume, clamped to [0, 1].
func (p *Player) SetVolume(v float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	v = lo.Clamp(v, 0, 1)
	p.volume = v
	p.audio.SetVolume(v)
	p.saveStateLocked()
	return v
}

// TogglePlayMode cycles the mode and returns the new one.
func (p *Player) TogglePlayMode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.mode = p.mode.Next()
	p.saveStateLocked()
	log.Infof("%s Play mode: %s", logcolors.LogPlayer, p.mode)
	return p.mode
}

// ToggleLike flips the like on the loaded song. Local state changes only on
// the server's confirmation.
func (p *Player) ToggleLike(ctx context.Context) (models.LikeStatus, error) {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return models.LikeStatus{}, ErrNoSong
	}
	id := p.current.ID
	gen := p.generation
	p.mu.Unlock()

	status, err := p.backend.ToggleLike(ctx, id)
	if err != nil {
		log.Warnf("%s Failed to toggle like for song %s: %v", logcolors.LogLike, id, err)
		return models.LikeStatus{}, err
	}
	if !status.OK() {
		return status, fmt.Errorf("server rejected like toggle: %s", status.Status)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.LikesToggled.Add(1)
	if gen == p.generation {
		p.like = status
	}
	update := func(songs []models.Song) {
		for i := range songs {
			if songs[i].ID == id {
				songs[i].IsLiked = status.IsLiked
				songs[i].LikesCount = status.LikesCount
			}
		}
	}
	update(p.catalog)
	update(p.displayed)
	return status, nil
}

// AddToPlaylist queues song. Duplicates are ignored.
func (p *Player) AddToPlaylist(song models.Song) bool {
	added := p.playlist.Add(song)
	if added {
		log.Infof("%s Added %s", logcolors.LogPlaylist, logcolors.Song(song.ID.String(), song.Name))
	}
	return added
}

// AddToPlaylistByID queues a song found in the catalog or the displayed list.
func (p *Player) AddToPlaylistByID(id models.SongID) (bool, error) {
	p.mu.Lock()
	song, ok := lo.Find(p.catalog, func(s models.Song) bool { return s.ID == id })
	if !ok {
		song, ok = lo.Find(p.displayed, func(s models.Song) bool { return s.ID == id })
	}
	p.mu.Unlock()

	if !ok {
		return false, ErrSongNotFound
	}
	return p.AddToPlaylist(song), nil
}

// RemoveFromPlaylist removes a playlist entry. Removing the entry being
// played, when it is not the last one, first advances to the next entry.
func (p *Player) RemoveFromPlaylist(ctx context.Context, index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := p.playlist.Len()
	if index < 0 || index >= n {
		return ErrIndexOutOfRange
	}

	if p.fromPlaylist && index == p.playlist.Current() && index < n-1 {
		if err := p.playPlaylistLocked(ctx, index+1, 0); err != nil {
			log.Warnf("%s Advance before removal failed: %v", logcolors.LogPlaylist, err)
		}
	}

	p.playlist.RemoveAt(index)
	if p.playlist.Len() == 0 {
		p.fromPlaylist = false
	}
	p.saveStateLocked()
	return nil
}

// ClearPlaylist empties the playlist. Audio keeps playing from its current source.
func (p *Player) ClearPlaylist() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.playlist.Clear()
	p.fromPlaylist = false
	p.saveStateLocked()
	log.Infof("%s Cleared", logcolors.LogPlaylist)
}

// Restore resumes from the saved snapshot. Call after the catalog is set.
func (p *Player) Restore(ctx context.Context) error {
	p.playlist.Restore()

	p.mu.Lock()
	defer p.mu.Unlock()

	saved := p.store.LoadPlayback()
	if mode, err := ParseMode(saved.Mode); err == nil {
		p.mode = mode
	} else {
		log.Warnf("%s %v, using %s", logcolors.LogRestore, err, Sequence)
	}
	p.volume = lo.Clamp(saved.Volume, 0, 1)
	p.audio.SetVolume(p.volume)

	if !saved.HasSong {
		log.Infof("%s Nothing to resume", logcolors.LogRestore)
		return nil
	}

	if saved.FromPlaylist && saved.PlaylistIndex >= 0 && saved.PlaylistIndex < p.playlist.Len() {
		if saved.SongIndex >= 0 && saved.SongIndex < len(p.catalog) {
			p.catalogIndex = saved.SongIndex
		}
		log.Infof("%s Resuming playlist entry %d at %.2fs", logcolors.LogRestore, saved.PlaylistIndex, saved.CurrentTime)
		return p.playPlaylistLocked(ctx, saved.PlaylistIndex, saved.CurrentTime)
	}
	if saved.SongIndex >= 0 && saved.SongIndex < len(p.catalog) {
		log.Infof("%s Resuming catalog song %d at %.2fs", logcolors.LogRestore, saved.SongIndex, saved.CurrentTime)
		return p.playCatalogLocked(ctx, saved.SongIndex, saved.CurrentTime)
	}

	log.Warnf("%s Saved song index %d is not in the catalog", logcolors.LogRestore, saved.SongIndex)
	return nil
}

// SaveState writes the full playback snapshot.
func (p *Player) SaveState() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.SavePlayback(p.playbackLocked())
}

func (p *Player) playbackLocked() snapshot.Playback {
	pb := snapshot.Playback{
		SongIndex:     p.catalogIndex,
		PlaylistIndex: p.playlist.Current(),
		FromPlaylist:  p.fromPlaylist,
		Mode:          p.mode.String(),
		Volume:        p.volume,
	}
	if p.current != nil {
		// Without a loaded source the position is the one we meant to resume at.
		pb.CurrentTime = p.resumeAt
		if p.source != 0 {
			pb.CurrentTime = p.audio.CurrentTime()
		}
		info := p.current.Info()
		pb.SongInfo = &info
	}
	return pb
}

func (p *Player) saveStateLocked() {
	if err := p.store.SavePlayback(p.playbackLocked()); err != nil {
		log.Errorf("%s Failed to save playback state: %v", logcolors.LogSnapshot, err)
	}
}

func (p *Player) saveProgressLocked(t float64) {
	if err := p.store.SaveProgress(t, p.catalogIndex); err != nil {
		log.Errorf("%s Failed to save progress: %v", logcolors.LogSnapshot, err)
	}
}

// OnTimeUpdate is called by the audio output on every time tick.
func (p *Player) OnTimeUpdate(source uint64, t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return
	}
	if source != p.source {
		p.stats.StaleResponses.Add(1)
		return
	}
	p.lyrics.Resync(t)
	p.saveProgressLocked(t)
}

// OnEnded is called by the audio output when the loaded source finishes.
// An end event that arrives after a song switch is dropped.
func (p *Player) OnEnded(source uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if source != p.source {
		p.stats.StaleResponses.Add(1)
		return
	}
	if p.state != Playing {
		return
	}
	p.state = Ended
	p.stats.SongsCompleted.Add(1)
	if err := p.advanceLocked(p.baseCtx, true); err != nil {
		log.Warnf("%s Auto-advance failed: %v", logcolors.LogPlayer, err)
	}
}

// View is a read-only snapshot of the player for display.
type View struct {
	State         State        `json:"state"`
	Song          *models.Song `json:"song,omitempty"`
	CatalogIndex  int          `json:"catalog_index"`
	DisplayIndex  int          `json:"display_index"`
	PlaylistIndex int          `json:"playlist_index"`
	FromPlaylist  bool         `json:"from_playlist"`
	Mode          Mode         `json:"mode"`
	ModeIcon      string       `json:"mode_icon"`
	ModeTitle     string       `json:"mode_title"`
	CurrentTime   float64      `json:"current_time"`
	Duration      float64      `json:"duration"`
	Volume        float64      `json:"volume"`
	IsLiked       bool         `json:"is_liked"`
	LikesCount    int          `json:"likes_count"`
	CatalogSize   int          `json:"catalog_size"`
	DisplayedSize int          `json:"displayed_size"`
	PlaylistSize  int          `json:"playlist_size"`
	LastError     string       `json:"last_error,omitempty"`
}

// Snapshot returns the current view.
func (p *Player) Snapshot() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := View{
		State:         p.state,
		CatalogIndex:  p.catalogIndex,
		DisplayIndex:  p.displayIndex,
		PlaylistIndex: p.playlist.Current(),
		FromPlaylist:  p.fromPlaylist,
		Mode:          p.mode,
		ModeIcon:      IconFor(p.mode),
		ModeTitle:     TitleFor(p.mode),
		Volume:        p.volume,
		IsLiked:       p.like.IsLiked,
		LikesCount:    p.like.LikesCount,
		CatalogSize:   len(p.catalog),
		DisplayedSize: len(p.displayed),
		PlaylistSize:  p.playlist.Len(),
		LastError:     p.lastErr,
	}
	if p.current != nil {
		song := *p.current
		v.Song = &song
		v.CurrentTime = p.audio.CurrentTime()
		v.Duration = p.audio.Duration()
		if v.Duration == 0 {
			v.Duration = song.Duration
		}
	}
	return v
}

// Lyrics returns the two-line lyric display.
func (p *Player) Lyrics() lyrics.Display {
	return p.lyrics.Display()
}

// LyricLines returns the full timeline of the loaded song.
func (p *Player) LyricLines() []lyrics.Line {
	return p.lyrics.Lines()
}

func (p *Player) catalogIndexOf(id models.SongID) int {
	_, index, _ := lo.FindIndexOf(p.catalog, func(s models.Song) bool { return s.ID == id })
	return index
}
