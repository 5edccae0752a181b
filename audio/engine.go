// Package audio is the daemon's single sound output. It buffers a song's
// stream from the music server, decodes it with beep and reports time updates
// and end-of-song to a listener.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"music-player-go/logcolors"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrAudioUnavailable is returned by Play in builds without sound support.
	ErrAudioUnavailable = errors.New("audio output not available in this build")
	ErrNoSource         = errors.New("no audio source loaded")
)

const (
	outputRate     = beep.SampleRate(44100)
	maxStreamBytes = 256 << 20
)

// Listener receives playback events. Calls are made without engine locks held.
// source identifies the loaded source the event belongs to, as returned by
// Source at the time it was loaded.
type Listener interface {
	OnTimeUpdate(source uint64, seconds float64)
	OnEnded(source uint64)
}

// Engine plays one source at a time.
type Engine struct {
	mu sync.Mutex

	client       *http.Client
	tickInterval time.Duration
	listener     Listener

	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	level    float64
	started  bool

	// generation increments per Load so callbacks from a replaced source are ignored
	generation uint64
	stopTicker chan struct{}
}

// NewEngine returns an engine that fetches streams with client and emits
// time updates every tickInterval while playing.
func NewEngine(client *http.Client, tickInterval time.Duration) *Engine {
	if client == nil {
		client = http.DefaultClient
	}
	if tickInterval <= 0 {
		tickInterval = 250 * time.Millisecond
	}
	return &Engine{client: client, tickInterval: tickInterval, level: 1}
}

// SetListener registers the event receiver.
func (e *Engine) SetListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

// Load fetches and decodes the stream at rawURL, replacing the current
// source. The new source starts paused at 0.
func (e *Engine) Load(ctx context.Context, rawURL string) error {
	data, contentType, err := e.fetch(ctx, rawURL)
	if err != nil {
		return err
	}

	name := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		name = u.Path
	}
	head := data
	if len(head) > 16 {
		head = head[:16]
	}
	f, err := DetectFormat(contentType, name, head)
	if err != nil {
		return err
	}

	streamer, format, err := decode(data, f)
	if err != nil {
		return fmt.Errorf("failed to decode %s stream: %w", f, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.unloadLocked()
	e.generation++
	e.streamer = streamer
	e.format = format
	e.ctrl = &beep.Ctrl{Streamer: beep.Resample(4, format.SampleRate, outputRate, streamer), Paused: true}
	e.volume = &effects.Volume{Streamer: e.ctrl, Base: 2}
	e.applyLevelLocked()

	log.Debugf("%s Loaded %s (%s, %d bytes, %.1fs)", logcolors.LogAudio, name, f, len(data),
		format.SampleRate.D(streamer.Len()).Seconds())
	return nil
}

func (e *Engine) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid stream url: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to fetch stream: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxStreamBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read stream: %w", err)
	}
	if len(data) > maxStreamBytes {
		return nil, "", fmt.Errorf("stream exceeds %d bytes", maxStreamBytes)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Play starts or resumes the loaded source.
func (e *Engine) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl == nil {
		return ErrNoSource
	}

	if !e.started {
		if err := initSpeaker(outputRate); err != nil {
			return err
		}
		gen := e.generation
		e.ctrl.Paused = false
		speakerPlay(beep.Seq(e.volume, beep.Callback(func() {
			// Runs on the speaker goroutine with the speaker locked.
			go e.ended(gen)
		})))
		e.started = true
	} else {
		speakerLock()
		e.ctrl.Paused = false
		speakerUnlock()
	}

	e.startTickerLocked()
	return nil
}

// Pause pauses the source. Pausing an unloaded engine is a no-op.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl != nil {
		speakerLock()
		e.ctrl.Paused = true
		speakerUnlock()
	}
	e.stopTickerLocked()
}

// Paused reports whether no sound is being produced.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pausedLocked()
}

func (e *Engine) pausedLocked() bool {
	if e.ctrl == nil || !e.started {
		return true
	}
	speakerLock()
	defer speakerUnlock()
	return e.ctrl.Paused
}

// Source identifies the loaded source. It changes on every successful Load
// and is 0 before the first one.
func (e *Engine) Source() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// CurrentTime returns the playback position in seconds.
func (e *Engine) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

func (e *Engine) positionLocked() float64 {
	if e.streamer == nil {
		return 0
	}
	speakerLock()
	pos := e.streamer.Position()
	speakerUnlock()
	return e.format.SampleRate.D(pos).Seconds()
}

// Seek moves to seconds, clamped to the source.
func (e *Engine) Seek(seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return ErrNoSource
	}

	n := e.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if n < 0 {
		n = 0
	}
	if length := e.streamer.Len(); n > length {
		n = length
	}

	speakerLock()
	defer speakerUnlock()
	return e.streamer.Seek(n)
}

// Duration returns the length of the source in seconds.
func (e *Engine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return 0
	}
	return e.format.SampleRate.D(e.streamer.Len()).Seconds()
}

// SetVolume sets the output level in [0, 1].
func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.level = math.Max(0, math.Min(1, v))
	if e.volume != nil {
		speakerLock()
		e.applyLevelLocked()
		speakerUnlock()
	}
}

func (e *Engine) applyLevelLocked() {
	if e.volume == nil {
		return
	}
	e.volume.Silent = e.level == 0
	if e.level > 0 {
		e.volume.Volume = math.Log2(e.level)
	}
}

// Close stops playback and releases the source.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unloadLocked()
	return nil
}

func (e *Engine) unloadLocked() {
	e.stopTickerLocked()
	if e.started {
		speakerClear()
	}
	if e.streamer != nil {
		e.streamer.Close()
	}
	e.streamer = nil
	e.ctrl = nil
	e.volume = nil
	e.started = false
}

func (e *Engine) ended(gen uint64) {
	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return
	}
	e.stopTickerLocked()
	e.started = false
	l := e.listener
	e.mu.Unlock()

	if l != nil {
		l.OnEnded(gen)
	}
}

func (e *Engine) startTickerLocked() {
	if e.stopTicker != nil {
		return
	}
	stop := make(chan struct{})
	e.stopTicker = stop
	go e.tick(e.generation, stop)
}

func (e *Engine) stopTickerLocked() {
	if e.stopTicker != nil {
		close(e.stopTicker)
		e.stopTicker = nil
	}
}

func (e *Engine) tick(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.mu.Lock()
			if gen != e.generation {
				e.mu.Unlock()
				return
			}
			pos := e.positionLocked()
			l := e.listener
			e.mu.Unlock()

			if l != nil {
				l.OnTimeUpdate(gen, pos)
			}
		}
	}
}
