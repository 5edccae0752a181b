//go:build (linux && cgo) || windows || darwin

package audio

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Available reports whether this build can produce sound.
const Available = true

var (
	speakerOnce sync.Once
	speakerErr  error
	speakerUp   atomic.Bool
)

func initSpeaker(rate beep.SampleRate) error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(rate, rate.N(time.Second/10))
		speakerUp.Store(speakerErr == nil)
	})
	return speakerErr
}

func speakerPlay(s beep.Streamer) {
	speaker.Play(s)
}

func speakerClear() {
	if speakerUp.Load() {
		speaker.Clear()
	}
}

func speakerLock() {
	if speakerUp.Load() {
		speaker.Lock()
	}
}

func speakerUnlock() {
	if speakerUp.Load() {
		speaker.Unlock()
	}
}
