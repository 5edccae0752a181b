//go:build !((linux && cgo) || windows || darwin)

package audio

import "github.com/gopxl/beep/v2"

// Available reports whether this build can produce sound.
// Sound output needs cgo for the native audio libraries.
const Available = false

func initSpeaker(beep.SampleRate) error {
	return ErrAudioUnavailable
}

func speakerPlay(beep.Streamer) {}

func speakerClear() {}

func speakerLock() {}

func speakerUnlock() {}
