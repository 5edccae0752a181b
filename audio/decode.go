package audio

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat is returned for streams that are neither MP3 nor WAV.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Format is a decodable container.
type Format int

const (
	MP3 Format = iota + 1
	WAV
)

func (f Format) String() string {
	switch f {
	case MP3:
		return "mp3"
	case WAV:
		return "wav"
	default:
		return "unknown"
	}
}

// DetectFormat picks a decoder from the content type, then the file
// extension, then the leading bytes of the stream.
func DetectFormat(contentType, name string, head []byte) (Format, error) {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "audio/mpeg", "audio/mp3", "audio/mpeg3":
			return MP3, nil
		case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
			return WAV, nil
		}
	}

	switch strings.ToLower(path.Ext(name)) {
	case ".mp3":
		return MP3, nil
	case ".wav":
		return WAV, nil
	}

	switch {
	case len(head) >= 12 && string(head[:4]) == "RIFF" && string(head[8:12]) == "WAVE":
		return WAV, nil
	case len(head) >= 3 && string(head[:3]) == "ID3":
		return MP3, nil
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return MP3, nil
	}

	return 0, fmt.Errorf("%w (content type %q)", ErrUnsupportedFormat, contentType)
}

// memFile lets the decoders seek over a fully buffered stream.
type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

func decode(data []byte, f Format) (beep.StreamSeekCloser, beep.Format, error) {
	r := memFile{bytes.NewReader(data)}
	switch f {
	case MP3:
		return mp3.Decode(r)
	case WAV:
		return wav.Decode(r)
	default:
		return nil, beep.Format{}, ErrUnsupportedFormat
	}
}
