package player

import (
	"fmt"
	"strings"
)

// Mode selects how the catalog advances when a song ends or next/prev is pressed.
type Mode int

const (
	Sequence Mode = iota
	Random
	Repeat
)

var modeNames = [...]string{"sequence", "random", "repeat"}

// Next cycles Sequence -> Random -> Repeat -> Sequence.
func (m Mode) Next() Mode {
	return (m + 1) % Mode(len(modeNames))
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode accepts the names written by String, case-insensitively.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Mode(i), nil
		}
	}
	return Sequence, fmt.Errorf("unknown play mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// IconFor returns the Font Awesome icon for the mode button.
func IconFor(m Mode) string {
	switch m {
	case Random:
		return "fa-random"
	case Repeat:
		return "fa-redo"
	default:
		return "fa-list"
	}
}

// TitleFor returns the mode button tooltip.
func TitleFor(m Mode) string {
	switch m {
	case Random:
		return "Shuffle"
	case Repeat:
		return "Repeat one"
	default:
		return "Play in order"
	}
}

// State is the playback lifecycle of the loaded song.
type State int

const (
	Idle State = iota
	Loading
	Playing
	Paused
	Ended
)

var stateNames = [...]string{"idle", "loading", "playing", "paused", "ended"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if string(text) == name {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown player state %q", text)
}
