package lyrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// Timestamp key: mm:ss, mm:ss.xx or mm:ss:xx, optionally bracketed
	timestampRegex = regexp.MustCompile(`^\[?(\d+):(\d{1,2})(?:[.:](\d+))?\]?$`)

	// LRC timestamp at the start of a line
	lrcTimeRegex = regexp.MustCompile(`^\[(\d+):(\d{1,2}(?:[.:]\d+)?)\]`)

	// Metadata tags: [ti:Title], [ar:Artist]
	metadataRegex = regexp.MustCompile(`^\[([a-zA-Z]+):([^\]]*)\]$`)
)

// Line is one timed lyric line
type Line struct {
	Timestamp float64 `json:"timestamp"`
	Text      string  `json:"text"`
}

// ParseTimestamp converts "mm:ss.xx" to seconds. Fractional seconds are kept
// at whatever precision the key carries.
func ParseTimestamp(s string) (float64, error) {
	m := timestampRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	minutes, _ := strconv.Atoi(m[1])
	secs := m[2]
	if m[3] != "" {
		secs += "." + m[3]
	}
	seconds, err := strconv.ParseFloat(secs, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return float64(minutes)*60 + seconds, nil
}

// FromMap converts a timestamp-keyed mapping into sorted lines.
// Keys that do not parse are skipped.
func FromMap(m map[string]string) []Line {
	lines := make([]Line, 0, len(m))
	for key, text := range m {
		ts, err := ParseTimestamp(key)
		if err != nil {
			continue
		}
		lines = append(lines, Line{Timestamp: ts, Text: text})
	}
	// Map order is random. Ties on timestamp ("01:05.5" and "01:05.50") are
	// broken by text so the last-wins collapse is deterministic.
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Timestamp != lines[j].Timestamp {
			return lines[i].Timestamp < lines[j].Timestamp
		}
		return lines[i].Text < lines[j].Text
	})
	return Normalize(lines)
}

// ParseLRC parses LRC text. A line may carry several leading timestamps;
// lines without text are dropped. Metadata tags are returned separately.
func ParseLRC(content string) ([]Line, map[string]string) {
	var lines []Line
	metadata := make(map[string]string)

	content = strings.TrimPrefix(content, "\ufeff")
	for _, raw := range strings.Split(content, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		if m := metadataRegex.FindStringSubmatch(raw); m != nil {
			metadata[strings.ToLower(m[1])] = strings.TrimSpace(m[2])
			continue
		}

		var stamps []float64
		text := raw
		for {
			m := lrcTimeRegex.FindStringSubmatch(text)
			if m == nil {
				break
			}
			if ts, err := ParseTimestamp(m[1] + ":" + m[2]); err == nil {
				stamps = append(stamps, ts)
			}
			text = text[len(m[0]):]
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		for _, ts := range stamps {
			lines = append(lines, Line{Timestamp: ts, Text: text})
		}
	}

	return Normalize(lines), metadata
}

// Normalize sorts lines ascending by timestamp and collapses lines sharing a
// timestamp. The sort is stable and the last of equal lines wins.
func Normalize(lines []Line) []Line {
	if len(lines) == 0 {
		return nil
	}

	sorted := make([]Line, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	out := sorted[:0]
	for _, l := range sorted {
		if n := len(out); n > 0 && out[n-1].Timestamp == l.Timestamp {
			out[n-1] = l
			continue
		}
		out = append(out, l)
	}
	return out
}

type wireLine struct {
	Timestamp json.RawMessage `json:"timestamp"`
	Time      json.RawMessage `json:"time"`
	Text      string          `json:"text"`
}

func (w wireLine) seconds() (float64, error) {
	raw := w.Timestamp
	if len(raw) == 0 {
		raw = w.Time
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, fmt.Errorf("line has no timestamp")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		return ParseTimestamp(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}

// Decode reads the "lyrics" field of the lyrics endpoint. It accepts an
// ordered array of {timestamp, text}, an object keyed by "mm:ss.xx", a string
// of LRC text, or null. Empty input yields no lines and no error.
func Decode(raw json.RawMessage) ([]Line, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var wire []wireLine
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, fmt.Errorf("failed to decode lyric lines: %w", err)
		}
		lines := make([]Line, 0, len(wire))
		for i, w := range wire {
			ts, err := w.seconds()
			if err != nil {
				return nil, fmt.Errorf("lyric line %d: %w", i, err)
			}
			if ts < 0 {
				return nil, fmt.Errorf("lyric line %d: negative timestamp", i)
			}
			lines = append(lines, Line{Timestamp: ts, Text: w.Text})
		}
		return Normalize(lines), nil

	case '{':
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("failed to decode lyric map: %w", err)
		}
		return FromMap(m), nil

	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("failed to decode lyric text: %w", err)
		}
		lines, _ := ParseLRC(s)
		return lines, nil
	}

	return nil, fmt.Errorf("unsupported lyrics payload starting with %q", raw[0])
}
