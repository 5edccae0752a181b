package lyrics

import (
	"sort"
	"sync"
)

// Display is the two-line "current + upcoming" view of the timeline.
// Index is -1 when no line is active, in which case both texts are empty.
type Display struct {
	Index   int    `json:"index"`
	Current string `json:"current"`
	Next    string `json:"next,omitempty"`
	HasNext bool   `json:"has_next"`
}

// Renderer receives the display whenever the active line changes.
type Renderer func(Display)

// Timeline maps playback time to the active lyric line.
type Timeline struct {
	mu       sync.RWMutex
	lines    []Line
	active   int
	renderer Renderer
}

// NewTimeline returns an empty timeline. render may be nil.
func NewTimeline(render Renderer) *Timeline {
	return &Timeline{active: -1, renderer: render}
}

// Load replaces the timeline. Lines are normalized first and the active line is reset.
func (t *Timeline) Load(lines []Line) {
	normalized := Normalize(lines)

	t.mu.Lock()
	t.lines = normalized
	changed := t.active != -1
	t.active = -1
	t.mu.Unlock()

	if changed {
		t.render(Display{Index: -1})
	}
}

// LoadMap loads a timestamp-keyed mapping.
func (t *Timeline) LoadMap(m map[string]string) {
	t.Load(FromMap(m))
}

// Clear empties the timeline and the active line.
func (t *Timeline) Clear() {
	t.Load(nil)
}

// Resync selects the line whose interval contains currentTime and reports
// whether the active line changed. The renderer runs only on change.
func (t *Timeline) Resync(currentTime float64) bool {
	t.mu.Lock()
	// First line strictly after currentTime; the one before it is active.
	idx := sort.Search(len(t.lines), func(i int) bool {
		return t.lines[i].Timestamp > currentTime
	}) - 1
	if idx == t.active {
		t.mu.Unlock()
		return false
	}
	t.active = idx
	d := t.displayLocked()
	t.mu.Unlock()

	t.render(d)
	return true
}

// Display returns the current view.
func (t *Timeline) Display() Display {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.displayLocked()
}

func (t *Timeline) displayLocked() Display {
	if t.active < 0 || t.active >= len(t.lines) {
		return Display{Index: -1}
	}
	d := Display{Index: t.active, Current: t.lines[t.active].Text}
	if t.active+1 < len(t.lines) {
		d.Next = t.lines[t.active+1].Text
		d.HasNext = true
	}
	return d
}

// Active returns the active line index, -1 for none.
func (t *Timeline) Active() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// Len returns the number of lines.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.lines)
}

// Lines returns a copy of the timeline.
func (t *Timeline) Lines() []Line {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Line, len(t.lines))
	copy(out, t.lines)
	return out
}

func (t *Timeline) render(d Display) {
	if t.renderer != nil {
		t.renderer(d)
	}
}
