package lyrics

import "testing"

func TestTimeline_ResyncAfterLastLine(t *testing.T) {
	tl := NewTimeline(nil)
	tl.LoadMap(map[string]string{"00:10.00": "a", "01:05.50": "b"})

	if !tl.Resync(70) {
		t.Fatal("Expected active line to change")
	}
	d := tl.Display()
	if d.Current != "b" {
		t.Errorf("Expected active line b, got %q", d.Current)
	}
	if d.HasNext || d.Next != "" {
		t.Errorf("Expected no next line, got %q", d.Next)
	}
}

func TestTimeline_ResyncBeforeFirstLine(t *testing.T) {
	var renders int
	tl := NewTimeline(func(Display) { renders++ })
	tl.LoadMap(map[string]string{"00:10.00": "a", "01:05.50": "b"})

	if tl.Resync(5) {
		t.Error("Expected no change before first line")
	}
	if tl.Active() != -1 {
		t.Errorf("Expected no active line, got %d", tl.Active())
	}
	if renders != 0 {
		t.Errorf("Expected nothing rendered, got %d renders", renders)
	}
}

func TestTimeline_RendersOnlyOnChange(t *testing.T) {
	var got []Display
	tl := NewTimeline(func(d Display) { got = append(got, d) })
	tl.Load([]Line{{0, "one"}, {10, "two"}, {20, "three"}})

	for _, ts := range []float64{0, 1, 2, 9.99, 10, 15, 20, 25} {
		tl.Resync(ts)
	}

	if len(got) != 3 {
		t.Fatalf("Expected 3 renders, got %d: %v", len(got), got)
	}
	want := []Display{
		{Index: 0, Current: "one", Next: "two", HasNext: true},
		{Index: 1, Current: "two", Next: "three", HasNext: true},
		{Index: 2, Current: "three"},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Render %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestTimeline_BoundaryIsInclusive(t *testing.T) {
	tl := NewTimeline(nil)
	tl.Load([]Line{{10, "a"}, {20, "b"}})

	tl.Resync(20)
	if tl.Display().Current != "b" {
		t.Errorf("Expected b at exactly 20s, got %q", tl.Display().Current)
	}
	tl.Resync(19.999)
	if tl.Display().Current != "a" {
		t.Errorf("Expected a just before 20s, got %q", tl.Display().Current)
	}
}

func TestTimeline_SeekBackBeforeFirstLine(t *testing.T) {
	var last Display
	tl := NewTimeline(func(d Display) { last = d })
	tl.Load([]Line{{10, "a"}})

	tl.Resync(12)
	if !tl.Resync(0) {
		t.Fatal("Expected change when seeking before first line")
	}
	if last.Index != -1 || last.Current != "" {
		t.Errorf("Expected empty display, got %+v", last)
	}
}

func TestTimeline_LoadResetsActive(t *testing.T) {
	tl := NewTimeline(nil)
	tl.Load([]Line{{0, "old"}})
	tl.Resync(5)

	tl.Load([]Line{{0, "new"}, {3, "newer"}})
	if tl.Active() != -1 {
		t.Errorf("Expected active reset on load, got %d", tl.Active())
	}
	if tl.Len() != 2 {
		t.Errorf("Expected 2 lines, got %d", tl.Len())
	}

	tl.Resync(5)
	if tl.Display().Current != "newer" {
		t.Errorf("Expected newer, got %q", tl.Display().Current)
	}
}

func TestTimeline_Clear(t *testing.T) {
	tl := NewTimeline(nil)
	tl.Load([]Line{{0, "a"}})
	tl.Resync(1)
	tl.Clear()

	if tl.Len() != 0 || tl.Active() != -1 {
		t.Errorf("Expected empty timeline, got len=%d active=%d", tl.Len(), tl.Active())
	}
	if tl.Resync(1) {
		t.Error("Expected no change on empty timeline")
	}
}

func TestTimeline_EmptyResync(t *testing.T) {
	tl := NewTimeline(nil)
	if tl.Resync(3) {
		t.Error("Expected no change on empty timeline")
	}
	if d := tl.Display(); d.Index != -1 {
		t.Errorf("Expected no active line, got %+v", d)
	}
}
