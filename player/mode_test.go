package player

import (
	"encoding/json"
	"testing"
)

func TestMode_NextCycles(t *testing.T) {
	m := Sequence
	want := []Mode{Random, Repeat, Sequence, Random}
	for i, w := range want {
		m = m.Next()
		if m != w {
			t.Fatalf("Step %d: expected %s, got %s", i, w, m)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"sequence", Sequence, false},
		{"RANDOM", Random, false},
		{" repeat ", Repeat, false},
		{"shuffle", Sequence, true},
		{"", Sequence, true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestIconAndTitle(t *testing.T) {
	tests := []struct {
		mode  Mode
		icon  string
		title string
	}{
		{Sequence, "fa-list", "Play in order"},
		{Random, "fa-random", "Shuffle"},
		{Repeat, "fa-redo", "Repeat one"},
	}

	for _, tt := range tests {
		if got := IconFor(tt.mode); got != tt.icon {
			t.Errorf("IconFor(%s) = %q, want %q", tt.mode, got, tt.icon)
		}
		if got := TitleFor(tt.mode); got != tt.title {
			t.Errorf("TitleFor(%s) = %q, want %q", tt.mode, got, tt.title)
		}
	}
}

func TestModeAndStateJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		M Mode  `json:"m"`
		S State `json:"s"`
	}{Repeat, Playing})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"m":"repeat","s":"playing"}` {
		t.Errorf("Unexpected JSON: %s", data)
	}

	var decoded struct {
		M Mode  `json:"m"`
		S State `json:"s"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.M != Repeat || decoded.S != Playing {
		t.Errorf("Unexpected decode: %+v", decoded)
	}
}
