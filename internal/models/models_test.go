package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestValidStem(t *testing.T) {
	for _, stem := range StemNames() {
		if !ValidStem(stem) {
			t.Errorf("ValidStem(%s) = false", stem)
		}
	}
	for _, name := range []StemName{"", "guitar", "Drums"} {
		if ValidStem(name) {
			t.Errorf("ValidStem(%q) = true", name)
		}
	}
}

func TestManifest_PresentStems(t *testing.T) {
	m := Manifest{
		ID: "t1",
		Stems: map[StemName]StemAsset{
			StemOther:  {PlaybackURL: "http://s/o.wav"},
			StemVocals: {PlaybackURL: "http://s/v.wav"},
			StemDrums:  {PlaybackURL: "http://s/d.wav"},
		},
	}

	got := m.PresentStems()
	want := []StemName{StemDrums, StemVocals, StemOther}
	if len(got) != len(want) {
		t.Fatalf("PresentStems() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("PresentStems() = %v, want canonical order %v", got, want)
		}
	}

	empty := Manifest{ID: "t2"}
	if stems := empty.PresentStems(); len(stems) != 0 {
		t.Errorf("PresentStems() on empty manifest = %v", stems)
	}
}

func TestManifest_JSONShape(t *testing.T) {
	m := Manifest{
		ID:   "t1",
		Name: "track",
		Key:  "C#m",
		Stems: map[StemName]StemAsset{
			StemDrums: {PlaybackURL: "http://s/d.wav", DownloadURL: "http://s/d.zip"},
		},
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	stems := raw["stems"].(map[string]any)
	drums := stems["drums"].(map[string]any)
	if drums["playback"] != "http://s/d.wav" {
		t.Errorf("playback field = %v", drums["playback"])
	}
	if drums["download"] != "http://s/d.zip" {
		t.Errorf("download field = %v", drums["download"])
	}
}

func TestNewHistoryEntry(t *testing.T) {
	before := time.Now().UnixMilli()
	entry := NewHistoryEntry(Manifest{ID: "t1", Name: "track"})
	after := time.Now().UnixMilli()

	if entry.ID != "t1" {
		t.Errorf("entry id = %s", entry.ID)
	}
	if entry.Timestamp < before || entry.Timestamp > after {
		t.Errorf("timestamp %d outside [%d, %d]", entry.Timestamp, before, after)
	}
}

func TestTaskState(t *testing.T) {
	terminal := map[TaskState]bool{
		TaskIdle:       false,
		TaskSubmitting: false,
		TaskProcessing: false,
		TaskCancelling: false,
		TaskCompleted:  true,
		TaskCancelled:  true,
		TaskFailed:     true,
	}
	for state, want := range terminal {
		if got := state.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", state, got, want)
		}
		if state.String() == "" {
			t.Errorf("state %d has no name", state)
		}
	}
}
