package formatter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/soundlift/stemx/internal/models"
	"github.com/soundlift/stemx/internal/shared"
)

func sampleEntries() []models.HistoryEntry {
	saved := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC).UnixMilli()
	return []models.HistoryEntry{
		{
			Manifest: models.Manifest{
				ID:   "t1",
				Name: "midnight drive",
				Key:  "C#m",
				Stems: map[models.StemName]models.StemAsset{
					models.StemVocals: {PlaybackURL: "http://s/v.wav", DownloadURL: "http://s/v.zip"},
					models.StemDrums:  {PlaybackURL: "http://s/d.wav", DownloadURL: "http://s/d.zip"},
				},
			},
			Timestamp: saved,
		},
		{
			Manifest: models.Manifest{
				ID:   "t2",
				Name: "untitled",
				Stems: map[models.StemName]models.StemAsset{
					models.StemBass: {PlaybackURL: "http://s/b.wav", DownloadURL: "http://s/b.zip"},
				},
			},
			Timestamp: saved,
		},
	}
}

func TestExport_Dispatch(t *testing.T) {
	entries := sampleEntries()

	for _, format := range []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText, ""} {
		if _, err := Export(entries, format); err != nil {
			t.Errorf("Export(%q) error = %v", format, err)
		}
	}

	_, err := Export(entries, "yaml")
	if !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("Export(yaml) error = %v, want ErrInvalidFlag", err)
	}
}

func TestExportToJSON(t *testing.T) {
	data, err := ExportToJSON(sampleEntries())
	if err != nil {
		t.Fatalf("ExportToJSON() error = %v", err)
	}

	var decoded []models.HistoryEntry
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d entries, want 2", len(decoded))
	}
	if decoded[0].Key != "C#m" {
		t.Errorf("key = %s, want C#m", decoded[0].Key)
	}
}

func TestExportToCSV(t *testing.T) {
	data, err := ExportToCSV(sampleEntries())
	if err != nil {
		t.Fatalf("ExportToCSV() error = %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("CSV rows = %d, want header plus 2", len(records))
	}
	if records[0][0] != "ID" || records[0][3] != "Stems" {
		t.Errorf("header = %v", records[0])
	}
	// Stems render in canonical order no matter the map iteration.
	if records[1][3] != "drums, vocals" {
		t.Errorf("stems column = %q, want canonical order", records[1][3])
	}
}

func TestExportToMarkdown(t *testing.T) {
	data, err := ExportToMarkdown(sampleEntries())
	if err != nil {
		t.Fatalf("ExportToMarkdown() error = %v", err)
	}

	out := string(data)
	if !strings.Contains(out, "# Separation History") {
		t.Error("missing title")
	}
	if !strings.Contains(out, "**midnight drive** (key: C#m)") {
		t.Errorf("missing entry with key, got:\n%s", out)
	}
	if !strings.Contains(out, "**untitled** -") {
		t.Errorf("keyless entry should omit the key part, got:\n%s", out)
	}
}

func TestExportToText(t *testing.T) {
	t.Run("empty history", func(t *testing.T) {
		data, err := ExportToText(nil)
		if err != nil {
			t.Fatalf("ExportToText() error = %v", err)
		}
		if !strings.Contains(string(data), "No separations yet") {
			t.Errorf("empty output = %q", data)
		}
	})

	t.Run("entries", func(t *testing.T) {
		data, err := ExportToText(sampleEntries())
		if err != nil {
			t.Fatalf("ExportToText() error = %v", err)
		}
		out := string(data)
		if !strings.Contains(out, "midnight drive") {
			t.Error("missing entry name")
		}
		if !strings.Contains(out, "key -") {
			t.Errorf("keyless entry should show a dash, got:\n%s", out)
		}
	})
}
