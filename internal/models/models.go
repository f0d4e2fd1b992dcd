// package models defines the data model for the stem separation client
package models

import "time"

// StemName identifies one isolated instrument track produced by a separation job.
//
// The set of stem names is closed: a manifest may omit any of them, but it can
// never contain a name outside [StemNames].
type StemName string

const (
	StemDrums  StemName = "drums"
	StemBass   StemName = "bass"
	StemVocals StemName = "vocals"
	StemOther  StemName = "other"
)

// StemNames returns every stem name in canonical order.
//
// Channel creation, rendering, and stem iteration all follow this order so
// that the same manifest always produces the same channel layout.
func StemNames() []StemName {
	return []StemName{StemDrums, StemBass, StemVocals, StemOther}
}

// ValidStem reports whether name belongs to the closed stem set.
func ValidStem(name StemName) bool {
	for _, s := range StemNames() {
		if s == name {
			return true
		}
	}
	return false
}

// StemAsset holds the remote locations for a single separated stem.
type StemAsset struct {
	PlaybackURL string `json:"playback"`
	DownloadURL string `json:"download"`
}

// Manifest describes one completed separation job: its stems plus metadata.
type Manifest struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Key   string                 `json:"key,omitempty"` // detected musical key, e.g. "C#m"
	Stems map[StemName]StemAsset `json:"stems"`
}

// PresentStems returns the names of the stems present in the manifest, in
// canonical order.
func (m *Manifest) PresentStems() []StemName {
	var present []StemName
	for _, name := range StemNames() {
		if _, ok := m.Stems[name]; ok {
			present = append(present, name)
		}
	}
	return present
}

// HistoryEntry is a persisted record of a completed separation.
type HistoryEntry struct {
	Manifest
	Timestamp int64 `json:"timestamp"` // epoch millis
}

// NewHistoryEntry builds an entry for the manifest stamped with the current time.
func NewHistoryEntry(m Manifest) HistoryEntry {
	return HistoryEntry{Manifest: m, Timestamp: time.Now().UnixMilli()}
}
