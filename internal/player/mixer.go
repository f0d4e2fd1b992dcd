package player

import (
	"github.com/charmbracelet/log"

	"github.com/soundlift/stemx/internal/models"
	"github.com/soundlift/stemx/internal/shared"
)

// Mixer layers mute/solo exclusivity on a [Player].
//
// Invariant: at most one stem is soloed at any time. The mixer holds no
// audio state of its own; it mutates the player's stored flags and relies on
// the player to resolve effective audibility.
type Mixer struct {
	player *Player
	logger *log.Logger
}

// NewMixer creates a Mixer over the player.
func NewMixer(p *Player, logger *log.Logger) *Mixer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Mixer{player: p, logger: logger}
}

// ToggleMute flips the stored mute flag for stem.
//
// Rejected silently while a different stem is soloed: the solo owns
// audibility and a mute toggle underneath it would be invisible and
// surprising once the solo clears.
func (m *Mixer) ToggleMute(stem models.StemName) {
	if soloed := m.player.soloedStem(); soloed != "" && soloed != stem {
		m.logger.Debug("mute toggle rejected while solo active", "stem", stem, "soloed", soloed)
		return
	}

	for _, ch := range m.player.Channels() {
		if ch.Stem == stem {
			if err := m.player.setMuted(stem, !ch.Muted); err != nil {
				m.logger.Warn("failed to toggle mute", "stem", stem, "error", err)
			}
			return
		}
	}
	m.logger.Debug("mute toggle for absent stem", "stem", stem)
}

// ToggleSolo solos stem, supersedes a previous solo with it, or clears the
// solo when stem is already soloed.
//
// Clearing restores every channel to unmuted at full volume and resets all
// stored indicator state.
func (m *Mixer) ToggleSolo(stem models.StemName) {
	target := stem
	if m.player.soloedStem() == stem {
		target = ""
	}

	if err := m.player.setSolo(target); err != nil {
		m.logger.Warn("failed to toggle solo", "stem", stem, "error", err)
		return
	}

	if target == "" {
		m.logger.Debug("solo cleared", "stem", stem)
	} else {
		m.logger.Debug("solo set", "stem", target)
	}
}

// Soloed returns the currently soloed stem, or "" when none.
func (m *Mixer) Soloed() models.StemName {
	return m.player.soloedStem()
}
