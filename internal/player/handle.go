package player

import (
	"context"
	"time"

	"github.com/soundlift/stemx/internal/models"
)

// Handle is one decoded-audio resource bound to a stem.
//
// Implementations loop at the media level: playback past the end wraps to the
// start on its own, and Position reflects the wrap. Play and Pause are
// non-blocking so the Player can dispatch them across channels with minimal
// start skew.
type Handle interface {
	Play()
	Pause()

	// Stop pauses and rewinds to zero.
	Stop() error

	// Seek moves to an absolute position within the media.
	Seek(pos time.Duration) error

	Position() time.Duration
	Duration() time.Duration

	// SetVolume sets the stored gain in [0, 1].
	SetVolume(v float64)

	// SetSilent forces the channel silent without touching the stored gain.
	// This is the effective-mute switch the mixer drives.
	SetSilent(silent bool)

	// Close releases the decoded audio. The handle is unusable afterwards.
	Close() error
}

// HandleOpener produces a Handle for one stem asset. The production opener
// downloads and decodes the playback URL; tests plug in fakes.
type HandleOpener func(ctx context.Context, stem models.StemName, asset models.StemAsset) (Handle, error)
