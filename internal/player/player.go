package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/soundlift/stemx/internal/models"
	"github.com/soundlift/stemx/internal/shared"
)

// Channel binds one stem to its playable handle plus the user's stored mixer
// flags. The stored flags are what the user toggled; the audible state may
// differ while a solo is active.
type Channel struct {
	Stem   models.StemName
	Muted  bool
	Volume float64

	handle Handle
}

// ChannelInfo is a render-ready snapshot of one channel.
type ChannelInfo struct {
	Stem     models.StemName
	Muted    bool
	Volume   float64
	Position time.Duration
	Duration time.Duration
}

// Player drives synchronized playback of all channels of one manifest.
type Player struct {
	logger *log.Logger
	open   HandleOpener

	mu         sync.Mutex
	manifest   *models.Manifest
	channels   []*Channel
	playing    bool
	soloed     models.StemName // "" when no solo is active
	lastRefPos time.Duration
}

// NewPlayer creates a Player that opens channel handles through open.
func NewPlayer(open HandleOpener, logger *log.Logger) *Player {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Player{logger: logger, open: open}
}

// Load replaces the active manifest: every existing channel is stopped and
// released first, then one channel per present stem is created in canonical
// order, paused, unmuted, at full volume.
//
// Teardown failures are logged per channel and never propagated; a stale
// handle must not block loading fresh ones. Load never runs concurrently with
// itself or any transport command.
func (p *Player) Load(ctx context.Context, manifest models.Manifest) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.teardownLocked()

	stems := manifest.PresentStems()
	if len(stems) == 0 {
		return fmt.Errorf("%w: manifest %s has no stems", shared.ErrInvalidInput, manifest.ID)
	}

	for _, stem := range stems {
		handle, err := p.open(ctx, stem, manifest.Stems[stem])
		if err != nil {
			p.teardownLocked()
			return fmt.Errorf("failed to open channel %s: %w", stem, err)
		}
		p.channels = append(p.channels, &Channel{
			Stem:   stem,
			Volume: 1,
			handle: handle,
		})
	}

	m := manifest
	p.manifest = &m
	p.playing = false
	p.soloed = ""
	p.lastRefPos = 0
	p.applyLocked()

	p.logger.Info("manifest loaded", "track_id", manifest.ID, "channels", len(p.channels))
	return nil
}

// Manifest returns the currently loaded manifest, or ok=false.
func (p *Player) Manifest() (models.Manifest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.manifest == nil {
		return models.Manifest{}, false
	}
	return *p.manifest, true
}

// Play starts every channel. Dispatch is fire-and-forget per channel to keep
// start skew small.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.channels {
		ch.handle.Play()
	}
	if len(p.channels) > 0 {
		p.playing = true
	}
}

// Pause halts every channel in place.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.channels {
		ch.handle.Pause()
	}
	p.playing = false
}

// Playing reports whether the session is in a playing state.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Stop halts every channel and rewinds it to zero. Stale handles are logged
// and skipped, never fatal.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.channels {
		if err := ch.handle.Stop(); err != nil {
			p.logger.Warn("failed to stop channel", "stem", ch.Stem, "error", err)
		}
	}
	p.playing = false
	p.lastRefPos = 0
}

// Seek moves the session to fraction (0..1) of each channel's own duration,
// using origin as the channel the user interacted with. The origin channel is
// already at the target position and is not re-seeked; every other channel
// gets the equivalent fractional position, so stems with differing absolute
// durations stay musically aligned.
func (p *Player) Seek(fraction float64, origin models.StemName) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seekLocked(fraction, origin, false)
}

// Scrub emulates dragging the origin channel's own position indicator: the
// origin seeks to the fractional position first, then it propagates to every
// other channel exactly like [Player.Seek]. Used by the TUI, whose arrow keys
// have no indicator to drag.
func (p *Player) Scrub(fraction float64, origin models.StemName) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seekLocked(fraction, origin, true)
}

func (p *Player) seekLocked(fraction float64, origin models.StemName, moveOrigin bool) error {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	if p.channelLocked(origin) == nil {
		return fmt.Errorf("%w: %s", shared.ErrStemNotFound, origin)
	}

	for _, ch := range p.channels {
		if ch.Stem == origin && !moveOrigin {
			continue
		}
		target := time.Duration(fraction * float64(ch.handle.Duration()))
		if err := ch.handle.Seek(target); err != nil {
			p.logger.Warn("failed to seek channel", "stem", ch.Stem, "error", err)
		}
	}

	// Keep wrap detection from misreading a backwards seek as a loop.
	if len(p.channels) > 0 {
		p.lastRefPos = p.channels[0].handle.Position()
	}
	return nil
}

// OnTick advances loop-boundary resynchronization and should be called
// periodically (the TUI drives it from its playback ticker).
//
// Channels loop independently at the media level, which lets small timing
// differences accumulate cycle over cycle. When the reference channel (first
// in canonical order) wraps while playing, every channel is restarted from
// zero, bounding the drift to a single cycle's worth.
func (p *Player) OnTick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing || len(p.channels) == 0 {
		return
	}

	pos := p.channels[0].handle.Position()
	if pos < p.lastRefPos {
		p.restartLocked()
		pos = 0
	}
	p.lastRefPos = pos
}

// restartLocked seeks every channel to zero, leaving play state untouched.
func (p *Player) restartLocked() {
	for _, ch := range p.channels {
		if err := ch.handle.Seek(0); err != nil {
			p.logger.Warn("failed to restart channel", "stem", ch.Stem, "error", err)
		}
	}
	p.logger.Debug("loop boundary: channels re-phased")
}

// Channels returns a snapshot of every channel in canonical order.
func (p *Player) Channels() []ChannelInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	infos := make([]ChannelInfo, 0, len(p.channels))
	for _, ch := range p.channels {
		infos = append(infos, ChannelInfo{
			Stem:     ch.Stem,
			Muted:    ch.Muted,
			Volume:   ch.Volume,
			Position: ch.handle.Position(),
			Duration: ch.handle.Duration(),
		})
	}
	return infos
}

// setMuted flips the stored mute flag for a stem and reapplies effective
// state. Used by the mixer.
func (p *Player) setMuted(stem models.StemName, muted bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := p.channelLocked(stem)
	if ch == nil {
		return fmt.Errorf("%w: %s", shared.ErrStemNotFound, stem)
	}
	ch.Muted = muted
	p.applyLocked()
	return nil
}

// setSolo records the soloed stem ("" clears it) and reapplies effective
// state. Clearing the solo also resets stored flags: all channels come back
// unmuted at full volume.
func (p *Player) setSolo(stem models.StemName) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if stem != "" && p.channelLocked(stem) == nil {
		return fmt.Errorf("%w: %s", shared.ErrStemNotFound, stem)
	}

	p.soloed = stem
	if stem == "" {
		for _, ch := range p.channels {
			ch.Muted = false
			ch.Volume = 1
		}
	}
	p.applyLocked()
	return nil
}

// soloedStem returns the active solo, or "".
func (p *Player) soloedStem() models.StemName {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.soloed
}

// applyLocked pushes effective mute and volume down to every handle.
//
// Invariant: while a solo is active, exactly the soloed channel is audible
// (at full volume) and every other channel is silent, regardless of stored
// flags.
func (p *Player) applyLocked() {
	for _, ch := range p.channels {
		effectiveMuted := ch.Muted
		volume := ch.Volume
		if p.soloed != "" {
			effectiveMuted = ch.Stem != p.soloed
			if ch.Stem == p.soloed {
				volume = 1
			}
		}
		ch.handle.SetVolume(volume)
		ch.handle.SetSilent(effectiveMuted)
	}
}

// channelLocked finds a channel by stem; callers hold p.mu.
func (p *Player) channelLocked(stem models.StemName) *Channel {
	for _, ch := range p.channels {
		if ch.Stem == stem {
			return ch
		}
	}
	return nil
}

// teardownLocked stops and releases every channel. Each release is isolated:
// one channel's failure never blocks the others.
func (p *Player) teardownLocked() {
	for _, ch := range p.channels {
		if err := ch.handle.Stop(); err != nil {
			p.logger.Warn("failed to stop channel during teardown", "stem", ch.Stem, "error", err)
		}
		if err := ch.handle.Close(); err != nil {
			p.logger.Warn("failed to release channel", "stem", ch.Stem, "error", err)
		}
	}
	p.channels = nil
	p.manifest = nil
	p.playing = false
	p.soloed = ""
	p.lastRefPos = 0
}

// Close tears down all channels; the player can load a new manifest after.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardownLocked()
}
