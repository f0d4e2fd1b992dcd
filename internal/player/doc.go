// Package player implements the synchronized multi-channel stem player and
// its mixer controller.
//
// [Player] owns one [Channel] per stem present in the loaded manifest, created
// in canonical stem order. Transport commands (play, pause, stop, seek) fan
// out to every channel without waiting in between; channels are not started
// atomically, so a bounded inter-channel skew is accepted and corrected at
// loop boundaries: each channel loops at the media level, and when the
// reference channel (the first in canonical order) wraps around while the
// session is playing, [Player.OnTick] restarts every channel from zero to
// re-phase them.
//
// Seeking propagates by fraction, not absolute time: stems of one track can
// have slightly different durations, and a shared fraction keeps the musical
// position aligned.
//
// [Mixer] layers mute/solo exclusivity on top. At most one channel is soloed;
// while a solo is active the soloed channel is forced audible and every other
// channel is forced silent, independent of the mute flags users toggled
// before. Stored flags survive the solo and come back when it clears.
//
// Audio output goes through the [Handle] interface; the beep-backed
// implementation lives in beep.go and tests substitute fakes.
package player
