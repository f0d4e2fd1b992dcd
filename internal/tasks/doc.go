// Package tasks implements the separation task lifecycle.
//
// The core abstraction is [Monitor], which owns the single in-flight task and
// drives it through submit → processing → completed/cancelled/failed. A
// submission starts two lifecycle-paired pieces of work on one per-task
// context: the cancellable upload request and the progress-polling loop.
// Cancelling that context tears both down together, so no poll loop can
// outlive its task.
//
// The Monitor emits typed [Event] values over a channel for non-blocking
// status reporting to CLI/UI layers. Progress ticks are droppable when no
// consumer keeps up; terminal outcomes displace stale buffered events and are
// never lost. Views may detach and re-attach at any time: the task is bound
// to the Monitor, not to whichever view happens to be showing it, and
// [Monitor.Snapshot] restores current progress on re-attach.
//
// Races between local cancellation and remote completion resolve
// deterministically: a response carrying the reserved cancelled status maps to
// a clean cancelled transition, never to a user-visible error.
package tasks
