// Package ui implements the interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow around the separation session:
//  1. [HomeView] : Past separations plus a path prompt for a new upload
//  2. [ProcessingView] : Live progress of the in-flight task, with cancel
//  3. [PlayerView] : Synchronized multitrack playback with mute/solo mixing
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via typed message structs.
// Lifecycle events flow through a channel from the task Monitor, so the model
// learns about completion and failure no matter which view is showing.
//
// Leaving [ProcessingView] backgrounds the job rather than cancelling it: the
// Monitor keeps running and the home view shows a running badge; `p`
// re-attaches to the live progress via the Monitor's snapshot.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
