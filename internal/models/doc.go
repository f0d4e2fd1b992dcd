// Package models defines domain entities shared across the stemx client.
//
// The package contains two categories of types:
//
// 1. Separation results: [Manifest], [StemAsset], and [HistoryEntry] describe
// the output of a completed separation job and its persisted form. Stem names
// form a closed tag set ([StemName]) iterated in a fixed canonical order via
// [StemNames].
//
// 2. Task tracking: [Task] and [TaskState] model the client-side lifecycle of
// an in-flight job (idle → submitting → processing → completed/cancelled/failed).
//
// Types here carry no behavior beyond accessors; orchestration lives in the
// tasks, player, and history packages.
package models
