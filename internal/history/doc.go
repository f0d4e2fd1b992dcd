// Package history persists the bounded list of completed separation results.
//
// The whole history is stored as one ordered JSON list under a single
// well-known key in the local SQLite database, most-recent-first, truncated to
// a configurable capacity. [Store.Save] applies a dedup-and-promote policy:
// saving a manifest that matches an existing entry by id, or by name and key,
// removes the old entry and inserts the new one at the head.
//
// Deleting an entry also asks the remote service to drop the underlying
// artifacts; a remote not-found is treated as a successful delete so stale
// entries never get stuck.
package history
