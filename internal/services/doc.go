// Package services contains the HTTP client for the remote separation service.
//
// The [SeparationService] interface covers the full remote contract: submit an
// upload, poll task progress, request cancellation, and delete a processed
// track. [Client] is the concrete implementation; every method takes a
// [context.Context] so the caller controls cancellation; aborting an upload
// mid-flight is how user-initiated cancel tears down the transport.
//
// The service reserves HTTP 499 for "task cancelled". Client maps it to
// [shared.ErrRemoteCancelled] so callers can distinguish a clean cancellation
// from a failure with [errors.Is].
package services
