package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Submission errors
	ErrFileTooLarge = fmt.Errorf("file exceeds the maximum upload size")
	ErrTaskInFlight = fmt.Errorf("a task is already in flight")
	ErrTaskNotFound = fmt.Errorf("task not found")
	ErrTimeout      = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRemoteCancelled    = fmt.Errorf("task cancelled by server")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Playback errors
	ErrNoManifest   = fmt.Errorf("no manifest loaded")
	ErrStemNotFound = fmt.Errorf("stem not present")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
