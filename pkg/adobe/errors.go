package adobe

import "errors"

var (
	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid adobe configuration")

	// Authentication errors.
	ErrAuthFailed = errors.New("adobe authentication failed")

	// Async job errors.
	ErrNoStatusURL = errors.New("no status url in job response")
	ErrJobFailed   = errors.New("job failed")
	ErrJobTimeout  = errors.New("job did not complete in time")

	// Transport errors.
	ErrRequestFailed    = errors.New("request failed")
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// Result extraction errors.
	ErrNoImages   = errors.New("no image urls in job result")
	ErrNoManifest = errors.New("no manifest in job result")
)
