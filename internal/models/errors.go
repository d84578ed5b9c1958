package models

import (
	"errors"
)

// Error kinds surfaced by the engine. Per-page extraction failures are not
// errors at all: they are recorded as Page status so a multi-page ingest
// stays total under partial failure.
var (
	// ErrUnsupportedFormat fails a whole document fast; no partial progress
	// is possible.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrNotFound means the document or session an operation requires is absent.
	ErrNotFound = errors.New("not found")

	// ErrGenerationUnavailable means the external generation collaborator
	// failed or timed out. The caller owns the retry policy.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrIndexInconsistent flags a broken index invariant. Correct operation
	// never produces it; when detected we fail loudly instead of returning
	// wrong results.
	ErrIndexInconsistent = errors.New("index inconsistent")
)
