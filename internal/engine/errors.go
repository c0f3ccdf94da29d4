package engine

import "errors"

var (
	// ErrNoSymptomsDetected means the extractor found nothing usable in the
	// submitted text.  The session stays in AwaitingSymptoms; the caller
	// should re-prompt for a more descriptive message.
	ErrNoSymptomsDetected = errors.New("no symptoms detected")

	// ErrInvalidStateTransition means a seam was called out of order, e.g.
	// guided answers before any symptom text.  This is caller protocol
	// misuse and is never silently reinterpreted.
	ErrInvalidStateTransition = errors.New("invalid session state for this operation")

	// ErrSessionNotFound is returned by the store for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
)
