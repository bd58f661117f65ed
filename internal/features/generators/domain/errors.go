package domain

import "errors"

// Sentinel errors for the generator engine. Callers distinguish the
// failure class with errors.Is; every error is terminal for the call.
var (
	// ErrNotFound reports an unknown generator identifier.
	ErrNotFound = errors.New("generator not found")

	// ErrValidation reports a malformed or out-of-range definition field.
	ErrValidation = errors.New("invalid generator definition")

	// ErrTemplate reports malformed placeholder syntax in a prompt template.
	ErrTemplate = errors.New("malformed prompt template")
)
