package sequencer

import "errors"

var (
	// ErrNoCredential is returned for a locked or challenge item reached
	// before any code was obtained.
	ErrNoCredential = errors.New("no credential available")

	// ErrNoCode is returned when the challenge API answered without a usable code.
	ErrNoCode = errors.New("no code obtained")

	// ErrInvalidCode is returned when an obtained code is not upper-case
	// alphanumeric of at least four characters.
	ErrInvalidCode = errors.New("invalid code")
)
