package cipher

import "errors"

// Challenge API errors. Both mean no code was obtained for the item.
var (
	// ErrUnexpectedStatus is returned when the API answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("challenge API returned unexpected status")

	// ErrMalformedAnswer is returned when the body is neither a direct code
	// nor a vault challenge.
	ErrMalformedAnswer = errors.New("malformed challenge answer")

	// ErrEmptyBaseURL is returned by NewClient when no API URL is configured.
	ErrEmptyBaseURL = errors.New("challenge API base URL is empty")
)
