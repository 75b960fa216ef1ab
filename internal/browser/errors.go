package browser

import "errors"

var (
	// ErrTimeout is returned when a selector does not appear in time.
	ErrTimeout = errors.New("timed out waiting for selector")

	// ErrElementNotFound is returned when a selector matches nothing.
	ErrElementNotFound = errors.New("element not found")

	// ErrNotClickable is returned when an element neither links anywhere
	// nor submits a form.
	ErrNotClickable = errors.New("element is not clickable")

	// ErrNotDownloadable is returned when a download trigger has no target.
	ErrNotDownloadable = errors.New("element does not point at a download")

	// ErrNoDocument is returned when an operation needs a loaded page.
	ErrNoDocument = errors.New("no page loaded")

	// ErrUnexpectedStatus is returned for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrNoSelectors is returned by WaitForAny when called without selectors.
	ErrNoSelectors = errors.New("no selectors to wait for")
)
