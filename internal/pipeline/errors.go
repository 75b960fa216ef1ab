package pipeline

import "errors"

// ErrLoginFailed is returned when the logged-in marker does not appear
// after submitting the login form. It aborts the run.
var ErrLoginFailed = errors.New("login failed")
