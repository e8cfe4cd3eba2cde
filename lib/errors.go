package lib

import "errors"

// ErrNotFound marks a missing required input. Callers treat it as fatal,
// unlike unit-local failures which are logged and skipped.
var ErrNotFound = errors.New("not found")
