package history

import "errors"

// ErrNotFound is returned by Get for unknown record IDs.
var ErrNotFound = errors.New("history record not found")
