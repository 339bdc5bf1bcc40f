package storage

import "errors"

// ErrNotFound is returned when a query matched no rows.
var ErrNotFound = errors.New("storage: not found")
