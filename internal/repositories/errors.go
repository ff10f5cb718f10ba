package repositories

import "errors"

// ErrNotFound is returned when a requested document does not exist.
// Handlers compare with errors.Is to map it to a 404.
var ErrNotFound = errors.New("not found")
