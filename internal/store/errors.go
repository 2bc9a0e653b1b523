package store

import "errors"

// ErrNotFound is returned when a query matches no rows. Callers translate it
// at the boundary; it is never wrapped around persistence failures.
var ErrNotFound = errors.New("not found")
