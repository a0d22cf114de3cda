package database

import "errors"

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("entity not found")

// ErrConflict is returned when a write would break a uniqueness or
// reference constraint
var ErrConflict = errors.New("entity conflicts with existing data")
