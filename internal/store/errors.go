package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique field is already taken.
var ErrConflict = errors.New("already exists")

// ErrProtected is returned when deleting the reserved admin account.
var ErrProtected = errors.New("account is protected")
