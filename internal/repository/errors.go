// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow handlers to distinguish
// between failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
// Handlers translate it into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique index rejects a write, e.g. a
// second permission with the same (resource, action) pair or a reused
// blog slug.  Handlers translate it into HTTP 409.
var ErrDuplicate = errors.New("duplicate")

// ErrConflict is returned when a delete or update cannot be performed
// because of dependent records (e.g. deleting a role that is still
// assigned).  Handlers translate it into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrForbidden is returned when the caller attempts an operation on a
// resource it may not touch, such as deactivating its own account.
var ErrForbidden = errors.New("forbidden")

// ErrEmailExists is returned when registering an address that is taken.
var ErrEmailExists = errors.New("email already exists")
