// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the referenced request or task does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates a missing or malformed parameter. Validation
// failures are always detected before any mutation.
var ErrValidation = errors.New("invalid argument")

// ErrInvalidState indicates a state-machine guard failed, e.g. a task that
// was never assigned being reported as done.
var ErrInvalidState = errors.New("invalid state")

// ErrConflict indicates two callers raced for the same resource.
var ErrConflict = errors.New("conflict: resource was claimed by another caller")
