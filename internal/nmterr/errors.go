// Package nmterr defines the closed set of error kinds surfaced across the
// engine. Kinds are sentinel values, not types: callers compare with
// errors.Is against the wrapped sentinel rather than type-asserting.
package nmterr

import "errors"

var (
	ErrNotFound           = errors.New("nmt: not found")
	ErrDuplicate          = errors.New("nmt: duplicate")
	ErrOutOfRange         = errors.New("nmt: out of range")
	ErrInvalidArgument    = errors.New("nmt: invalid argument")
	ErrIntegrityViolation = errors.New("nmt: integrity violation")
	ErrStorageFailure     = errors.New("nmt: storage failure")
	ErrConflict           = errors.New("nmt: conflict")
	ErrCancelled          = errors.New("nmt: cancelled")
	ErrCapacity           = errors.New("nmt: capacity exceeded")
	ErrEmptyInput         = errors.New("nmt: empty input")
)
