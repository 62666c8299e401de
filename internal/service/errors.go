package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced document or policy does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrForbidden means the caller may not mutate a record they do not own.
	ErrForbidden = errors.New("operation not permitted")
	// ErrValidation means malformed input, detected before any storage
	// mutation.
	ErrValidation = errors.New("validation failed")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
