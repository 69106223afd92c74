package media

import (
	"errors"
	"fmt"
)

// ErrValidation is the parent of every input validation failure.
var ErrValidation = errors.New("validation failed")

var (
	ErrEmptyBatch      = fmt.Errorf("%w: no files provided", ErrValidation)
	ErrTooManyFiles    = fmt.Errorf("%w: too many files", ErrValidation)
	ErrEmptyFile       = fmt.Errorf("%w: file is empty", ErrValidation)
	ErrFileTooLarge    = fmt.Errorf("%w: file too large", ErrValidation)
	ErrUnsupportedType = fmt.Errorf("%w: unsupported content type", ErrValidation)
	ErrInvalidPath     = fmt.Errorf("%w: invalid path segment", ErrValidation)
)

var (
	ErrAccessDenied    = errors.New("access denied")
	ErrNotFound        = errors.New("media not found")
	ErrStorage         = errors.New("storage failure")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidOwner    = errors.New("invalid owner")
)

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
