package lifecycle

import (
	"errors"
	"fmt"

	"ecochain/store"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("pickup not found")
	ErrInvalidState     = errors.New("invalid pickup state")
	ErrAuthorization    = errors.New("not permitted")
	ErrAlreadyAssigned  = errors.New("pickup already assigned")
	ErrAlreadyRated     = errors.New("pickup already rated")
	ErrStoreUnavailable = errors.New("store unavailable")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storeError translates document store failures into the lifecycle taxonomy.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, store.ErrUnavailable):
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
