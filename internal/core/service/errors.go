package service

import (
	"errors"
	"fmt"

	"github.com/rl1809/production-schedule/internal/port"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be between 1 and 2147483647")
	ErrInvalidStatus     = errors.New("invalid schedule status")
	ErrInvalidFilter     = errors.New("invalid schedule filter")
	ErrProductNotFound   = errors.New("product not found")
	ErrProductHasNoParts = errors.New("product has no parts")
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrDuplicateRequest  = errors.New("duplicate request")
	ErrScheduleBusy      = errors.New("schedule is busy, try again")

	// ErrStorage matches every *StorageError via errors.Is.
	ErrStorage = errors.New("storage error")
)

// StorageError wraps a failure of the catalog or schedule store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func isConflict(err error) bool {
	return errors.Is(err, port.ErrDuplicateScheduleKey) || errors.Is(err, port.ErrVersionConflict)
}
