package port

import (
	"context"
	"errors"
	"time"

	"github.com/rl1809/production-schedule/internal/core/domain"
)

var (
	// ErrDuplicateScheduleKey is returned by Save when inserting a schedule whose
	// (product, date) pair is already taken.
	ErrDuplicateScheduleKey = errors.New("duplicate schedule key")

	// ErrVersionConflict is returned by Save when the stored version no longer
	// matches the one the caller read.
	ErrVersionConflict = errors.New("schedule version conflict")
)

type ScheduleRepository interface {
	// FindByProductAndDate returns nil, nil when no schedule exists for the key
	FindByProductAndDate(ctx context.Context, productID string, date time.Time) (*domain.Schedule, error)

	// FindByID returns nil, nil for unknown ids
	FindByID(ctx context.Context, id string) (*domain.Schedule, error)

	// Save inserts (Version == 0) or updates the schedule and replaces its parts
	// atomically. On success the stored version is written back to schedule.
	Save(ctx context.Context, schedule *domain.Schedule) error

	// Delete removes the schedule and its parts, reporting whether it existed
	Delete(ctx context.Context, id string) (bool, error)

	// Query returns matching schedules ordered by date then product name
	Query(ctx context.Context, filter domain.ScheduleFilter) ([]domain.Schedule, error)
}
