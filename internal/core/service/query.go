package service

import (
	"context"

	"github.com/rl1809/production-schedule/internal/core/domain"
)

func (s *ScheduleService) GetSchedule(ctx context.Context, id string) (*domain.Schedule, error) {
	schedule, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, &StorageError{Op: "find schedule", Err: err}
	}
	if schedule == nil {
		return nil, ErrScheduleNotFound
	}
	return schedule, nil
}

// ListSchedules returns schedules matching filter, ordered by date then the
// product's current catalog name. No match yields an empty slice.
func (s *ScheduleService) ListSchedules(ctx context.Context, filter domain.ScheduleFilter) ([]domain.Schedule, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, ErrInvalidFilter
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	filter = filter.Normalize()
	page := filter
	filter.Limit, filter.Offset = 0, 0

	schedules, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, &StorageError{Op: "query schedules", Err: err}
	}
	if err := s.refreshProductNames(ctx, schedules); err != nil {
		return nil, err
	}
	domain.SortSchedules(schedules)

	schedules = page.Paginate(schedules)
	if schedules == nil {
		schedules = []domain.Schedule{}
	}
	return schedules, nil
}

// refreshProductNames replaces each name snapshot with the catalog's current
// name. Products gone from the catalog keep their snapshot.
func (s *ScheduleService) refreshProductNames(ctx context.Context, schedules []domain.Schedule) error {
	names := make(map[string]string)
	for i := range schedules {
		id := schedules[i].ProductID
		name, ok := names[id]
		if !ok {
			product, err := s.catalog.GetProductWithParts(ctx, id)
			if err != nil {
				return &StorageError{Op: "load product", Err: err}
			}
			name = schedules[i].ProductName
			if product != nil {
				name = product.Name
			}
			names[id] = name
		}
		schedules[i].ProductName = name
	}
	return nil
}
