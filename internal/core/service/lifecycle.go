package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rl1809/production-schedule/internal/core/domain"
)

// SetStatus moves a schedule to status. Any status may follow any other;
// quantity and parts are left untouched.
func (s *ScheduleService) SetStatus(ctx context.Context, id string, status domain.ScheduleStatus) (*domain.Schedule, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	schedule, err := s.setStatus(ctx, id, status)
	if isConflict(err) {
		s.logger.Warn("schedule status conflict, retrying", zap.String("schedule_id", id), zap.Error(err))
		schedule, err = s.setStatus(ctx, id, status)
		if isConflict(err) {
			err = &StorageError{Op: "save schedule", Err: err}
		}
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("schedule status changed", zap.String("schedule_id", id), zap.String("status", string(status)))
	return schedule, nil
}

func (s *ScheduleService) setStatus(ctx context.Context, id string, status domain.ScheduleStatus) (*domain.Schedule, error) {
	schedule, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, &StorageError{Op: "find schedule", Err: err}
	}
	if schedule == nil {
		return nil, ErrScheduleNotFound
	}

	now := s.now().UTC()
	schedule.Status = status
	schedule.UpdatedAt = &now

	if err := s.store.Save(ctx, schedule); err != nil {
		if isConflict(err) {
			return nil, err
		}
		return nil, &StorageError{Op: "save schedule", Err: err}
	}
	return schedule, nil
}

// Delete removes a schedule together with its parts.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return &StorageError{Op: "delete schedule", Err: err}
	}
	if !deleted {
		return ErrScheduleNotFound
	}

	s.logger.Info("schedule deleted", zap.String("schedule_id", id))
	return nil
}
