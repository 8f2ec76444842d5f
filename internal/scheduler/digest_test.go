package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rl1809/production-schedule/internal/core/domain"
)

type stubLister struct {
	schedules []domain.Schedule
	err       error
	got       domain.ScheduleFilter
}

func (s *stubLister) ListSchedules(ctx context.Context, filter domain.ScheduleFilter) ([]domain.Schedule, error) {
	s.got = filter
	return s.schedules, s.err
}

func TestBuildDigest(t *testing.T) {
	lister := &stubLister{schedules: []domain.Schedule{
		{Quantity: 3, Status: domain.ScheduleStatusPlanned},
		{Quantity: 5, Status: domain.ScheduleStatusPlanned},
		{Quantity: 2, Status: domain.ScheduleStatusCompleted},
	}}
	s := NewScheduler("0 6 * * *", lister, nil)

	at := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)
	digest, err := s.BuildDigest(context.Background(), at)
	require.NoError(t, err)

	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NotNil(t, lister.got.ExactDate)
	assert.Equal(t, day, *lister.got.ExactDate)

	assert.Equal(t, day, digest.Date)
	assert.Equal(t, 3, digest.Schedules)
	assert.Equal(t, 10, digest.TotalQuantity)
	assert.Equal(t, 2, digest.ByStatus[domain.ScheduleStatusPlanned])
	assert.Equal(t, 1, digest.ByStatus[domain.ScheduleStatusCompleted])
	assert.Equal(t, 0, digest.ByStatus[domain.ScheduleStatusCancelled])
}

func TestRunDigest_LogsSummary(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	lister := &stubLister{schedules: []domain.Schedule{{Quantity: 4, Status: domain.ScheduleStatusInProgress}}}
	s := NewScheduler("0 6 * * *", lister, zap.New(core))
	s.now = func() time.Time { return time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC) }

	s.runDigest()

	entries := logs.FilterMessage("daily schedule digest").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "2024-03-10", fields["date"])
	assert.EqualValues(t, 1, fields["schedules"])
	assert.EqualValues(t, 4, fields["total_quantity"])
	assert.EqualValues(t, 1, fields["in_progress"])
}

func TestRunDigest_LogsFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewScheduler("0 6 * * *", &stubLister{err: errors.New("db down")}, zap.New(core))

	s.runDigest()

	assert.Equal(t, 1, logs.FilterMessage("failed to build schedule digest").Len())
	assert.Equal(t, 0, logs.FilterMessage("daily schedule digest").Len())
}

func TestStart_RejectsBadSpec(t *testing.T) {
	s := NewScheduler("not a cron", &stubLister{}, nil)
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler("@every 1h", &stubLister{}, nil)
	require.NoError(t, s.Start())
	s.Stop()
}
