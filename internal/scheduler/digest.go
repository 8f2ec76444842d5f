package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rl1809/production-schedule/internal/core/domain"
)

// ScheduleLister is the read side of the schedule service used by the digest.
type ScheduleLister interface {
	ListSchedules(ctx context.Context, filter domain.ScheduleFilter) ([]domain.Schedule, error)
}

// Digest summarizes the day's production schedules.
type Digest struct {
	Date          time.Time
	Schedules     int
	TotalQuantity int
	ByStatus      map[domain.ScheduleStatus]int
}

// Scheduler runs the daily digest job on a cron expression.
type Scheduler struct {
	cron    *cron.Cron
	expr    string
	lister  ScheduleLister
	logger  *zap.Logger
	now     func() time.Time
	timeout time.Duration
}

func NewScheduler(expr string, lister ScheduleLister, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:    cron.New(),
		expr:    expr,
		lister:  lister,
		logger:  logger,
		now:     time.Now,
		timeout: time.Minute,
	}
}

// Start registers the digest job and starts the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.expr, s.runDigest); err != nil {
		return fmt.Errorf("schedule digest %q: %w", s.expr, err)
	}

	s.logger.Info("starting scheduler", zap.String("digest_cron", s.expr))
	s.cron.Start()
	return nil
}

// Stop stops the cron runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	digest, err := s.BuildDigest(ctx, s.now())
	if err != nil {
		s.logger.Error("failed to build schedule digest", zap.Error(err))
		return
	}

	fields := []zap.Field{
		zap.String("date", digest.Date.Format(domain.DateLayout)),
		zap.Int("schedules", digest.Schedules),
		zap.Int("total_quantity", digest.TotalQuantity),
	}
	for _, status := range domain.AllScheduleStatuses {
		fields = append(fields, zap.Int(string(status), digest.ByStatus[status]))
	}
	s.logger.Info("daily schedule digest", fields...)
}

// BuildDigest counts the schedules planned for the day of at.
func (s *Scheduler) BuildDigest(ctx context.Context, at time.Time) (Digest, error) {
	day := domain.Day(at)
	schedules, err := s.lister.ListSchedules(ctx, domain.ScheduleFilter{ExactDate: &day})
	if err != nil {
		return Digest{}, err
	}

	digest := Digest{
		Date:     day,
		ByStatus: make(map[domain.ScheduleStatus]int, len(domain.AllScheduleStatuses)),
	}
	for _, sc := range schedules {
		digest.Schedules++
		digest.TotalQuantity += sc.Quantity
		digest.ByStatus[sc.Status]++
	}
	return digest, nil
}
