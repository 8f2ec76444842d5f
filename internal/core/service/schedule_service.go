package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/production-schedule/internal/core/domain"
	"github.com/rl1809/production-schedule/internal/port"
)

const idempotencyKeyPrefix = "idempotency:schedule:"

type ProductionRequest struct {
	RequestID     string // optional, replays are rejected when set
	ProductID     string
	ScheduledDate time.Time
	Quantity      int
}

type ScheduleService struct {
	catalog     port.ProductCatalog
	store       port.ScheduleRepository
	locker      port.KeyLocker
	idempotency port.IdempotencyStore
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

type Option func(*ScheduleService)

// WithIdempotencyStore enables request-id deduplication for CreateOrAccumulate.
func WithIdempotencyStore(store port.IdempotencyStore) Option {
	return func(s *ScheduleService) { s.idempotency = store }
}

func WithClock(now func() time.Time) Option {
	return func(s *ScheduleService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *ScheduleService) { s.newID = newID }
}

func NewScheduleService(catalog port.ProductCatalog, store port.ScheduleRepository, locker port.KeyLocker, logger *zap.Logger, opts ...Option) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ScheduleService{
		catalog: catalog,
		store:   store,
		locker:  locker,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AggregationKey identifies the single schedule allowed per product and day.
func AggregationKey(productID string, date time.Time) string {
	return fmt.Sprintf("schedule:%s:%s", productID, domain.Day(date).Format(domain.DateLayout))
}

// CreateOrAccumulate merges a production request into the schedule for its
// product and day, creating the schedule on first use.
func (s *ScheduleService) CreateOrAccumulate(ctx context.Context, req ProductionRequest) (schedule *domain.Schedule, err error) {
	if req.Quantity < 1 || req.Quantity > domain.MaxQuantity {
		return nil, ErrInvalidQuantity
	}
	date := domain.Day(req.ScheduledDate)

	if req.RequestID != "" && s.idempotency != nil {
		key := idempotencyKeyPrefix + req.RequestID
		ok, ierr := s.idempotency.SetIdempotency(ctx, key)
		if ierr != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", ierr)
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
		defer func() {
			if err == nil {
				return
			}
			if cerr := s.idempotency.ClearIdempotency(context.WithoutCancel(ctx), key); cerr != nil {
				s.logger.Warn("failed to clear idempotency key", zap.String("request_id", req.RequestID), zap.Error(cerr))
			}
		}()
	}

	key := AggregationKey(req.ProductID, date)
	unlock, err := s.locker.Lock(ctx, key)
	if errors.Is(err, port.ErrLockNotObtained) {
		return nil, ErrScheduleBusy
	}
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	defer unlock()

	schedule, created, err := s.reconcile(ctx, req.ProductID, date, req.Quantity)
	if isConflict(err) {
		s.logger.Warn("schedule write conflict, retrying as update", zap.String("key", key), zap.Error(err))
		schedule, created, err = s.reconcile(ctx, req.ProductID, date, req.Quantity)
		if isConflict(err) {
			err = &StorageError{Op: "save schedule", Err: err}
		}
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("schedule reconciled",
		zap.String("schedule_id", schedule.ID),
		zap.String("product_id", schedule.ProductID),
		zap.String("date", date.Format(domain.DateLayout)),
		zap.Int("requested", req.Quantity),
		zap.Int("total", schedule.Quantity),
		zap.Bool("created", created))
	return schedule, nil
}

// reconcile runs one read-modify-write pass. Store conflicts are returned
// unwrapped so the caller can retry them.
func (s *ScheduleService) reconcile(ctx context.Context, productID string, date time.Time, quantity int) (*domain.Schedule, bool, error) {
	product, err := s.catalog.GetProductWithParts(ctx, productID)
	if err != nil {
		return nil, false, &StorageError{Op: "load product", Err: err}
	}
	if product == nil {
		return nil, false, ErrProductNotFound
	}
	if len(product.Parts) == 0 {
		return nil, false, ErrProductHasNoParts
	}

	existing, err := s.store.FindByProductAndDate(ctx, product.ID, date)
	if err != nil {
		return nil, false, &StorageError{Op: "find schedule", Err: err}
	}

	now := s.now().UTC()
	var schedule *domain.Schedule
	if existing == nil {
		schedule, err = s.newSchedule(product, date, quantity, now)
	} else {
		schedule, err = s.accumulate(existing, product, quantity, now)
	}
	if err != nil {
		return nil, false, err
	}

	if err := s.store.Save(ctx, schedule); err != nil {
		if isConflict(err) {
			return nil, false, err
		}
		return nil, false, &StorageError{Op: "save schedule", Err: err}
	}
	return schedule, existing == nil, nil
}

func (s *ScheduleService) newSchedule(product *domain.Product, date time.Time, quantity int, now time.Time) (*domain.Schedule, error) {
	parts, err := ComputePartQuantities(product.Parts, quantity)
	if err != nil {
		return nil, err
	}

	schedule := &domain.Schedule{
		ID:            s.newID(),
		ProductID:     product.ID,
		ProductName:   product.Name,
		ScheduledDate: date,
		Quantity:      quantity,
		Status:        domain.ScheduleStatusPlanned,
		CreatedAt:     now,
	}
	for i := range parts {
		parts[i].ID = s.newID()
		parts[i].ScheduleID = schedule.ID
	}
	schedule.Parts = parts
	return schedule, nil
}

// accumulate adds quantity to an existing schedule and brings its parts in
// line with the product's current bill-of-parts. Parts are matched by name,
// ignoring case; unmatched product parts are appended and scheduled parts no
// longer on the product are dropped.
func (s *ScheduleService) accumulate(existing *domain.Schedule, product *domain.Product, quantity int, now time.Time) (*domain.Schedule, error) {
	schedule := existing.Clone()
	if quantity > domain.MaxQuantity-schedule.Quantity {
		return nil, ErrInvalidQuantity
	}
	total := schedule.Quantity + quantity

	required, err := ComputePartQuantities(product.Parts, total)
	if err != nil {
		return nil, err
	}

	for _, want := range required {
		if i := indexPart(schedule.Parts, want.Name); i >= 0 {
			schedule.Parts[i].Measurements = want.Measurements
			schedule.Parts[i].Quantity = want.Quantity
			continue
		}
		want.ID = s.newID()
		want.ScheduleID = schedule.ID
		schedule.Parts = append(schedule.Parts, want)
	}

	current := make(map[string]struct{}, len(product.Parts))
	for _, p := range product.Parts {
		current[partKey(p.Name)] = struct{}{}
	}
	kept := schedule.Parts[:0]
	for _, p := range schedule.Parts {
		name := partKey(p.Name)
		if _, ok := current[name]; !ok {
			continue
		}
		// a second line with the same name would never be updated again
		delete(current, name)
		kept = append(kept, p)
	}
	schedule.Parts = kept

	schedule.Quantity = total
	schedule.ProductName = product.Name
	schedule.UpdatedAt = &now
	return &schedule, nil
}

func indexPart(parts []domain.ScheduledPart, name string) int {
	for i, p := range parts {
		if partKey(p.Name) == partKey(name) {
			return i
		}
	}
	return -1
}

func partKey(name string) string {
	return strings.ToLower(name)
}
