package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/production-schedule/internal/core/domain"
	"github.com/rl1809/production-schedule/internal/port"
)

// MemoryAdapter is a process-local schedule store with the same uniqueness
// and version rules as the database adapters.
type MemoryAdapter struct {
	mu        sync.RWMutex
	schedules map[string]domain.Schedule
	byKey     map[string]string // aggregation key -> schedule id
}

var _ port.ScheduleRepository = (*MemoryAdapter)(nil)

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		schedules: make(map[string]domain.Schedule),
		byKey:     make(map[string]string),
	}
}

func memoryKey(productID string, date time.Time) string {
	return productID + "|" + domain.Day(date).Format(domain.DateLayout)
}

func (m *MemoryAdapter) FindByProductAndDate(ctx context.Context, productID string, date time.Time) (*domain.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byKey[memoryKey(productID, date)]
	if !ok {
		return nil, nil
	}
	s := m.schedules[id].Clone()
	return &s, nil
}

func (m *MemoryAdapter) FindByID(ctx context.Context, id string) (*domain.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.schedules[id]
	if !ok {
		return nil, nil
	}
	s := stored.Clone()
	return &s, nil
}

func (m *MemoryAdapter) Save(ctx context.Context, s *domain.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey(s.ProductID, s.ScheduledDate)
	if s.Version == 0 {
		if _, taken := m.byKey[key]; taken {
			return port.ErrDuplicateScheduleKey
		}
	} else {
		stored, ok := m.schedules[s.ID]
		if !ok || stored.Version != s.Version {
			return port.ErrVersionConflict
		}
	}

	s.Version++
	m.schedules[s.ID] = s.Clone()
	m.byKey[key] = s.ID
	return nil
}

func (m *MemoryAdapter) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok {
		return false, nil
	}
	delete(m.schedules, id)
	delete(m.byKey, memoryKey(s.ProductID, s.ScheduledDate))
	return true, nil
}

func (m *MemoryAdapter) Query(ctx context.Context, filter domain.ScheduleFilter) ([]domain.Schedule, error) {
	m.mu.RLock()
	out := []domain.Schedule{}
	for _, s := range m.schedules {
		if filter.Matches(s) {
			out = append(out, s.Clone())
		}
	}
	m.mu.RUnlock()

	domain.SortSchedules(out)
	return filter.Paginate(out), nil
}

// MemoryCatalog is a process-local product catalog.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

var _ port.ProductCatalog = (*MemoryCatalog)(nil)

func NewMemoryCatalog(products ...domain.Product) *MemoryCatalog {
	c := &MemoryCatalog{products: make(map[string]domain.Product)}
	for _, p := range products {
		c.PutProduct(p)
	}
	return c
}

// PutProduct adds or replaces a product.
func (c *MemoryCatalog) PutProduct(p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = copyProduct(p)
}

func (c *MemoryCatalog) GetProductWithParts(ctx context.Context, productID string) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[productID]
	if !ok {
		return nil, nil
	}
	out := copyProduct(p)
	return &out, nil
}

func copyProduct(p domain.Product) domain.Product {
	parts := make([]domain.Part, len(p.Parts))
	copy(parts, p.Parts)
	p.Parts = parts
	return p
}

// MemoryIdempotency is a process-local idempotency set without expiry.
type MemoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

var _ port.IdempotencyStore = (*MemoryIdempotency)(nil)

func NewMemoryIdempotency() *MemoryIdempotency {
	return &MemoryIdempotency{keys: make(map[string]struct{})}
}

func (m *MemoryIdempotency) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = struct{}{}
	return true, nil
}

func (m *MemoryIdempotency) ClearIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}
