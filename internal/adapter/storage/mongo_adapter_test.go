package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/production-schedule/internal/core/domain"
	"github.com/rl1809/production-schedule/internal/port"
)

func getMongoAdapter(t *testing.T) *MongoAdapter {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	adapter, err := NewMongoAdapter(ctx, uri, "production_test")
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}
	if err := adapter.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}
	t.Cleanup(func() { adapter.Close(context.Background()) })
	return adapter
}

func TestMongoSave_RoundTripAndConflicts(t *testing.T) {
	adapter := getMongoAdapter(t)
	ctx := context.Background()
	day := time.Date(2031, 3, 1, 0, 0, 0, 0, time.UTC)

	s := newTestSchedule(uuid.NewString(), "Bike", day)
	defer adapter.Delete(ctx, s.ID)

	if err := adapter.Save(ctx, s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := adapter.FindByProductAndDate(ctx, s.ProductID, day)
	if err != nil {
		t.Fatalf("FindByProductAndDate failed: %v", err)
	}
	if got == nil || got.ID != s.ID || len(got.Parts) != 2 || got.Version != 1 {
		t.Fatalf("unexpected schedule: %+v", got)
	}

	dup := newTestSchedule(s.ProductID, "Bike", day)
	if err := adapter.Save(ctx, dup); !errors.Is(err, port.ErrDuplicateScheduleKey) {
		t.Errorf("expected ErrDuplicateScheduleKey, got: %v", err)
	}

	stale := got.Clone()
	got.Quantity = 5
	if err := adapter.Save(ctx, got); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	stale.Quantity = 9
	if err := adapter.Save(ctx, &stale); !errors.Is(err, port.ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict, got: %v", err)
	}

	completed := domain.ScheduleStatusCompleted
	none, err := adapter.Query(ctx, domain.ScheduleFilter{ExactDate: &day, Status: &completed})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	for _, sc := range none {
		if sc.ID == s.ID {
			t.Error("planned schedule matched completed filter")
		}
	}
}
