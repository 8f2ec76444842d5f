package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// MaxQuantity bounds schedule and part quantities to what the INT columns hold.
const MaxQuantity = math.MaxInt32

type ScheduleStatus string

const (
	ScheduleStatusPlanned    ScheduleStatus = "planned"
	ScheduleStatusInProgress ScheduleStatus = "in_progress"
	ScheduleStatusCompleted  ScheduleStatus = "completed"
	ScheduleStatusCancelled  ScheduleStatus = "cancelled"
)

// AllScheduleStatuses lists statuses in lifecycle order.
var AllScheduleStatuses = []ScheduleStatus{
	ScheduleStatusPlanned,
	ScheduleStatusInProgress,
	ScheduleStatusCompleted,
	ScheduleStatusCancelled,
}

func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleStatusPlanned, ScheduleStatusInProgress, ScheduleStatusCompleted, ScheduleStatusCancelled:
		return true
	}
	return false
}

// ParseScheduleStatus accepts the canonical value as well as the CamelCase
// names used by older clients ("InProgress").
func ParseScheduleStatus(raw string) (ScheduleStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "inprogress" {
		normalized = string(ScheduleStatusInProgress)
	}
	status := ScheduleStatus(normalized)
	if !status.Valid() {
		return "", fmt.Errorf("unknown schedule status %q", raw)
	}
	return status, nil
}

type Schedule struct {
	ID            string
	ProductID     string
	ProductName   string // snapshot taken at the last reconciliation
	ScheduledDate time.Time
	Quantity      int
	Status        ScheduleStatus
	Version       int // optimistic locking, 0 until first persisted
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	Parts         []ScheduledPart
}

type ScheduledPart struct {
	ID           string
	ScheduleID   string
	Name         string
	Measurements *string
	Quantity     int
}

// Clone returns a deep copy so stores and callers never share part slices.
func (s Schedule) Clone() Schedule {
	out := s
	if s.UpdatedAt != nil {
		updated := *s.UpdatedAt
		out.UpdatedAt = &updated
	}
	out.Parts = make([]ScheduledPart, len(s.Parts))
	for i, p := range s.Parts {
		if p.Measurements != nil {
			m := *p.Measurements
			p.Measurements = &m
		}
		out.Parts[i] = p
	}
	return out
}

// Day truncates t to its calendar day in UTC. The calendar fields of t are
// kept as-is, so 2024-03-10T23:30-05:00 stays on the 10th.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDay(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return t, nil
}

// ScheduleFilter narrows a schedule listing. Nil fields do not filter.
type ScheduleFilter struct {
	ExactDate *time.Time
	DateFrom  *time.Time
	DateTo    *time.Time
	Status    *ScheduleStatus
	Limit     int // 0 means no limit
	Offset    int
}

// Normalize truncates every date bound to its calendar day.
func (f ScheduleFilter) Normalize() ScheduleFilter {
	day := func(t *time.Time) *time.Time {
		if t == nil {
			return nil
		}
		d := Day(*t)
		return &d
	}
	f.ExactDate = day(f.ExactDate)
	f.DateFrom = day(f.DateFrom)
	f.DateTo = day(f.DateTo)
	return f
}

// Matches reports whether s satisfies every set field of a normalized filter.
// Pagination fields are ignored.
func (f ScheduleFilter) Matches(s Schedule) bool {
	date := Day(s.ScheduledDate)
	if f.ExactDate != nil && !date.Equal(*f.ExactDate) {
		return false
	}
	if f.DateFrom != nil && date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && date.After(*f.DateTo) {
		return false
	}
	if f.Status != nil && s.Status != *f.Status {
		return false
	}
	return true
}

// SortSchedules orders by scheduled date, then product name (byte order).
func SortSchedules(schedules []Schedule) {
	sort.SliceStable(schedules, func(i, j int) bool {
		di, dj := schedules[i].ScheduledDate, schedules[j].ScheduledDate
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return schedules[i].ProductName < schedules[j].ProductName
	})
}

// Paginate applies Offset and Limit to an already ordered slice.
func (f ScheduleFilter) Paginate(schedules []Schedule) []Schedule {
	if f.Offset > 0 {
		if f.Offset >= len(schedules) {
			return []Schedule{}
		}
		schedules = schedules[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(schedules) {
		schedules = schedules[:f.Limit]
	}
	return schedules
}
