package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/rl1809/production-schedule/internal/core/domain"
)

var errInvalidQuery = errors.New("invalid query parameter")

// ScheduleMessage is the wire shape of a schedule on both HTTP and gRPC.
type ScheduleMessage struct {
	ID            string                 `json:"id"`
	ProductID     string                 `json:"product_id"`
	ProductName   string                 `json:"product_name"`
	ScheduledDate string                 `json:"scheduled_date"`
	Quantity      int                    `json:"quantity"`
	Status        string                 `json:"status"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     *time.Time             `json:"updated_at"`
	Parts         []ScheduledPartMessage `json:"parts"`
}

type ScheduledPartMessage struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Measurements *string `json:"measurements"`
	Quantity     int     `json:"quantity"`
}

func toScheduleMessage(s domain.Schedule) ScheduleMessage {
	msg := ScheduleMessage{
		ID:            s.ID,
		ProductID:     s.ProductID,
		ProductName:   s.ProductName,
		ScheduledDate: s.ScheduledDate.Format(domain.DateLayout),
		Quantity:      s.Quantity,
		Status:        string(s.Status),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		Parts:         make([]ScheduledPartMessage, 0, len(s.Parts)),
	}
	for _, p := range s.Parts {
		msg.Parts = append(msg.Parts, ScheduledPartMessage{
			ID:           p.ID,
			Name:         p.Name,
			Measurements: p.Measurements,
			Quantity:     p.Quantity,
		})
	}
	return msg
}

func toScheduleMessages(schedules []domain.Schedule) []ScheduleMessage {
	out := make([]ScheduleMessage, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, toScheduleMessage(s))
	}
	return out
}

// parseScheduledDate defaults to today (UTC) when raw is empty.
func parseScheduledDate(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return domain.Day(now.UTC()), nil
	}
	return domain.ParseDay(raw)
}

type filterParams struct {
	ScheduledDate string
	StartDate     string
	EndDate       string
	Status        string
	Limit         string
	Offset        string
}

func (p filterParams) toFilter() (domain.ScheduleFilter, error) {
	var f domain.ScheduleFilter

	date := func(raw string) (*time.Time, error) {
		if raw == "" {
			return nil, nil
		}
		t, err := domain.ParseDay(raw)
		if err != nil {
			return nil, errors.Join(errInvalidQuery, err)
		}
		return &t, nil
	}
	count := func(raw string) (int, error) {
		if raw == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return 0, errInvalidQuery
		}
		return n, nil
	}

	var err error
	if f.ExactDate, err = date(p.ScheduledDate); err != nil {
		return f, err
	}
	if f.DateFrom, err = date(p.StartDate); err != nil {
		return f, err
	}
	if f.DateTo, err = date(p.EndDate); err != nil {
		return f, err
	}
	if p.Status != "" {
		status, err := domain.ParseScheduleStatus(p.Status)
		if err != nil {
			return f, errors.Join(errInvalidQuery, err)
		}
		f.Status = &status
	}
	if f.Limit, err = count(p.Limit); err != nil {
		return f, err
	}
	if f.Offset, err = count(p.Offset); err != nil {
		return f, err
	}
	return f, nil
}
