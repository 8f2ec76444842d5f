package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/production-schedule/internal/core/domain"
	"github.com/rl1809/production-schedule/internal/port"
)

const mysqlDuplicateEntry = 1062

//go:embed schema.sql
var schemaSQL string

type MySQLAdapter struct {
	db *sql.DB
}

var _ port.ScheduleRepository = (*MySQLAdapter)(nil)

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Migrate creates the schedule and catalog tables when missing.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

const scheduleColumns = `id, product_id, product_name, scheduled_date, quantity, status, version, created_at, updated_at`

func (m *MySQLAdapter) FindByProductAndDate(ctx context.Context, productID string, date time.Time) (*domain.Schedule, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT `+scheduleColumns+`
		FROM production_schedules WHERE product_id = ? AND scheduled_date = ?`,
		productID, domain.Day(date).Format(domain.DateLayout),
	)
	return m.loadOne(ctx, row)
}

func (m *MySQLAdapter) FindByID(ctx context.Context, id string) (*domain.Schedule, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT `+scheduleColumns+`
		FROM production_schedules WHERE id = ?`, id,
	)
	return m.loadOne(ctx, row)
}

func (m *MySQLAdapter) loadOne(ctx context.Context, row *sql.Row) (*domain.Schedule, error) {
	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query schedule: %w", err)
	}

	parts, err := m.loadParts(ctx, []string{s.ID})
	if err != nil {
		return nil, err
	}
	s.Parts = parts[s.ID]
	return &s, nil
}

func (m *MySQLAdapter) Save(ctx context.Context, s *domain.Schedule) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	version := s.Version + 1
	if s.Version == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO production_schedules (`+scheduleColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.ProductID, s.ProductName, domain.Day(s.ScheduledDate).Format(domain.DateLayout),
			s.Quantity, s.Status, version, s.CreatedAt, nullTime(s.UpdatedAt),
		)
		if isDuplicateEntry(err) {
			return port.ErrDuplicateScheduleKey
		}
		if err != nil {
			return fmt.Errorf("insert schedule: %w", err)
		}
	} else {
		result, err := tx.ExecContext(ctx, `
			UPDATE production_schedules
			SET product_name = ?, quantity = ?, status = ?, version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?`,
			s.ProductName, s.Quantity, s.Status, nullTime(s.UpdatedAt), s.ID, s.Version,
		)
		if err != nil {
			return fmt.Errorf("update schedule: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return port.ErrVersionConflict
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM production_schedule_parts WHERE schedule_id = ?`, s.ID); err != nil {
		return fmt.Errorf("delete parts: %w", err)
	}
	if len(s.Parts) > 0 {
		placeholders := make([]string, 0, len(s.Parts))
		args := make([]any, 0, len(s.Parts)*6)
		for i, p := range s.Parts {
			placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?)")
			args = append(args, p.ID, s.ID, i, p.Name, nullString(p.Measurements), p.Quantity)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO production_schedule_parts (id, schedule_id, position, name, measurements, quantity)
			VALUES `+strings.Join(placeholders, ", "), args...)
		if err != nil {
			return fmt.Errorf("insert parts: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.Version = version
	return nil
}

func (m *MySQLAdapter) Delete(ctx context.Context, id string) (bool, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM production_schedule_parts WHERE schedule_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete parts: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM production_schedules WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete schedule: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func (m *MySQLAdapter) Query(ctx context.Context, filter domain.ScheduleFilter) ([]domain.Schedule, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ExactDate != nil {
		conds = append(conds, "scheduled_date = ?")
		args = append(args, filter.ExactDate.Format(domain.DateLayout))
	}
	if filter.DateFrom != nil {
		conds = append(conds, "scheduled_date >= ?")
		args = append(args, filter.DateFrom.Format(domain.DateLayout))
	}
	if filter.DateTo != nil {
		conds = append(conds, "scheduled_date <= ?")
		args = append(args, filter.DateTo.Format(domain.DateLayout))
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *filter.Status)
	}

	query := `SELECT ` + scheduleColumns + ` FROM production_schedules`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY scheduled_date, product_name, id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		// MySQL has no OFFSET without LIMIT
		query += " LIMIT 18446744073709551615 OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	schedules := []domain.Schedule{}
	ids := []string{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	if len(ids) == 0 {
		return schedules, nil
	}

	parts, err := m.loadParts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range schedules {
		schedules[i].Parts = parts[schedules[i].ID]
	}
	return schedules, nil
}

func (m *MySQLAdapter) loadParts(ctx context.Context, scheduleIDs []string) (map[string][]domain.ScheduledPart, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(scheduleIDs)), ", ")
	args := make([]any, len(scheduleIDs))
	for i, id := range scheduleIDs {
		args[i] = id
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, schedule_id, name, measurements, quantity
		FROM production_schedule_parts
		WHERE schedule_id IN (`+placeholders+`)
		ORDER BY schedule_id, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("query parts: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.ScheduledPart, len(scheduleIDs))
	for _, id := range scheduleIDs {
		out[id] = []domain.ScheduledPart{}
	}
	for rows.Next() {
		var (
			p            domain.ScheduledPart
			measurements sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.ScheduleID, &p.Name, &measurements, &p.Quantity); err != nil {
			return nil, fmt.Errorf("scan part: %w", err)
		}
		if measurements.Valid {
			p.Measurements = &measurements.String
		}
		out[p.ScheduleID] = append(out[p.ScheduleID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parts: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (domain.Schedule, error) {
	var (
		s       domain.Schedule
		status  string
		updated sql.NullTime
	)
	err := row.Scan(&s.ID, &s.ProductID, &s.ProductName, &s.ScheduledDate, &s.Quantity,
		&status, &s.Version, &s.CreatedAt, &updated)
	if err != nil {
		return domain.Schedule{}, err
	}
	s.Status = domain.ScheduleStatus(status)
	s.ScheduledDate = domain.Day(s.ScheduledDate)
	if updated.Valid {
		s.UpdatedAt = &updated.Time
	}
	return s, nil
}

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
