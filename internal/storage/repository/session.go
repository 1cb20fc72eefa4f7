package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
)

// CreateSession вставляет новую сессию, созданную вручную, и возвращает её ID.
func (s *Storage) CreateSession(ctx context.Context, session models.Session) (int64, error) {
	const op = "storage.CreateSession"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO sessions (template_id, course_id, instructor_id, start_at, end_at,
			      session_date, capacity, state, from_recurring)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING id`
	var newID int64
	err := s.DB.QueryRowContext(ctx, query,
		session.TemplateID, session.CourseID, session.InstructorID, session.StartAt, session.EndAt,
		session.SessionDate, session.Capacity, session.State, session.FromRecurring).Scan(&newID)
	if err != nil {
		if isForeignKeyViolation(err, "sessions_course_id_fkey") {
			return 0, fmt.Errorf("%s: %w", op, ErrCourseNotFound)
		}
		if isForeignKeyViolation(err, "") {
			return 0, fmt.Errorf("%s: %w", op, ErrTemplateNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ReadSession возвращает сессию по её ID.
func (s *Storage) ReadSession(ctx context.Context, id int64) (*models.Session, error) {
	const op = "storage.ReadSession"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, template_id, course_id, instructor_id, start_at, end_at,
			      session_date, capacity, state, from_recurring
			  FROM sessions WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	var result models.Session
	if err := row.Scan(&result.ID, &result.TemplateID, &result.CourseID, &result.InstructorID,
		&result.StartAt, &result.EndAt, &result.SessionDate, &result.Capacity,
		&result.State, &result.FromRecurring); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// TransitionSession атомарно переводит сессию из состояния from в состояние to.
// Возвращает ErrInvalidTransition, если сессия уже не в ожидаемом состоянии.
func (s *Storage) TransitionSession(ctx context.Context, id int64, from, to string) error {
	const op = "storage.TransitionSession"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE sessions SET state = $1 WHERE id = $2 AND state = $3`
	result, err := s.DB.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		var exists bool
		if err := s.DB.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}
		return fmt.Errorf("%s: %w", op, ErrInvalidTransition)
	}
	return nil
}

// CancelSession переводит сессию в cancelled из любого нетерминального
// состояния одним атомарным обновлением.
func (s *Storage) CancelSession(ctx context.Context, id int64) error {
	const op = "storage.CancelSession"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE sessions SET state = 'cancelled'
			  WHERE id = $1 AND state NOT IN ('done', 'cancelled')`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		var exists bool
		if err := s.DB.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}
		return fmt.Errorf("%s: %w", op, ErrInvalidTransition)
	}
	return nil
}

// ListSessionsForDate возвращает занятия на календарную дату со счётчиками
// ростера — для экрана киоска и панели персонала. Отменённые не включаются.
func (s *Storage) ListSessionsForDate(ctx context.Context, date time.Time) ([]*models.SessionSummary, error) {
	const op = "storage.ListSessionsForDate"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT s.id, t.name, s.start_at, s.state, s.capacity,
			      COUNT(r.id) FILTER (WHERE r.state = 'booked') AS booked_count,
			      COUNT(r.id) FILTER (WHERE r.state = 'attended') AS attended_count
			  FROM sessions s
			  JOIN class_templates t ON t.id = s.template_id
			  LEFT JOIN roster_entries r ON r.session_id = s.id
			  WHERE s.session_date = $1
			    AND s.state <> 'cancelled'
			  GROUP BY s.id, t.name
			  ORDER BY s.start_at`
	rows, err := s.DB.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SessionSummary
	for rows.Next() {
		var item models.SessionSummary
		if err := rows.Scan(&item.ID, &item.Name, &item.StartAt, &item.State,
			&item.Capacity, &item.BookedCount, &item.AttendedCount); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		item.SpotsLeft = item.Capacity - item.BookedCount
		if item.SpotsLeft < 0 {
			item.SpotsLeft = 0
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountBookedEntries возвращает число подтверждённых броней сессии.
func (s *Storage) CountBookedEntries(ctx context.Context, sessionID int64) (int, error) {
	const op = "storage.CountBookedEntries"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM roster_entries WHERE session_id = $1 AND state = 'booked'`,
		sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
