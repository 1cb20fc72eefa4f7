package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
)

// ListActiveRecurringTemplates возвращает шаблоны с включённой
// рекуррентной генерацией.
func (s *Storage) ListActiveRecurringTemplates(ctx context.Context) ([]models.ClassTemplate, error) {
	const op = "storage.ListActiveRecurringTemplates"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, level, duration_minutes, max_capacity, course_id, instructor_id,
		        recurrence_active, rec_mon, rec_tue, rec_wed, rec_thu, rec_fri, rec_sat, rec_sun,
		        recurrence_time, recurrence_start, recurrence_end
		 FROM class_templates
		 WHERE recurrence_active
		 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var templates []models.ClassTemplate
	for rows.Next() {
		var t models.ClassTemplate
		err := rows.Scan(&t.ID, &t.Name, &t.Level, &t.DurationMinutes, &t.MaxCapacity,
			&t.CourseID, &t.InstructorID, &t.RecurrenceActive,
			&t.RecMon, &t.RecTue, &t.RecWed, &t.RecThu, &t.RecFri, &t.RecSat, &t.RecSun,
			&t.RecurrenceTime, &t.RecurrenceStart, &t.RecurrenceEnd)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return templates, nil
}

// ListCourseMembers возвращает участников курса в детерминированном порядке.
func (s *Storage) ListCourseMembers(ctx context.Context, courseID int64) ([]string, error) {
	const op = "storage.ListCourseMembers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT member_id FROM course_members WHERE course_id = $1 ORDER BY member_id`,
		courseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return members, nil
}

// GenerateSessions вставляет сгенерированные сессии одного шаблона
// и сразу записывает участников привязанного курса в их ростеры.
// Транзакция держит advisory-блокировку шаблона, поэтому конкурентные
// генераторы одного шаблона выполняются по очереди. Повторный запуск
// идемпотентен: уже существующие пары (template, date) пропускаются
// за счёт частичного уникального индекса по сгенерированным сессиям.
// Возвращает число созданных и число пропущенных сессий.
func (s *Storage) GenerateSessions(ctx context.Context, templateID int64, sessions []models.Session, members []string) (created, skipped int, err error) {
	const op = "storage.GenerateSessions"
	select {
	case <-ctx.Done():
		return 0, 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock($1)`, templateID); err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}

	for _, sess := range sessions {
		var sessionID int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO sessions (template_id, course_id, instructor_id, start_at, end_at,
			                       session_date, capacity, state, from_recurring)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true)
			 ON CONFLICT (template_id, session_date) WHERE from_recurring DO NOTHING
			 RETURNING id`,
			sess.TemplateID, sess.CourseID, sess.InstructorID, sess.StartAt, sess.EndAt,
			sess.SessionDate, sess.Capacity, sess.State).Scan(&sessionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				skipped++
				continue
			}
			return 0, 0, fmt.Errorf("%s: %w", op, err)
		}
		created++

		booked := 0
		for _, memberID := range members {
			entryState := models.RosterBooked
			if booked >= sess.Capacity {
				entryState = models.RosterWaitlisted
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO roster_entries (session_id, member_id, state, source)
				 VALUES ($1, $2, $3, 'staff')`,
				sessionID, memberID, entryState); err != nil {
				return 0, 0, fmt.Errorf("%s: %w", op, err)
			}
			if entryState == models.RosterBooked {
				booked++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	return created, skipped, nil
}
