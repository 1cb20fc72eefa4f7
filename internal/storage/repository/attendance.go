package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
)

// CheckIn фиксирует явку участника на сессию. Операция идемпотентна:
// повторный чекин той же пары (session, member) возвращает уже
// существующий факт посещения и не производит побочных эффектов.
// Гарантию даёт уникальное ограничение на attendance_facts — вставка
// факта выполняется первой и служит воротами для всех
// изменений (перевод записи ростера, счётчик посещений, запуск сессии).
func (s *Storage) CheckIn(ctx context.Context, sessionID int64, memberID, source string, allowWalkIn bool, now time.Time) (*models.CheckInResult, error) {
	const op = "storage.CheckIn"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var sessionState string
	err = tx.QueryRowContext(ctx,
		`SELECT state FROM sessions WHERE id = $1 FOR UPDATE`,
		sessionID).Scan(&sessionState)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sessionState == models.SessionCancelled {
		return nil, fmt.Errorf("%s: %w", op, ErrNotBookable)
	}

	var entryID *int64
	var entryState string
	err = tx.QueryRowContext(ctx,
		`SELECT id, state FROM roster_entries
		 WHERE session_id = $1 AND member_id = $2 AND state <> 'cancelled'
		 FOR UPDATE`,
		sessionID, memberID).Scan(&entryID, &entryState)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	fact := models.AttendanceFact{
		SessionID:     sessionID,
		MemberID:      memberID,
		RosterEntryID: entryID,
		CheckinAt:     now,
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO attendance_facts (session_id, member_id, roster_entry_id, checkin_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT ON CONSTRAINT attendance_unique_session_member DO NOTHING
		 RETURNING id`,
		sessionID, memberID, entryID, now).Scan(&fact.ID)
	if errors.Is(err, sql.ErrNoRows) {
		// Факт уже записан ранее — возвращаем его без изменений.
		existing := models.AttendanceFact{SessionID: sessionID, MemberID: memberID}
		err = tx.QueryRowContext(ctx,
			`SELECT id, roster_entry_id, checkin_at FROM attendance_facts
			 WHERE session_id = $1 AND member_id = $2`,
			sessionID, memberID).Scan(&existing.ID, &existing.RosterEntryID, &existing.CheckinAt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &models.CheckInResult{Fact: &existing, AlreadyCheckedIn: true}, nil
	}
	if err != nil {
		if isForeignKeyViolation(err, "") {
			return nil, fmt.Errorf("%s: %w", op, ErrMemberNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	walkIn := false
	switch {
	case entryID == nil:
		if !allowWalkIn {
			return nil, fmt.Errorf("%s: %w", op, ErrNotBooked)
		}
		walkIn = true
		var newEntryID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO roster_entries (session_id, member_id, state, source, booked_at, checkin_at)
			 VALUES ($1, $2, 'attended', $3, $4, $4)
			 RETURNING id`,
			sessionID, memberID, source, now).Scan(&newEntryID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		entryID = &newEntryID
		fact.RosterEntryID = entryID
		if _, err := tx.ExecContext(ctx,
			`UPDATE attendance_facts SET roster_entry_id = $2 WHERE id = $1`,
			fact.ID, newEntryID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	case entryState == models.RosterBooked || entryState == models.RosterWaitlisted:
		if _, err := tx.ExecContext(ctx,
			`UPDATE roster_entries SET state = 'attended', checkin_at = $2 WHERE id = $1`,
			*entryID, now); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	default:
		// no_show или attended без факта: факт фиксируется,
		// состояние записи не трогаем.
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE members SET attendance_count = attendance_count + 1 WHERE id = $1`,
		memberID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	} else if n == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrMemberNotFound)
	}

	if sessionState == models.SessionOpen {
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET state = 'in_progress' WHERE id = $1`,
			sessionID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.CheckInResult{Fact: &fact, WalkIn: walkIn}, nil
}

// RemoveAttendance удаляет факт посещения и откатывает счётчик
// посещений участника — коррекция ошибочного чекина персоналом.
// Запись ростера не трогается.
func (s *Storage) RemoveAttendance(ctx context.Context, factID int64) error {
	const op = "storage.RemoveAttendance"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var memberID string
	err = tx.QueryRowContext(ctx,
		`DELETE FROM attendance_facts WHERE id = $1 RETURNING member_id`,
		factID).Scan(&memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, ErrFactNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE members SET attendance_count = GREATEST(attendance_count - 1, 0) WHERE id = $1`,
		memberID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ReadAttendanceFact возвращает факт посещения по паре (session, member).
func (s *Storage) ReadAttendanceFact(ctx context.Context, sessionID int64, memberID string) (*models.AttendanceFact, error) {
	const op = "storage.ReadAttendanceFact"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	fact := models.AttendanceFact{SessionID: sessionID, MemberID: memberID}
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, roster_entry_id, checkin_at FROM attendance_facts
		 WHERE session_id = $1 AND member_id = $2`,
		sessionID, memberID).Scan(&fact.ID, &fact.RosterEntryID, &fact.CheckinAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrFactNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &fact, nil
}
