package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
)

// CapDeniedError — отказ по лимитам подписки, зафиксированный при
// авторитетной перепроверке внутри транзакции бронирования.
type CapDeniedError struct {
	Reason string
}

func (e *CapDeniedError) Error() string {
	return "subscription cap exceeded: " + e.Reason
}

// Is позволяет распознавать отказ через errors.Is(err, ErrCapExceeded).
func (e *CapDeniedError) Is(target error) bool {
	return target == ErrCapExceeded
}

// rowQuerier объединяет *sql.DB и *sql.Tx для общих запросов подсчёта.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func countRegistered(ctx context.Context, q rowQuerier, memberID string, from, to time.Time, courseIDs []int64) (int, error) {
	query := `SELECT COUNT(*)
			  FROM roster_entries r
			  JOIN sessions s ON s.id = r.session_id
			  WHERE r.member_id = $1
			    AND r.state = 'booked'
			    AND s.start_at >= $2
			    AND s.start_at < $3
			    AND ($4::bigint[] IS NULL OR s.course_id = ANY($4))`
	var ids any
	if len(courseIDs) > 0 {
		ids = courseIDs
	}
	var count int
	if err := q.QueryRowContext(ctx, query, memberID, from, to, ids).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountRegistered считает подтверждённые брони участника в интервале
// [from, to) с ограничением по курсам. Используется предварительной
// проверкой допуска; внутри транзакции бронирования тот же подсчёт
// выполняется повторно.
func (s *Storage) CountRegistered(ctx context.Context, memberID string, from, to time.Time, courseIDs []int64) (int, error) {
	const op = "storage.CountRegistered"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	count, err := countRegistered(ctx, s.DB, memberID, from, to, courseIDs)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// Book создаёт запись в ростере для пары (session, member).
// Решение booked/waitlisted принимается внутри транзакции: строка сессии
// блокируется FOR UPDATE, так что подсчёт занятых мест и вставка атомарны
// относительно конкурентных бронирований той же сессии. Лимиты подписки
// из ents перепроверяются в той же транзакции под блокировкой строки
// участника, сериализующей его бронирования между разными сессиями
// (пустой список — пропуск перепроверки, допуск уже подтверждён
// вызывающей стороной иным способом).
func (s *Storage) Book(ctx context.Context, sessionID int64, memberID, source string, ents []models.Entitlement) (*models.BookResult, error) {
	const op = "storage.Book"
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

	var capacity int
	var state string
	var startAt time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT capacity, state, start_at FROM sessions WHERE id = $1 FOR UPDATE`,
		sessionID).Scan(&capacity, &state, &startAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if state == models.SessionCancelled {
		return nil, fmt.Errorf("%s: %w", op, ErrNotBookable)
	}

	if len(ents) > 0 {
		// Блокировка строки участника сериализует подсчёт лимитов:
		// без неё два конкурентных Book на разные сессии не видят
		// вставок друг друга и оба проходят недельный лимит. Порядок
		// блокировок сессия → участник общий со всеми путями записи.
		var lockedMember string
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM members WHERE id = $1 FOR UPDATE`,
			memberID).Scan(&lockedMember)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%s: %w", op, ErrMemberNotFound)
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		decision, err := models.EvaluateCaps(ents, startAt, func(from, to time.Time, courseIDs []int64) (int, error) {
			return countRegistered(ctx, tx, memberID, from, to, courseIDs)
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !decision.Allowed {
			return nil, fmt.Errorf("%s: %w", op, &CapDeniedError{Reason: decision.Reason})
		}
	}

	var booked int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM roster_entries WHERE session_id = $1 AND state = 'booked'`,
		sessionID).Scan(&booked)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entryState := models.RosterBooked
	if booked >= capacity {
		entryState = models.RosterWaitlisted
	}

	entry := models.RosterEntry{
		SessionID: sessionID,
		MemberID:  memberID,
		State:     entryState,
		Source:    source,
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO roster_entries (session_id, member_id, state, source)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, booked_at`,
		sessionID, memberID, entryState, source).Scan(&entry.ID, &entry.BookedAt)
	if err != nil {
		if isUniqueViolation(err, "idx_roster_unique_active") {
			return nil, fmt.Errorf("%s: %w", op, ErrAlreadyBooked)
		}
		if isForeignKeyViolation(err, "") {
			return nil, fmt.Errorf("%s: %w", op, ErrMemberNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.BookResult{
		Entry:      &entry,
		Waitlisted: entryState == models.RosterWaitlisted,
	}, nil
}

// Cancel переводит запись в состояние cancelled и в той же транзакции
// продвигает самую раннюю (FIFO по booked_at) запись листа ожидания,
// если после отмены осталось свободное место. Продвигается не более
// одной записи; отмена и продвижение атомарны для читателей.
func (s *Storage) Cancel(ctx context.Context, entryID int64) (*models.CancelResult, error) {
	const op = "storage.Cancel"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var sessionID int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT session_id FROM roster_entries WHERE id = $1`, entryID).Scan(&sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrEntryNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Блокировка строки сессии первой — общий порядок взятия блокировок
	// с Book и CheckIn, иначе возможна взаимная блокировка.
	var capacity int
	var sessionState string
	err = tx.QueryRowContext(ctx,
		`SELECT capacity, state FROM sessions WHERE id = $1 FOR UPDATE`,
		sessionID).Scan(&capacity, &sessionState)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entry := models.RosterEntry{ID: entryID, SessionID: sessionID}
	err = tx.QueryRowContext(ctx,
		`SELECT member_id, state, source, booked_at, checkin_at, checkout_at
		 FROM roster_entries WHERE id = $1 FOR UPDATE`,
		entryID).Scan(&entry.MemberID, &entry.State, &entry.Source,
		&entry.BookedAt, &entry.CheckinAt, &entry.CheckoutAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if models.IsTerminalRosterState(entry.State) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidTransition)
	}

	wasBooked := entry.State == models.RosterBooked
	if _, err := tx.ExecContext(ctx,
		`UPDATE roster_entries SET state = 'cancelled' WHERE id = $1`, entryID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	entry.State = models.RosterCancelled

	result := &models.CancelResult{Entry: &entry}

	// Продвижение имеет смысл только если освободилось место
	// и сессия ещё принимает участников.
	if wasBooked && !models.IsTerminalSessionState(sessionState) {
		var booked int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM roster_entries WHERE session_id = $1 AND state = 'booked'`,
			sessionID).Scan(&booked)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if booked < capacity {
			var promoted models.RosterEntry
			err = tx.QueryRowContext(ctx,
				`UPDATE roster_entries SET state = 'booked'
				 WHERE id = (
				     SELECT id FROM roster_entries
				     WHERE session_id = $1 AND state = 'waitlisted'
				     ORDER BY booked_at, id
				     LIMIT 1
				 )
				 RETURNING id, session_id, member_id, state, source, booked_at`,
				sessionID).Scan(&promoted.ID, &promoted.SessionID, &promoted.MemberID,
				&promoted.State, &promoted.Source, &promoted.BookedAt)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			if err == nil {
				result.Promoted = &promoted
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkNoShow отмечает неявку. Допустимо только из booked или waitlisted.
func (s *Storage) MarkNoShow(ctx context.Context, entryID int64) (*models.RosterEntry, error) {
	const op = "storage.MarkNoShow"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var entry models.RosterEntry
	err := s.DB.QueryRowContext(ctx,
		`UPDATE roster_entries SET state = 'no_show'
		 WHERE id = $1 AND state IN ('booked', 'waitlisted')
		 RETURNING id, session_id, member_id, state, source, booked_at`,
		entryID).Scan(&entry.ID, &entry.SessionID, &entry.MemberID,
		&entry.State, &entry.Source, &entry.BookedAt)
	if err == nil {
		return &entry, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var exists bool
	if err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM roster_entries WHERE id = $1)`, entryID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", op, ErrEntryNotFound)
	}
	return nil, fmt.Errorf("%s: %w", op, ErrInvalidTransition)
}

// CheckOut фиксирует время ухода. Допустимо только из attended.
func (s *Storage) CheckOut(ctx context.Context, entryID int64, now time.Time) (*models.RosterEntry, error) {
	const op = "storage.CheckOut"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var entry models.RosterEntry
	err := s.DB.QueryRowContext(ctx,
		`UPDATE roster_entries SET checkout_at = $2
		 WHERE id = $1 AND state = 'attended'
		 RETURNING id, session_id, member_id, state, source, booked_at, checkin_at, checkout_at`,
		entryID, now).Scan(&entry.ID, &entry.SessionID, &entry.MemberID,
		&entry.State, &entry.Source, &entry.BookedAt, &entry.CheckinAt, &entry.CheckoutAt)
	if err == nil {
		return &entry, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var exists bool
	if err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM roster_entries WHERE id = $1)`, entryID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", op, ErrEntryNotFound)
	}
	return nil, fmt.Errorf("%s: %w", op, ErrInvalidTransition)
}

// ReadEntry возвращает запись ростера по ID.
func (s *Storage) ReadEntry(ctx context.Context, entryID int64) (*models.RosterEntry, error) {
	const op = "storage.ReadEntry"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var entry models.RosterEntry
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, session_id, member_id, state, source, booked_at, checkin_at, checkout_at
		 FROM roster_entries WHERE id = $1`,
		entryID).Scan(&entry.ID, &entry.SessionID, &entry.MemberID, &entry.State,
		&entry.Source, &entry.BookedAt, &entry.CheckinAt, &entry.CheckoutAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrEntryNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &entry, nil
}

// ListFutureBookedEntries возвращает ID будущих подтверждённых броней
// участника на сессии курса — для зачистки при исключении из курса.
func (s *Storage) ListFutureBookedEntries(ctx context.Context, courseID int64, memberID string, after time.Time) ([]int64, error) {
	const op = "storage.ListFutureBookedEntries"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT r.id
		 FROM roster_entries r
		 JOIN sessions s ON s.id = r.session_id
		 WHERE s.course_id = $1 AND r.member_id = $2
		   AND r.state = 'booked' AND s.start_at >= $3
		 ORDER BY s.start_at`,
		courseID, memberID, after)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// SyncRoster добавляет в ростер сессии недостающих участников курса
// в состоянии booked (или waitlisted при нехватке мест). Существующие
// записи любого состояния не трогаются. Возвращает число добавленных.
func (s *Storage) SyncRoster(ctx context.Context, sessionID int64) (int, error) {
	const op = "storage.SyncRoster"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var courseID *int64
	var capacity int
	var state string
	err = tx.QueryRowContext(ctx,
		`SELECT course_id, capacity, state FROM sessions WHERE id = $1 FOR UPDATE`,
		sessionID).Scan(&courseID, &capacity, &state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if models.IsTerminalSessionState(state) {
		return 0, fmt.Errorf("%s: %w", op, ErrNotBookable)
	}
	if courseID == nil {
		return 0, nil
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT cm.member_id
		 FROM course_members cm
		 WHERE cm.course_id = $1
		   AND NOT EXISTS (
		       SELECT 1 FROM roster_entries r
		       WHERE r.session_id = $2 AND r.member_id = cm.member_id
		         AND r.state <> 'cancelled'
		   )
		 ORDER BY cm.member_id`,
		*courseID, sessionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	var missing []string
	for rows.Next() {
		var memberID string
		if err := rows.Scan(&memberID); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		missing = append(missing, memberID)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if err := rows.Close(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(missing) == 0 {
		return 0, tx.Commit()
	}

	var booked int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM roster_entries WHERE session_id = $1 AND state = 'booked'`,
		sessionID).Scan(&booked)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	added := 0
	for _, memberID := range missing {
		entryState := models.RosterBooked
		if booked >= capacity {
			entryState = models.RosterWaitlisted
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO roster_entries (session_id, member_id, state, source)
			 VALUES ($1, $2, $3, 'staff')`,
			sessionID, memberID, entryState); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		if entryState == models.RosterBooked {
			booked++
		}
		added++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return added, nil
}
