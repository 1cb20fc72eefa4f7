package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetMemberRank возвращает текущий пояс участника.
func (s *Storage) GetMemberRank(ctx context.Context, memberID string) (string, error) {
	const op = "storage.GetMemberRank"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var rank string
	err := s.DB.QueryRowContext(ctx,
		`SELECT belt_rank FROM members WHERE id = $1`, memberID).Scan(&rank)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", op, ErrMemberNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return rank, nil
}

// GetAttendanceCount возвращает накопленный счётчик посещений участника.
func (s *Storage) GetAttendanceCount(ctx context.Context, memberID string) (int, error) {
	const op = "storage.GetAttendanceCount"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT attendance_count FROM members WHERE id = $1`, memberID).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, ErrMemberNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
