package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
)

// GetCourse возвращает курс по ID.
func (s *Storage) GetCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	const op = "storage.GetCourse"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var course models.Course
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, min_rank, open_enrollment FROM courses WHERE id = $1`,
		courseID).Scan(&course.ID, &course.Name, &course.MinRank, &course.OpenEnrollment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrCourseNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &course, nil
}

// IsCourseMember проверяет членство участника в курсе.
func (s *Storage) IsCourseMember(ctx context.Context, courseID int64, memberID string) (bool, error) {
	const op = "storage.IsCourseMember"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM course_members WHERE course_id = $1 AND member_id = $2
		 )`,
		courseID, memberID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// RemoveCourseMember исключает участника из курса. Зачистка его будущих
// броней выполняется сервисным слоем поверх ListFutureBookedEntries.
func (s *Storage) RemoveCourseMember(ctx context.Context, courseID int64, memberID string) error {
	const op = "storage.RemoveCourseMember"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM course_members WHERE course_id = $1 AND member_id = $2`,
		courseID, memberID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrEntryNotFound)
	}
	return nil
}
