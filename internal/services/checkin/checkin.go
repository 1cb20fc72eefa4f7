// Package checkin реализует отметку посещения — единую точку входа
// для киоска, портала участника и стойки персонала.
package checkin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/dojo-scheduler/internal/metrics"
	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
)

// Repository определяет методы хранилища для отметки посещения.
type Repository interface {
	// CheckIn идемпотентно фиксирует явку участника на сессию.
	CheckIn(ctx context.Context, sessionID int64, memberID, source string, allowWalkIn bool, now time.Time) (*models.CheckInResult, error)
	// RemoveAttendance удаляет факт посещения и откатывает счётчик.
	RemoveAttendance(ctx context.Context, factID int64) error
}

// Service реализует отметку посещения.
type Service struct {
	repo        Repository
	allowWalkIn bool
	log         *slog.Logger
	now         func() time.Time
}

// New создает новый экземпляр Service. allowWalkIn разрешает отмечать
// участников без брони, синтезируя запись ростера в обход вместимости.
func New(repo Repository, allowWalkIn bool, log *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		allowWalkIn: allowWalkIn,
		log:         log,
		now:         time.Now,
	}
}

// CheckIn отмечает посещение участником сессии. Повторный вызов для той
// же пары возвращает уже записанный факт без побочных эффектов.
func (s *Service) CheckIn(ctx context.Context, sessionID int64, memberID, source string) (*models.CheckInResult, error) {
	const op = "services.checkin.CheckIn"

	res, err := s.repo.CheckIn(ctx, sessionID, memberID, source, s.allowWalkIn, s.now())
	if err != nil {
		metrics.CheckIns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch {
	case res.AlreadyCheckedIn:
		metrics.CheckIns.WithLabelValues("already_checked_in").Inc()
	case res.WalkIn:
		metrics.CheckIns.WithLabelValues("walk_in").Inc()
		s.log.Info("walk-in checked in",
			sl.Member(memberID), sl.Session(sessionID), slog.String("source", source))
	default:
		metrics.CheckIns.WithLabelValues("checked_in").Inc()
		s.log.Info("member checked in",
			sl.Member(memberID), sl.Session(sessionID), slog.String("source", source))
	}
	return res, nil
}

// RemoveAttendance удаляет ошибочный факт посещения — операция персонала.
func (s *Service) RemoveAttendance(ctx context.Context, factID int64) error {
	const op = "services.checkin.RemoveAttendance"

	if err := s.repo.RemoveAttendance(ctx, factID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("attendance fact removed", slog.Int64("fact_id", factID))
	return nil
}
