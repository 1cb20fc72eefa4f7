// Package admission реализует проверку допуска участника на занятие.
// Проверки выполняются в фиксированном порядке, первая отказавшая
// определяет код причины. Проверка только читает данные: авторитетное
// решение по лимитам принимается повторно в транзакции бронирования.
package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
	"github.com/magabrotheeeer/dojo-scheduler/internal/storage/repository"
)

// SessionReader определяет чтение сессий из хранилища.
type SessionReader interface {
	// ReadSession возвращает сессию по ID.
	ReadSession(ctx context.Context, id int64) (*models.Session, error)
}

// CourseReader определяет чтение курсов и членства в них.
type CourseReader interface {
	// GetCourse возвращает курс по ID.
	GetCourse(ctx context.Context, courseID int64) (*models.Course, error)
	// IsCourseMember проверяет членство участника в курсе.
	IsCourseMember(ctx context.Context, courseID int64, memberID string) (bool, error)
}

// EntitlementProvider определяет чтение прав доступа участника.
type EntitlementProvider interface {
	// ActiveEntitlements возвращает активные подписки участника.
	ActiveEntitlements(ctx context.Context, memberID string) ([]models.Entitlement, error)
	// MemberRank возвращает текущий пояс участника.
	MemberRank(ctx context.Context, memberID string) (string, error)
	// CountRegistered считает подтверждённые брони участника в интервале.
	CountRegistered(ctx context.Context, memberID string, from, to time.Time, courseIDs []int64) (int, error)
}

// Evaluation — результат проверки допуска вместе с данными,
// нужными для последующего бронирования.
type Evaluation struct {
	Decision models.Decision
	// Session заполнена, если сессия найдена, независимо от решения.
	Session *models.Session
	// Eligible — подписки, чьи тарифы покрывают курс сессии.
	// Именно они перепроверяются в транзакции бронирования.
	Eligible []models.Entitlement
}

// Service реализует проверку допуска.
type Service struct {
	sessions SessionReader
	courses  CourseReader
	ents     EntitlementProvider
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(sessions SessionReader, courses CourseReader, ents EntitlementProvider, log *slog.Logger) *Service {
	return &Service{
		sessions: sessions,
		courses:  courses,
		ents:     ents,
		log:      log,
	}
}

// CanAdmit проверяет допуск участника на сессию.
// Порядок проверок фиксирован: доступность сессии, требования курса
// (минимальный пояс, явный ростер), наличие подписки, покрытие курса
// тарифом, недельный и биллинговый лимиты.
func (s *Service) CanAdmit(ctx context.Context, sessionID int64, memberID string) (*Evaluation, error) {
	const op = "services.admission.CanAdmit"

	session, err := s.sessions.ReadSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return &Evaluation{Decision: models.Deny(models.ReasonSessionNotFound)}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	eval := &Evaluation{Session: session}
	if session.State == models.SessionCancelled {
		eval.Decision = models.Deny(models.ReasonSessionCancelled)
		return eval, nil
	}

	if session.CourseID != nil {
		course, err := s.courses.GetCourse(ctx, *session.CourseID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if course.MinRank != "" {
			rank, err := s.ents.MemberRank(ctx, memberID)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			if !models.RankAtLeast(rank, course.MinRank) {
				eval.Decision = models.Deny(models.ReasonRankTooLow)
				return eval, nil
			}
		}
		if !course.OpenEnrollment {
			onRoster, err := s.courses.IsCourseMember(ctx, *session.CourseID, memberID)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			if !onRoster {
				eval.Decision = models.Deny(models.ReasonNotOnCourseRoster)
				return eval, nil
			}
		}
	}

	ents, err := s.ents.ActiveEntitlements(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(ents) == 0 {
		eval.Decision = models.Deny(models.ReasonNoActiveSubscription)
		return eval, nil
	}

	for _, ent := range ents {
		if ent.AllowsCourse(session.CourseID) {
			eval.Eligible = append(eval.Eligible, ent)
		}
	}
	if len(eval.Eligible) == 0 {
		eval.Decision = models.Deny(models.ReasonCourseNotAllowed)
		return eval, nil
	}

	decision, err := models.EvaluateCaps(eval.Eligible, session.StartAt,
		func(from, to time.Time, courseIDs []int64) (int, error) {
			return s.ents.CountRegistered(ctx, memberID, from, to, courseIDs)
		})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	eval.Decision = decision
	return eval, nil
}
