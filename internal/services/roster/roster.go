// Package roster содержит бизнес-логику управления записями на занятия:
// бронирование с проверкой допуска, отмена с продвижением листа ожидания,
// отметка неявки и ухода, синхронизация ростера с участниками курса.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/dojo-scheduler/internal/metrics"
	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
	"github.com/magabrotheeeer/dojo-scheduler/internal/notifier"
	"github.com/magabrotheeeer/dojo-scheduler/internal/services/admission"
	"github.com/magabrotheeeer/dojo-scheduler/internal/storage/repository"
)

// DeniedError — отказ в допуске с кодом причины.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return "admission denied: " + e.Reason
}

// Repository определяет методы хранилища для работы с ростером.
type Repository interface {
	// Book создает запись в ростере с перепроверкой лимитов в транзакции.
	Book(ctx context.Context, sessionID int64, memberID, source string, ents []models.Entitlement) (*models.BookResult, error)
	// Cancel отменяет запись и продвигает лист ожидания.
	Cancel(ctx context.Context, entryID int64) (*models.CancelResult, error)
	// MarkNoShow отмечает неявку.
	MarkNoShow(ctx context.Context, entryID int64) (*models.RosterEntry, error)
	// CheckOut фиксирует время ухода.
	CheckOut(ctx context.Context, entryID int64, now time.Time) (*models.RosterEntry, error)
	// ReadEntry возвращает запись ростера по ID.
	ReadEntry(ctx context.Context, entryID int64) (*models.RosterEntry, error)
	// SyncRoster дописывает в ростер сессии недостающих участников курса.
	SyncRoster(ctx context.Context, sessionID int64) (int, error)
	// ListFutureBookedEntries возвращает будущие брони участника на курс.
	ListFutureBookedEntries(ctx context.Context, courseID int64, memberID string, after time.Time) ([]int64, error)
	// RemoveCourseMember исключает участника из курса.
	RemoveCourseMember(ctx context.Context, courseID int64, memberID string) error
}

// Admitter определяет проверку допуска перед бронированием.
type Admitter interface {
	// CanAdmit проверяет допуск участника на сессию.
	CanAdmit(ctx context.Context, sessionID int64, memberID string) (*admission.Evaluation, error)
}

// Events определяет публикацию событий ростера для сервиса уведомлений.
type Events interface {
	// NotifyAbsence публикует событие неявки.
	NotifyAbsence(event notifier.AbsenceEvent)
	// NotifyWaitlistPromoted публикует событие продвижения из листа ожидания.
	NotifyWaitlistPromoted(event notifier.WaitlistPromotedEvent)
}

// Service реализует операции над ростером.
type Service struct {
	repo     Repository
	admitter Admitter
	events   Events
	log      *slog.Logger
	now      func() time.Time
}

// New создает новый экземпляр Service. events может быть nil,
// тогда события не публикуются.
func New(repo Repository, admitter Admitter, events Events, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		admitter: admitter,
		events:   events,
		log:      log,
		now:      time.Now,
	}
}

// Book бронирует место на сессии. Сначала выполняется предварительная
// проверка допуска, затем хранилище атомарно решает booked/waitlisted
// и перепроверяет лимиты подходящих подписок.
func (s *Service) Book(ctx context.Context, sessionID int64, memberID, source string) (*models.BookResult, error) {
	const op = "services.roster.Book"

	eval, err := s.admitter.CanAdmit(ctx, sessionID, memberID)
	if err != nil {
		metrics.Bookings.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !eval.Decision.Allowed {
		metrics.Bookings.WithLabelValues("denied").Inc()
		return nil, fmt.Errorf("%s: %w", op, &DeniedError{Reason: eval.Decision.Reason})
	}

	res, err := s.repo.Book(ctx, sessionID, memberID, source, eval.Eligible)
	if err != nil {
		var capErr *repository.CapDeniedError
		if errors.As(err, &capErr) {
			// Гонка: лимит исчерпан конкурентной бронью между
			// предварительной проверкой и транзакцией.
			metrics.Bookings.WithLabelValues("denied").Inc()
			return nil, fmt.Errorf("%s: %w", op, &DeniedError{Reason: capErr.Reason})
		}
		if errors.Is(err, repository.ErrAlreadyBooked) {
			metrics.Bookings.WithLabelValues("already_booked").Inc()
		} else {
			metrics.Bookings.WithLabelValues("error").Inc()
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if res.Waitlisted {
		metrics.Bookings.WithLabelValues("waitlisted").Inc()
	} else {
		metrics.Bookings.WithLabelValues("booked").Inc()
	}
	s.log.Info("booking created",
		sl.Member(memberID), sl.Session(sessionID),
		slog.String("state", res.Entry.State), slog.String("source", source))
	return res, nil
}

// Cancel отменяет запись. Если при этом освободилось место, хранилище
// продвигает самую раннюю запись листа ожидания; о продвижении
// публикуется событие.
func (s *Service) Cancel(ctx context.Context, entryID int64) (*models.CancelResult, error) {
	const op = "services.roster.Cancel"

	res, err := s.repo.Cancel(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("booking cancelled",
		sl.Member(res.Entry.MemberID), sl.Session(res.Entry.SessionID))

	if res.Promoted != nil {
		metrics.WaitlistPromotions.Inc()
		s.log.Info("waitlist entry promoted",
			sl.Member(res.Promoted.MemberID), sl.Session(res.Promoted.SessionID))
		if s.events != nil {
			s.events.NotifyWaitlistPromoted(notifier.WaitlistPromotedEvent{
				MemberID:  res.Promoted.MemberID,
				SessionID: res.Promoted.SessionID,
				EntryID:   res.Promoted.ID,
				Promoted:  s.now(),
			})
		}
	}
	return res, nil
}

// MarkNoShow отмечает неявку и публикует событие для уведомления опекуна.
func (s *Service) MarkNoShow(ctx context.Context, entryID int64) (*models.RosterEntry, error) {
	const op = "services.roster.MarkNoShow"

	entry, err := s.repo.MarkNoShow(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("no-show recorded",
		sl.Member(entry.MemberID), sl.Session(entry.SessionID))
	if s.events != nil {
		s.events.NotifyAbsence(notifier.AbsenceEvent{
			MemberID:  entry.MemberID,
			SessionID: entry.SessionID,
			MarkedAt:  s.now(),
		})
	}
	return entry, nil
}

// CheckOut фиксирует время ухода участника с занятия.
func (s *Service) CheckOut(ctx context.Context, entryID int64) (*models.RosterEntry, error) {
	const op = "services.roster.CheckOut"

	entry, err := s.repo.CheckOut(ctx, entryID, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entry, nil
}

// SyncRoster дописывает в ростер сессии участников привязанного курса,
// у которых ещё нет активной записи.
func (s *Service) SyncRoster(ctx context.Context, sessionID int64) (int, error) {
	const op = "services.roster.SyncRoster"

	added, err := s.repo.SyncRoster(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if added > 0 {
		s.log.Info("roster synchronized", sl.Session(sessionID), slog.Int("added", added))
	}
	return added, nil
}

// RemoveFromCourse исключает участника из курса и отменяет его будущие
// подтверждённые брони на сессии этого курса. Каждая отмена выполняется
// отдельной транзакцией и может продвинуть лист ожидания.
func (s *Service) RemoveFromCourse(ctx context.Context, courseID int64, memberID string) (int, error) {
	const op = "services.roster.RemoveFromCourse"

	if err := s.repo.RemoveCourseMember(ctx, courseID, memberID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	entryIDs, err := s.repo.ListFutureBookedEntries(ctx, courseID, memberID, s.now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	cancelled := 0
	for _, entryID := range entryIDs {
		if _, err := s.Cancel(ctx, entryID); err != nil {
			// Запись могла быть отменена параллельно, продолжаем зачистку.
			if errors.Is(err, repository.ErrInvalidTransition) || errors.Is(err, repository.ErrEntryNotFound) {
				continue
			}
			return cancelled, fmt.Errorf("%s: %w", op, err)
		}
		cancelled++
	}
	s.log.Info("member removed from course",
		sl.Member(memberID), slog.Int64("course_id", courseID), slog.Int("cancelled", cancelled))
	return cancelled, nil
}
