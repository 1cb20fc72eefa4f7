// Package session реализует жизненный цикл занятия: публикация,
// запуск, завершение и отмена — действия персонала или системы.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
)

// Repository определяет методы хранилища для жизненного цикла сессий.
type Repository interface {
	// CreateSession вставляет сессию, созданную вручную.
	CreateSession(ctx context.Context, session models.Session) (int64, error)
	// ReadSession возвращает сессию по ID.
	ReadSession(ctx context.Context, id int64) (*models.Session, error)
	// TransitionSession атомарно переводит сессию из from в to.
	TransitionSession(ctx context.Context, id int64, from, to string) error
	// CancelSession переводит сессию в cancelled из любого нетерминального состояния.
	CancelSession(ctx context.Context, id int64) error
	// ListSessionsForDate возвращает занятия на дату со счётчиками ростера.
	ListSessionsForDate(ctx context.Context, date time.Time) ([]*models.SessionSummary, error)
}

// Service реализует операции жизненного цикла занятия.
type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

// New создает новый экземпляр Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// Create создает разовое занятие вне расписания генератора.
// Занятие создаётся черновиком; запись участников открывает публикация.
func (s *Service) Create(ctx context.Context, session models.Session) (int64, error) {
	const op = "services.session.Create"

	start := session.StartAt
	session.SessionDate = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	session.State = models.SessionDraft
	session.FromRecurring = false

	id, err := s.repo.CreateSession(ctx, session)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("manual session created", sl.Session(id))
	return id, nil
}

// Publish открывает черновик для записи участников.
func (s *Service) Publish(ctx context.Context, id int64) error {
	const op = "services.session.Publish"

	if err := s.repo.TransitionSession(ctx, id, models.SessionDraft, models.SessionOpen); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("session published", sl.Session(id))
	return nil
}

// Start переводит открытую сессию в in_progress.
// Тот же переход выполняется автоматически первым чекином.
func (s *Service) Start(ctx context.Context, id int64) error {
	const op = "services.session.Start"

	if err := s.repo.TransitionSession(ctx, id, models.SessionOpen, models.SessionInProgress); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("session started", sl.Session(id))
	return nil
}

// Finish завершает идущую сессию.
func (s *Service) Finish(ctx context.Context, id int64) error {
	const op = "services.session.Finish"

	if err := s.repo.TransitionSession(ctx, id, models.SessionInProgress, models.SessionDone); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("session finished", sl.Session(id))
	return nil
}

// Cancel отменяет сессию из любого нетерминального состояния.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	const op = "services.session.Cancel"

	if err := s.repo.CancelSession(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("session cancelled", sl.Session(id))
	return nil
}

// Read возвращает сессию по ID.
func (s *Service) Read(ctx context.Context, id int64) (*models.Session, error) {
	const op = "services.session.Read"

	session, err := s.repo.ReadSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

// ListToday возвращает занятия на сегодня — экран киоска и панель персонала.
func (s *Service) ListToday(ctx context.Context) ([]*models.SessionSummary, error) {
	const op = "services.session.ListToday"

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	sessions, err := s.repo.ListSessionsForDate(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sessions, nil
}
