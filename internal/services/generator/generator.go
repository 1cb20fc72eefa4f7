// Package generator разворачивает рекуррентные шаблоны занятий
// в конкретные сессии на заданный горизонт вперёд.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/dojo-scheduler/internal/metrics"
	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
)

// Repository определяет методы хранилища для генерации расписания.
type Repository interface {
	// ListActiveRecurringTemplates возвращает шаблоны с включённой генерацией.
	ListActiveRecurringTemplates(ctx context.Context) ([]models.ClassTemplate, error)
	// ListCourseMembers возвращает участников курса.
	ListCourseMembers(ctx context.Context, courseID int64) ([]string, error)
	// GenerateSessions идемпотентно вставляет сессии одного шаблона.
	GenerateSessions(ctx context.Context, templateID int64, sessions []models.Session, members []string) (created, skipped int, err error)
}

// Summary — итог одного прогона генератора.
type Summary struct {
	Templates int `json:"templates"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Service реализует генерацию расписания.
type Service struct {
	repo        Repository
	horizonDays int
	log         *slog.Logger
	now         func() time.Time
}

// New создает новый экземпляр Service.
func New(repo Repository, horizonDays int, log *slog.Logger) *Service {
	if horizonDays <= 0 {
		horizonDays = 60
	}
	return &Service{
		repo:        repo,
		horizonDays: horizonDays,
		log:         log,
		now:         time.Now,
	}
}

// ExpandTemplate возвращает сессии шаблона для дат из [from, to],
// чей день недели активен и которые попадают в действующий диапазон
// шаблона. Время занятия — минуты от полуночи в локальной зоне даты.
func ExpandTemplate(tmpl models.ClassTemplate, from, to time.Time) []models.Session {
	active := tmpl.ActiveWeekdays()
	if len(active) == 0 {
		return nil
	}

	var sessions []models.Session
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for !day.After(to) {
		if !active[day.Weekday()] ||
			(tmpl.RecurrenceStart != nil && day.Before(*tmpl.RecurrenceStart)) ||
			(tmpl.RecurrenceEnd != nil && day.After(*tmpl.RecurrenceEnd)) {
			day = day.AddDate(0, 0, 1)
			continue
		}
		startAt := day.Add(time.Duration(tmpl.RecurrenceTime) * time.Minute)
		sessions = append(sessions, models.Session{
			TemplateID:    tmpl.ID,
			CourseID:      tmpl.CourseID,
			InstructorID:  tmpl.InstructorID,
			StartAt:       startAt,
			EndAt:         startAt.Add(tmpl.Duration()),
			SessionDate:   day,
			Capacity:      tmpl.MaxCapacity,
			State:         models.SessionOpen,
			FromRecurring: true,
		})
		day = day.AddDate(0, 0, 1)
	}
	return sessions
}

// GenerateAll прогоняет все активные шаблоны на горизонт вперёд.
// Прогон идемпотентен: уже существующие пары (template, date) пропускаются.
// Ошибка одного шаблона логируется и не прерывает остальные.
func (s *Service) GenerateAll(ctx context.Context) (*Summary, error) {
	const op = "services.generator.GenerateAll"

	templates, err := s.repo.ListActiveRecurringTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	from := s.now()
	to := from.AddDate(0, 0, s.horizonDays)
	summary := &Summary{Templates: len(templates)}

	for _, tmpl := range templates {
		sessions := ExpandTemplate(tmpl, from, to)
		if len(sessions) == 0 {
			continue
		}

		var members []string
		if tmpl.CourseID != nil {
			members, err = s.repo.ListCourseMembers(ctx, *tmpl.CourseID)
			if err != nil {
				summary.Failed++
				s.log.Error("failed to list course members",
					sl.Err(err), slog.Int64("template_id", tmpl.ID))
				continue
			}
		}

		created, skipped, err := s.repo.GenerateSessions(ctx, tmpl.ID, sessions, members)
		if err != nil {
			summary.Failed++
			s.log.Error("session generation failed for template",
				sl.Err(err), slog.Int64("template_id", tmpl.ID))
			continue
		}
		summary.Created += created
		summary.Skipped += skipped
		metrics.SessionsGenerated.Add(float64(created))
	}

	s.log.Info("schedule generation finished",
		slog.Int("templates", summary.Templates),
		slog.Int("created", summary.Created),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed))
	return summary, nil
}

// Run запускает периодическую генерацию с заданным интервалом
// до отмены контекста. Первый прогон выполняется сразу.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if _, err := s.GenerateAll(ctx); err != nil {
		s.log.Error("schedule generation failed", sl.Err(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.GenerateAll(ctx); err != nil {
				s.log.Error("schedule generation failed", sl.Err(err))
			}
		}
	}
}
