package models

import "time"

// Состояния сессии. Терминальные: done и cancelled.
const (
	SessionDraft      = "draft"
	SessionOpen       = "open"
	SessionInProgress = "in_progress"
	SessionDone       = "done"
	SessionCancelled  = "cancelled"
)

// Session представляет одно конкретное занятие с датой, временем и вместимостью.
// Вместимость копируется из шаблона при генерации и может быть переопределена вручную.
type Session struct {
	ID           int64
	TemplateID   int64
	CourseID     *int64
	InstructorID *int64
	StartAt      time.Time
	EndAt        time.Time
	// SessionDate — календарная дата занятия, денормализована для
	// уникального индекса (template_id, session_date) при генерации.
	SessionDate   time.Time
	Capacity      int
	State         string
	FromRecurring bool
}

// IsTerminalSessionState сообщает, является ли состояние сессии конечным.
func IsTerminalSessionState(state string) bool {
	return state == SessionDone || state == SessionCancelled
}

// SessionSummary используется для списка занятий на сегодня (экран киоска).
type SessionSummary struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	StartAt       time.Time `json:"start_at"`
	State         string    `json:"state"`
	Capacity      int       `json:"capacity"`
	BookedCount   int       `json:"booked_count"`
	AttendedCount int       `json:"attended_count"`
	SpotsLeft     int       `json:"spots_left"`
}
