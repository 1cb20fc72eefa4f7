package models

import "time"

// AttendanceFact — неизменяемая запись о фактическом посещении занятия.
// Ведётся отдельно от ростера, чтобы история посещений переживала правки
// ростера. На пару (session, member) существует строго один факт;
// его создание увеличивает счётчик посещений участника ровно на единицу,
// административное удаление — симметрично уменьшает.
type AttendanceFact struct {
	ID            int64
	SessionID     int64
	MemberID      string
	RosterEntryID *int64 // nil для исторических записей без ростера
	CheckinAt     time.Time
}

// CheckInRequest используется для приёма данных запроса на отметку посещения.
type CheckInRequest struct {
	MemberID string `json:"member_id" validate:"required,uuid"`
	Source   string `json:"source" validate:"required"`
}

// CheckInResult возвращается сервисом отметки посещения.
type CheckInResult struct {
	Fact *AttendanceFact
	// AlreadyCheckedIn — повторный вызов для той же пары (session, member):
	// успех-с-уведомлением, новый факт не создаётся, счётчик не растёт.
	AlreadyCheckedIn bool
	// WalkIn — участник пришёл без брони, запись в ростере синтезирована
	// сразу в состоянии attended в обход вместимости.
	WalkIn bool
}
