package models

import "time"

// Состояния записи в ростере. Терминальные: attended, no_show, cancelled.
// Прямого перехода waitlisted -> booked по запросу нет: единственный путь —
// автоматическое продвижение из листа ожидания при отмене чужой брони.
const (
	RosterBooked     = "booked"
	RosterWaitlisted = "waitlisted"
	RosterAttended   = "attended"
	RosterNoShow     = "no_show"
	RosterCancelled  = "cancelled"
)

// Источники бронирования и отметки посещения.
const (
	SourceMemberApp = "member_app"
	SourceKiosk     = "kiosk"
	SourceStaff     = "staff"
	SourceManual    = "manual"
)

// RosterEntry — запись о бронировании одного участника на одно занятие.
// На пару (session, member) существует не более одной неотменённой записи;
// отмена — терминальное состояние, записи никогда не удаляются физически.
type RosterEntry struct {
	ID         int64
	SessionID  int64
	MemberID   string // UUID участника из внешней CRM
	State      string
	Source     string
	BookedAt   time.Time
	CheckinAt  *time.Time
	CheckoutAt *time.Time
}

// IsTerminalRosterState сообщает, является ли состояние записи конечным.
func IsTerminalRosterState(state string) bool {
	switch state {
	case RosterAttended, RosterNoShow, RosterCancelled:
		return true
	}
	return false
}

// ValidSource проверяет, что источник бронирования известен.
func ValidSource(source string) bool {
	switch source {
	case SourceMemberApp, SourceKiosk, SourceStaff, SourceManual:
		return true
	}
	return false
}

// BookRequest используется для приёма данных запроса на бронирование.
type BookRequest struct {
	MemberID string `json:"member_id" validate:"required,uuid"`
	Source   string `json:"source" validate:"required"`
}

// BookResult возвращается сервисом бронирования: созданная запись
// и признак попадания в лист ожидания.
type BookResult struct {
	Entry      *RosterEntry
	Waitlisted bool
}

// CancelResult описывает результат отмены: отменённая запись и запись,
// автоматически продвинутая из листа ожидания (может быть nil).
type CancelResult struct {
	Entry    *RosterEntry
	Promoted *RosterEntry
}
