package repository

import "errors"

// Доменные ошибки хранилища. Сервисы проверяют их через errors.Is
// и переводят в ответы API; AlreadyBooked — не сбой, а идемпотентный
// повтор, обрабатывается как успех-с-уведомлением.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrEntryNotFound     = errors.New("roster entry not found")
	ErrMemberNotFound    = errors.New("member not found")
	ErrTemplateNotFound  = errors.New("class template not found")
	ErrCourseNotFound    = errors.New("course not found")
	ErrAlreadyBooked     = errors.New("member already has an active entry for this session")
	ErrNotBookable       = errors.New("session is not accepting bookings")
	ErrNotBooked         = errors.New("member has no active booking for this session")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrCapExceeded       = errors.New("subscription session cap exceeded")
	ErrFactNotFound      = errors.New("attendance fact not found")
)
