package models

import (
	"time"

	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/week"
)

// Коды отказа в допуске. Проверки выполняются в фиксированном порядке,
// побеждает первая отказавшая — отказ всегда детерминирован и объясним.
const (
	ReasonSessionNotFound      = "session_not_found"
	ReasonSessionCancelled     = "session_cancelled"
	ReasonRankTooLow           = "rank_too_low"
	ReasonNotOnCourseRoster    = "not_on_course_roster"
	ReasonNoActiveSubscription = "no_active_subscription"
	ReasonCourseNotAllowed     = "course_not_allowed_by_plan"
	ReasonWeeklyCapReached     = "weekly_cap_reached"
	ReasonPeriodCapReached     = "period_cap_reached"
)

// Decision — результат проверки допуска. Reason заполнен только при отказе.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Admit возвращает положительное решение.
func Admit() Decision { return Decision{Allowed: true} }

// Deny возвращает отказ с указанным кодом причины.
func Deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// CountRegisteredFunc считает подтверждённые (booked) записи участника,
// чьи сессии попадают в [from, to), с ограничением по курсам плана
// (пустой список — без ограничения). Реализация выполняется либо вне
// транзакции (предварительная проверка), либо внутри транзакции
// бронирования (авторитетная перепроверка).
type CountRegisteredFunc func(from, to time.Time, courseIDs []int64) (int, error)

// EvaluateCaps проверяет недельный и биллинговый лимиты для каждого
// подходящего плана. Планы оцениваются независимо: бронирование допустимо,
// если хотя бы один план укладывается в оба лимита. Если отказали все,
// возвращается код лимита первого отказавшего плана. Нулевой лимит
// означает безлимит.
func EvaluateCaps(ents []Entitlement, sessionStart time.Time, count CountRegisteredFunc) (Decision, error) {
	// Недельное окно считается по неделе самой сессии, не по текущему моменту.
	weekStart, weekEnd := week.Bounds(sessionStart)
	firstReason := ""
	for _, ent := range ents {
		planOK := true

		if ent.WeeklyCap > 0 {
			used, err := count(weekStart, weekEnd, ent.AllowedCourseIDs)
			if err != nil {
				return Decision{}, err
			}
			if used >= ent.WeeklyCap {
				planOK = false
				if firstReason == "" {
					firstReason = ReasonWeeklyCapReached
				}
			}
		}

		if planOK && ent.PeriodCap > 0 && !ent.PeriodStart.IsZero() && !ent.NextBillingDate.IsZero() {
			used, err := count(ent.PeriodStart, ent.NextBillingDate, ent.AllowedCourseIDs)
			if err != nil {
				return Decision{}, err
			}
			if used >= ent.PeriodCap {
				planOK = false
				if firstReason == "" {
					firstReason = ReasonPeriodCapReached
				}
			}
		}

		if planOK {
			return Admit(), nil
		}
	}
	if firstReason == "" {
		// Лимиты нигде не заданы, но и планы не прошли — сюда можно попасть
		// только с пустым списком, вызывающая сторона отсекает это раньше.
		firstReason = ReasonNoActiveSubscription
	}
	return Deny(firstReason), nil
}
