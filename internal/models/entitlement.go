package models

import "time"

// Entitlement — активная подписка участника, прочитанная из биллинга.
// Пустой AllowedCourseIDs означает отсутствие ограничения по курсам.
// Нулевые лимиты означают безлимит соответствующего вида.
type Entitlement struct {
	SubscriptionID   int64
	PlanID           int64
	PlanName         string
	AllowedCourseIDs []int64
	WeeklyCap        int
	PeriodCap        int
	PeriodStart      time.Time
	NextBillingDate  time.Time
}

// AllowsCourse сообщает, покрывает ли план указанный курс.
// Сессия без курса доступна по любому плану.
func (e Entitlement) AllowsCourse(courseID *int64) bool {
	if len(e.AllowedCourseIDs) == 0 || courseID == nil {
		return true
	}
	for _, id := range e.AllowedCourseIDs {
		if id == *courseID {
			return true
		}
	}
	return false
}
