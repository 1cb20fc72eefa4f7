// Package models содержит доменные структуры расписания занятий:
// шаблоны классов, конкретные занятия, записи в ростер и факты посещения,
// а также вспомогательные типы для приёма данных из JSON-запросов.
package models

import "time"

// ClassTemplate описывает повторяющееся еженедельное занятие,
// из которого генерируются конкретные сессии.
// Время занятия фиксировано для шаблона (RecurrenceTime, минуты от полуночи),
// активные дни недели заданы отдельными флагами как в конфигурации зала.
type ClassTemplate struct {
	ID               int64
	Name             string
	Level            string // beginner, intermediate, advanced, all
	DurationMinutes  int
	MaxCapacity      int
	CourseID         *int64 // курс с явным списком участников, может отсутствовать
	InstructorID     *int64
	RecurrenceActive bool
	RecMon           bool
	RecTue           bool
	RecWed           bool
	RecThu           bool
	RecFri           bool
	RecSat           bool
	RecSun           bool
	RecurrenceTime   int // минуты от полуночи, например 18:30 = 1110
	RecurrenceStart  *time.Time
	RecurrenceEnd    *time.Time
}

// ActiveWeekdays возвращает множество активных дней недели шаблона.
func (t ClassTemplate) ActiveWeekdays() map[time.Weekday]bool {
	days := make(map[time.Weekday]bool, 7)
	for wd, active := range map[time.Weekday]bool{
		time.Monday:    t.RecMon,
		time.Tuesday:   t.RecTue,
		time.Wednesday: t.RecWed,
		time.Thursday:  t.RecThu,
		time.Friday:    t.RecFri,
		time.Saturday:  t.RecSat,
		time.Sunday:    t.RecSun,
	} {
		if active {
			days[wd] = true
		}
	}
	return days
}

// Duration возвращает длительность занятия, минимум 60 минут если не задана.
func (t ClassTemplate) Duration() time.Duration {
	if t.DurationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(t.DurationMinutes) * time.Minute
}
