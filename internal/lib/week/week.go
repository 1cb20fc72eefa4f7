// Package week содержит вспомогательные функции для расчёта границ
// календарной недели (понедельник–воскресенье), используемых при проверке
// недельных лимитов подписки.
package week

import "time"

// Bounds возвращает начало понедельника и конец воскресенья (полночь
// следующего понедельника, не включительно) для недели, содержащей t.
// Границы считаются в часовом поясе t.
func Bounds(t time.Time) (start, end time.Time) {
	// time.Weekday нумерует воскресенье нулём, неделя зала начинается с понедельника
	offset := (int(t.Weekday()) + 6) % 7
	year, month, day := t.AddDate(0, 0, -offset).Date()
	start = time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	end = start.AddDate(0, 0, 7)
	return start, end
}

// SameWeek сообщает, попадают ли оба момента в одну неделю понедельник–воскресенье.
func SameWeek(a, b time.Time) bool {
	startA, _ := Bounds(a)
	startB, _ := Bounds(b)
	return startA.Equal(startB)
}
