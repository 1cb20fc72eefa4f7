// Package metrics регистрирует счётчики доменных событий в реестре
// Prometheus по умолчанию; их отдаёт тот же /metrics, что и метрики рантайма.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Bookings считает попытки бронирования по результату:
	// booked, waitlisted, denied, already_booked, error.
	Bookings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dojo_bookings_total",
		Help: "Booking attempts by outcome.",
	}, []string{"result"})

	// CheckIns считает отметки посещения по результату:
	// checked_in, already_checked_in, walk_in, rejected, error.
	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dojo_checkins_total",
		Help: "Check-in attempts by outcome.",
	}, []string{"result"})

	// WaitlistPromotions считает продвижения из листа ожидания.
	WaitlistPromotions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dojo_waitlist_promotions_total",
		Help: "Waitlist entries promoted to booked.",
	})

	// SessionsGenerated считает сессии, созданные генератором расписания.
	SessionsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dojo_sessions_generated_total",
		Help: "Sessions created by the recurrence generator.",
	})
)
