package dojoscheduler

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	attendanceremove "github.com/magabrotheeeer/dojo-scheduler/internal/http/handlers/attendance/remove"
	"github.com/magabrotheeeer/dojo-scheduler/internal/http/handlers/booking/book"
	bookingcancel "github.com/magabrotheeeer/dojo-scheduler/internal/http/handlers/booking/cancel"
	"github.com/magabrotheeeer/dojo-scheduler/internal/http/handlers/booking/checkout"
	"github.com/magabrotheeeer/dojo-scheduler/internal/http/handlers/booking/noshow"
	"github.com/magabrotheeeer/dojo-scheduler/internal/http/handlers/course/removemember"
	"github.com/magabrotheeeer/dojo-scheduler/internal/http/handlers/health"
	"github.com/magabrotheeeer/dojo-scheduler/internal/http/handlers/kiosk/verifypin"
	sessioncancel "github.com/magabrotheeeer/dojo-scheduler/internal/http/handlers/session/cancel"
	"github.com/magabrotheeeer/dojo-scheduler/internal/http/handlers/session/checkin"
	"github.com/magabrotheeeer/dojo-scheduler/internal/http/handlers/session/create"
	"github.com/magabrotheeeer/dojo-scheduler/internal/http/handlers/session/finish"
	"github.com/magabrotheeeer/dojo-scheduler/internal/http/handlers/session/generate"
	"github.com/magabrotheeeer/dojo-scheduler/internal/http/handlers/session/publish"
	"github.com/magabrotheeeer/dojo-scheduler/internal/http/handlers/session/start"
	"github.com/magabrotheeeer/dojo-scheduler/internal/http/handlers/session/syncroster"
	"github.com/magabrotheeeer/dojo-scheduler/internal/http/handlers/session/today"
	"github.com/magabrotheeeer/dojo-scheduler/internal/http/middlewarectx"
	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/jwt"
	checkinservice "github.com/magabrotheeeer/dojo-scheduler/internal/services/checkin"
	generatorservice "github.com/magabrotheeeer/dojo-scheduler/internal/services/generator"
	rosterservice "github.com/magabrotheeeer/dojo-scheduler/internal/services/roster"
	sessionservice "github.com/magabrotheeeer/dojo-scheduler/internal/services/session"
)

// Services объединяет сервисы, необходимые маршрутам API.
type Services struct {
	Roster    *rosterservice.Service
	CheckIn   *checkinservice.Service
	Generator *generatorservice.Service
	Sessions  *sessionservice.Service
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, svc *Services, jwtMaker jwt.Maker, staffPINHash string) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Киоск в зале: без JWT, с ограничением частоты запросов
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger, 5, 10))
			r.Post("/kiosk/verify-pin", verifypin.New(logger, staffPINHash).ServeHTTP)
			r.Get("/sessions/today", today.New(logger, svc.Sessions).ServeHTTP)
			r.Post("/sessions/{id}/checkin", checkin.New(logger, svc.CheckIn).ServeHTTP)
		})

		// Портал участников и стойка персонала: JWT аутентификация
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(logger, jwtMaker))

			r.Post("/sessions/{id}/bookings", book.New(logger, svc.Roster).ServeHTTP)
			r.Delete("/bookings/{id}", bookingcancel.New(logger, svc.Roster).ServeHTTP)
			r.Post("/bookings/{id}/no-show", noshow.New(logger, svc.Roster).ServeHTTP)
			r.Post("/bookings/{id}/checkout", checkout.New(logger, svc.Roster).ServeHTTP)

			r.Post("/sessions", create.New(logger, svc.Sessions).ServeHTTP)
			r.Post("/sessions/{id}/publish", publish.New(logger, svc.Sessions).ServeHTTP)
			r.Post("/sessions/{id}/start", start.New(logger, svc.Sessions).ServeHTTP)
			r.Post("/sessions/{id}/finish", finish.New(logger, svc.Sessions).ServeHTTP)
			r.Delete("/sessions/{id}", sessioncancel.New(logger, svc.Sessions).ServeHTTP)
			r.Post("/sessions/{id}/sync-roster", syncroster.New(logger, svc.Roster).ServeHTTP)
			r.Post("/sessions/generate", generate.New(logger, svc.Generator).ServeHTTP)

			r.Delete("/attendance/{id}", attendanceremove.New(logger, svc.CheckIn).ServeHTTP)
			r.Delete("/courses/{courseID}/members/{memberID}", removemember.New(logger, svc.Roster).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
