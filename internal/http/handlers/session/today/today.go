// Package today реализует HTTP-обработчик списка занятий на сегодня —
// данные для экрана киоска и панели персонала.
package today

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/dojo-scheduler/internal/http/response"
	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
)

// Handler управляет HTTP-запросами на список занятий.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис жизненного цикла занятий
}

// Service описывает интерфейс бизнес-логики списка занятий.
type Service interface {
	ListToday(ctx context.Context) ([]*models.SessionSummary, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Занятия на сегодня
// @Description Возвращает занятия текущего дня со счётчиками броней и посещений. Отменённые не включаются.
// @Tags Sessions
// @Produce  json
// @Success 200 {object} response.Response "Список занятий"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /sessions/today [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.today"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sessions, err := h.service.ListToday(r.Context())
	if err != nil {
		log.Error("failed to list sessions", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list sessions"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"sessions": sessions,
	}))
}
