// Package noshow реализует HTTP-обработчик отметки неявки.
// Операция персонала; о неявке публикуется событие для уведомления опекуна.
package noshow

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/dojo-scheduler/internal/http/response"
	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
	"github.com/magabrotheeeer/dojo-scheduler/internal/storage/repository"
)

// Handler управляет HTTP-запросами на отметку неявки.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики ростера
}

// Service описывает интерфейс бизнес-логики отметки неявки.
type Service interface {
	MarkNoShow(ctx context.Context, entryID int64) (*models.RosterEntry, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отметить неявку
// @Description Переводит запись booked/waitlisted в no_show и публикует событие для уведомления.
// @Tags Bookings
// @Produce  json
// @Param id path int true "ID записи ростера"
// @Success 200 {object} response.Response "Неявка отмечена"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Запись не найдена"
// @Failure 409 {object} response.ErrorResponse "Недопустимый переход состояния"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /bookings/{id}/no-show [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.booking.noshow"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	entryID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("failed to decode id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	entry, err := h.service.MarkNoShow(r.Context(), entryID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEntryNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("roster entry not found"))
		case errors.Is(err, repository.ErrInvalidTransition):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("no-show is only valid from booked or waitlisted"))
		default:
			log.Error("failed to mark no-show", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not mark no-show"))
		}
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"entry_id": entry.ID,
		"state":    entry.State,
	}))
}
