// Package cancel реализует HTTP-обработчик отмены занятия.
// Отмена допустима из любого нетерминального состояния; уже записанные
// участники остаются в ростере, но отметить их посещение больше нельзя.
package cancel

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
	"github.com/magabrotheeeer/dojo-scheduler/internal/storage/repository"
)

// Handler управляет HTTP-запросами на отмену занятия.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис жизненного цикла занятий
}

// Service описывает интерфейс бизнес-логики отмены занятия.
type Service interface {
	Cancel(ctx context.Context, id int64) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отменить занятие
// @Description Переводит занятие в cancelled из любого нетерминального состояния.
// @Tags Sessions
// @Produce  json
// @Param id path int true "ID занятия"
// @Success 200 {object} response.Response "Занятие отменено"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Занятие не найдено"
// @Failure 409 {object} response.ErrorResponse "Занятие уже завершено или отменено"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /sessions/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.cancel"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("failed to decode id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	if err := h.service.Cancel(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("session not found"))
		case errors.Is(err, repository.ErrInvalidTransition):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("session is already finished or cancelled"))
		default:
			log.Error("failed to cancel session", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not cancel session"))
		}
		return
	}

	render.JSON(w, r, response.OK())
}
