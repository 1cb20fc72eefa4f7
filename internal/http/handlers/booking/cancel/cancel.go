// Package cancel реализует HTTP-обработчик отмены брони.
//
// Отмена терминальна; если после неё осталось свободное место, сервис
// продвигает самую раннюю запись листа ожидания, и она возвращается
// в ответе.
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
	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
	"github.com/magabrotheeeer/dojo-scheduler/internal/storage/repository"
)

// Handler управляет HTTP-запросами на отмену брони.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики ростера
}

// Service описывает интерфейс бизнес-логики отмены.
type Service interface {
	Cancel(ctx context.Context, entryID int64) (*models.CancelResult, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отменить бронь
// @Description Переводит запись в cancelled и при наличии вакансии продвигает первую запись листа ожидания.
// @Tags Bookings
// @Produce  json
// @Param id path int true "ID записи ростера"
// @Success 200 {object} response.Response "Бронь отменена"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Запись не найдена"
// @Failure 409 {object} response.ErrorResponse "Запись уже в терминальном состоянии"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /bookings/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.booking.cancel"
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

	res, err := h.service.Cancel(r.Context(), entryID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEntryNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("roster entry not found"))
		case errors.Is(err, repository.ErrInvalidTransition):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("entry is already in a terminal state"))
		default:
			log.Error("failed to cancel booking", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not cancel booking"))
		}
		return
	}

	data := map[string]any{"entry_id": res.Entry.ID}
	if res.Promoted != nil {
		data["promoted_entry_id"] = res.Promoted.ID
		data["promoted_member_id"] = res.Promoted.MemberID
	}
	render.JSON(w, r, response.OKWithData(data))
}
