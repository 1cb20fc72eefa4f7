// Package remove реализует HTTP-обработчик удаления ошибочного факта
// посещения — коррекция персоналом. Счётчик посещений участника
// откатывается симметрично.
package remove

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

// Handler управляет HTTP-запросами на удаление факта посещения.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики отметки посещения
}

// Service описывает интерфейс бизнес-логики удаления факта посещения.
type Service interface {
	RemoveAttendance(ctx context.Context, factID int64) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удалить факт посещения
// @Description Удаляет ошибочно созданный факт посещения и откатывает счётчик посещений участника.
// @Tags Attendance
// @Produce  json
// @Param id path int true "ID факта посещения"
// @Success 200 {object} response.Response "Факт удалён"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Факт не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /attendance/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.attendance.remove"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	factID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("failed to decode id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	if err := h.service.RemoveAttendance(r.Context(), factID); err != nil {
		if errors.Is(err, repository.ErrFactNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("attendance fact not found"))
			return
		}
		log.Error("failed to remove attendance fact", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not remove attendance fact"))
		return
	}

	render.JSON(w, r, response.OK())
}
