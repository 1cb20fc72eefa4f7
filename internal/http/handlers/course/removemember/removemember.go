// Package removemember реализует HTTP-обработчик исключения участника
// из курса. Будущие подтверждённые брони участника на сессии курса
// отменяются, освобождая места для листа ожидания.
package removemember

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/dojo-scheduler/internal/http/response"
	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/dojo-scheduler/internal/storage/repository"
)

// Handler управляет HTTP-запросами на исключение из курса.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики ростера
	validate *validator.Validate // Валидатор идентификатора участника
}

// Service описывает интерфейс бизнес-логики исключения из курса.
type Service interface {
	RemoveFromCourse(ctx context.Context, courseID int64, memberID string) (int, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Исключить участника из курса
// @Description Удаляет участника из ростера курса и отменяет его будущие подтверждённые брони на сессии этого курса.
// @Tags Courses
// @Produce  json
// @Param courseID path int true "ID курса"
// @Param memberID path string true "UUID участника"
// @Success 200 {object} response.Response "Число отменённых броней"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Участник не состоит в курсе"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /courses/{courseID}/members/{memberID} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.course.removemember"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	courseID, err := strconv.ParseInt(chi.URLParam(r, "courseID"), 10, 64)
	if err != nil {
		log.Error("failed to decode course id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode course id from url"))
		return
	}
	memberID := chi.URLParam(r, "memberID")
	if err := h.validate.Var(memberID, "required,uuid"); err != nil {
		log.Error("invalid member id in url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid member id in url"))
		return
	}

	cancelled, err := h.service.RemoveFromCourse(r.Context(), courseID, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("member is not enrolled in course"))
			return
		}
		log.Error("failed to remove member from course", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not remove member from course"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"cancelled_bookings": cancelled,
	}))
}
