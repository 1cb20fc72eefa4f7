// Package create реализует HTTP-обработчик создания разового занятия
// вне расписания генератора. Занятие создаётся черновиком; запись
// участников открывает отдельная публикация.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/dojo-scheduler/internal/http/response"
	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
	"github.com/magabrotheeeer/dojo-scheduler/internal/storage/repository"
)

// Request — тело запроса на создание разового занятия.
type Request struct {
	TemplateID      int64     `json:"template_id" validate:"required"`
	CourseID        *int64    `json:"course_id,omitempty"`
	InstructorID    *int64    `json:"instructor_id,omitempty"`
	StartAt         time.Time `json:"start_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,gt=0"`
	Capacity        int       `json:"capacity" validate:"gte=0"`
}

// Handler управляет HTTP-запросами на создание занятия.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис жизненного цикла занятий
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики создания занятия.
type Service interface {
	Create(ctx context.Context, session models.Session) (int64, error)
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
// @Summary Создать разовое занятие
// @Description Создаёт занятие вне расписания генератора черновиком. Запись участников открывает публикация.
// @Tags Sessions
// @Accept  json
// @Produce  json
// @Param request body Request true "Параметры занятия"
// @Success 200 {object} response.Response "Занятие создано"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Шаблон или курс не найдены"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /sessions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	id, err := h.service.Create(r.Context(), models.Session{
		TemplateID:   req.TemplateID,
		CourseID:     req.CourseID,
		InstructorID: req.InstructorID,
		StartAt:      req.StartAt,
		EndAt:        req.StartAt.Add(time.Duration(req.DurationMinutes) * time.Minute),
		Capacity:     req.Capacity,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTemplateNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("class template not found"))
		case errors.Is(err, repository.ErrCourseNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("course not found"))
		default:
			log.Error("failed to create session", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not create session"))
		}
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"session_id": id,
		"state":      models.SessionDraft,
	}))
}
