// Package checkin реализует HTTP-обработчик отметки посещения занятия.
//
// Единая точка входа для киоска, портала участника и стойки персонала.
// Операция идемпотентна: повторная отметка возвращает уже записанный
// факт с notice already_checked_in и без побочных эффектов.
package checkin

import (
	"context"
	"encoding/json"
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
	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
	"github.com/magabrotheeeer/dojo-scheduler/internal/storage/repository"
)

// Handler управляет HTTP-запросами на отметку посещения.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики отметки посещения
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики отметки посещения.
type Service interface {
	CheckIn(ctx context.Context, sessionID int64, memberID, source string) (*models.CheckInResult, error)
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
// @Summary Отметить посещение занятия
// @Description Идемпотентно фиксирует явку участника. Участник без брони отмечается как walk-in, если это разрешено конфигурацией.
// @Tags Sessions
// @Accept  json
// @Produce  json
// @Param id path int true "ID занятия"
// @Param request body models.CheckInRequest true "Участник и источник отметки"
// @Success 200 {object} response.Response "Посещение отмечено"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Занятие или участник не найдены"
// @Failure 409 {object} response.ErrorResponse "Занятие отменено или walk-in запрещён"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /sessions/{id}/checkin [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.checkin"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sessionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("failed to decode id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	var req models.CheckInRequest
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
	if !models.ValidSource(req.Source) {
		log.Error("unknown check-in source", slog.String("source", req.Source))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("unknown check-in source"))
		return
	}

	res, err := h.service.CheckIn(r.Context(), sessionID, req.MemberID, req.Source)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("session not found"))
		case errors.Is(err, repository.ErrMemberNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("member not found"))
		case errors.Is(err, repository.ErrNotBookable):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("session is cancelled"))
		case errors.Is(err, repository.ErrNotBooked):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("member has no booking and walk-ins are disabled"))
		default:
			log.Error("failed to check in", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not check in"))
		}
		return
	}

	data := map[string]any{
		"fact_id":    res.Fact.ID,
		"checkin_at": res.Fact.CheckinAt,
	}
	switch {
	case res.AlreadyCheckedIn:
		render.JSON(w, r, response.OKWithNotice("already_checked_in", data))
	case res.WalkIn:
		render.JSON(w, r, response.OKWithNotice("walk_in", data))
	default:
		render.JSON(w, r, response.OKWithData(data))
	}
}
