// Package book реализует HTTP-обработчик бронирования места на занятии.
//
// Handler принимает JSON-запрос с участником и источником брони, валидирует
// его, прогоняет проверку допуска и создает запись в ростере через сервис.
// При заполненной вместимости запись попадает в лист ожидания, о чём
// сообщает поле notice ответа.
package book

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
	"github.com/magabrotheeeer/dojo-scheduler/internal/services/roster"
	"github.com/magabrotheeeer/dojo-scheduler/internal/storage/repository"
)

// Handler управляет HTTP-запросами на бронирование мест.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики ростера
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики бронирования.
type Service interface {
	Book(ctx context.Context, sessionID int64, memberID, source string) (*models.BookResult, error)
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
// @Summary Забронировать место на занятии
// @Description Проверяет допуск участника и создает запись в ростере. При заполненной вместимости участник попадает в лист ожидания.
// @Tags Bookings
// @Accept  json
// @Produce  json
// @Param id path int true "ID занятия"
// @Param request body models.BookRequest true "Участник и источник брони"
// @Success 200 {object} response.Response "Бронь создана"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 403 {object} response.ErrorResponse "Отказ в допуске"
// @Failure 409 {object} response.ErrorResponse "Занятие не принимает брони"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /sessions/{id}/bookings [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.booking.book"
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

	var req models.BookRequest
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
		log.Error("unknown booking source", slog.String("source", req.Source))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("unknown booking source"))
		return
	}

	res, err := h.service.Book(r.Context(), sessionID, req.MemberID, req.Source)
	if err != nil {
		var denied *roster.DeniedError
		switch {
		case errors.As(err, &denied):
			log.Info("admission denied", slog.String("reason", denied.Reason),
				sl.Member(req.MemberID), sl.Session(sessionID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(denied.Reason))
		case errors.Is(err, repository.ErrAlreadyBooked):
			// Идемпотентный повтор: активная бронь уже есть, это не ошибка.
			log.Info("repeat booking attempt", sl.Member(req.MemberID), sl.Session(sessionID))
			render.JSON(w, r, response.OKWithNotice("already_booked", nil))
		case errors.Is(err, repository.ErrNotBookable):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("session is not accepting bookings"))
		case errors.Is(err, repository.ErrMemberNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("member not found"))
		default:
			log.Error("failed to book", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not book session"))
		}
		return
	}

	data := map[string]any{
		"entry_id": res.Entry.ID,
		"state":    res.Entry.State,
	}
	if res.Waitlisted {
		render.JSON(w, r, response.OKWithNotice("waitlisted", data))
		return
	}
	render.JSON(w, r, response.OKWithData(data))
}
