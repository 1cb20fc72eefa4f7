// Package syncroster реализует HTTP-обработчик синхронизации ростера
// занятия с участниками привязанного курса.
package syncroster

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

// Handler управляет HTTP-запросами на синхронизацию ростера.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики ростера
}

// Service описывает интерфейс бизнес-логики синхронизации ростера.
type Service interface {
	SyncRoster(ctx context.Context, sessionID int64) (int, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Синхронизировать ростер занятия
// @Description Добавляет в ростер участников курса, у которых ещё нет активной записи. Существующие записи не трогаются.
// @Tags Sessions
// @Produce  json
// @Param id path int true "ID занятия"
// @Success 200 {object} response.Response "Число добавленных записей"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Занятие не найдено"
// @Failure 409 {object} response.ErrorResponse "Занятие завершено или отменено"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /sessions/{id}/sync-roster [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.syncroster"
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

	added, err := h.service.SyncRoster(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("session not found"))
		case errors.Is(err, repository.ErrNotBookable):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("session is finished or cancelled"))
		default:
			log.Error("failed to sync roster", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not sync roster"))
		}
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"added": added,
	}))
}
