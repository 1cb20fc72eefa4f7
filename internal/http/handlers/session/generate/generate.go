// Package generate реализует HTTP-обработчик ручного запуска генерации
// расписания. Обычно генерацию ведёт фоновый демон; ручной запуск нужен
// после правки шаблонов, чтобы не ждать следующего цикла.
package generate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/dojo-scheduler/internal/http/response"
	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/dojo-scheduler/internal/services/generator"
)

// Handler управляет HTTP-запросами на генерацию расписания.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис генерации расписания
}

// Service описывает интерфейс бизнес-логики генерации.
type Service interface {
	GenerateAll(ctx context.Context) (*generator.Summary, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Сгенерировать расписание
// @Description Разворачивает активные рекуррентные шаблоны в занятия на горизонт вперёд. Повторный запуск идемпотентен.
// @Tags Sessions
// @Produce  json
// @Success 200 {object} response.Response "Итог генерации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /sessions/generate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.generate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	summary, err := h.service.GenerateAll(r.Context())
	if err != nil {
		log.Error("failed to generate schedule", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not generate schedule"))
		return
	}

	render.JSON(w, r, response.OKWithData(summary))
}
