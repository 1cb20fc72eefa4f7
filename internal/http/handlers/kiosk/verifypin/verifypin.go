// Package verifypin реализует HTTP-обработчик проверки PIN-кода киоска.
// Киоск работает без персональной авторизации; разблокировка экрана
// персонала подтверждается PIN-кодом, хэш которого задан в конфигурации.
package verifypin

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/dojo-scheduler/internal/http/response"
	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/pin"
	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/sl"
)

// Request — тело запроса с введённым PIN-кодом.
type Request struct {
	PIN string `json:"pin" validate:"required"`
}

// Handler управляет HTTP-запросами на проверку PIN-кода.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	pinHash  string              // bcrypt-хэш PIN-кода из конфигурации
	validate *validator.Validate // Валидатор структуры входящих данных
}

// New создает новый Handler с переданным логгером и хэшем PIN-кода.
func New(log *slog.Logger, pinHash string) *Handler {
	return &Handler{
		log:      log,
		pinHash:  pinHash,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Проверить PIN-код киоска
// @Description Сверяет введённый PIN с bcrypt-хэшем из конфигурации сервиса.
// @Tags Kiosk
// @Accept  json
// @Produce  json
// @Param request body Request true "PIN-код"
// @Success 200 {object} response.Response "PIN верен"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 403 {object} response.ErrorResponse "Неверный PIN"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /kiosk/verify-pin [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.kiosk.verifypin"
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

	if err := pin.Compare(h.pinHash, req.PIN); err != nil {
		log.Info("kiosk pin rejected")
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("invalid pin"))
		return
	}

	render.JSON(w, r, response.OK())
}
