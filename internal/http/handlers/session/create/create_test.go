package create

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
	"github.com/magabrotheeeer/dojo-scheduler/internal/storage/repository"
)

// Мок сервиса жизненного цикла занятий
type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Create(ctx context.Context, session models.Session) (int64, error) {
	args := m.Called(ctx, session)
	return args.Get(0).(int64), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestCreateHandler_ServeHTTP(t *testing.T) {
	serviceMock := new(ServiceMock)
	logger := newNoopLogger()

	handler := New(logger, serviceMock)

	startAt := time.Date(2026, 3, 6, 18, 30, 0, 0, time.UTC)
	validBody := Request{
		TemplateID:      7,
		StartAt:         startAt,
		DurationMinutes: 60,
		Capacity:        12,
	}

	tests := []struct {
		name           string
		requestBody    interface{}
		mockID         int64
		mockErr        error
		wantStatusCode int
		wantData       map[string]any
		wantError      string
		wantStatus     string
	}{
		{
			name:           "valid manual session",
			requestBody:    validBody,
			mockID:         77,
			wantStatusCode: http.StatusOK,
			wantData: map[string]any{
				"session_id": float64(77),
				"state":      models.SessionDraft,
			},
			wantStatus: "OK",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
			wantStatus:     "Error",
		},
		{
			name: "validation error - missing template_id",
			requestBody: Request{
				StartAt:         startAt,
				DurationMinutes: 60,
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field TemplateID is a required field",
			wantStatus:     "Error",
		},
		{
			name:           "template not found",
			requestBody:    validBody,
			mockErr:        repository.ErrTemplateNotFound,
			wantStatusCode: http.StatusNotFound,
			wantError:      "class template not found",
			wantStatus:     "Error",
		},
		{
			name:           "storage error",
			requestBody:    validBody,
			mockErr:        errors.New("connection refused"),
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "could not create session",
			wantStatus:     "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock.ExpectedCalls = nil
			serviceMock.Calls = nil

			if tt.mockID != 0 || tt.mockErr != nil {
				serviceMock.On("Create", mock.Anything, mock.MatchedBy(func(s models.Session) bool {
					return s.TemplateID == validBody.TemplateID &&
						s.StartAt.Equal(startAt) &&
						s.EndAt.Equal(startAt.Add(time.Hour)) &&
						s.Capacity == validBody.Capacity
				})).Return(tt.mockID, tt.mockErr).Once()
			}

			var bodyBytes []byte
			var err error
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				bodyBytes, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatal(err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(bodyBytes))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))

			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			err = json.NewDecoder(rec.Body).Decode(&got)
			assert.NoError(t, err)

			assert.Equal(t, tt.wantStatus, got["status"])

			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			}
			if tt.wantData != nil {
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				for k, v := range tt.wantData {
					assert.Equal(t, v, data[k])
				}
			}

			serviceMock.AssertExpectations(t)
		})
	}
}
