package checkin

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

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
	"github.com/magabrotheeeer/dojo-scheduler/internal/storage/repository"
)

// Мок сервиса отметки посещения
type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) CheckIn(ctx context.Context, sessionID int64, memberID, source string) (*models.CheckInResult, error) {
	args := m.Called(ctx, sessionID, memberID, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckInResult), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

const memberID = "5f0c6b2e-7a4f-4ac0-a707-46a1cbbd05f4"

func TestCheckInHandler_ServeHTTP(t *testing.T) {
	serviceMock := new(ServiceMock)
	logger := newNoopLogger()

	handler := New(logger, serviceMock)

	checkinAt := time.Date(2026, time.March, 11, 18, 35, 0, 0, time.UTC)

	tests := []struct {
		name           string
		requestBody    interface{}
		mockResult     *models.CheckInResult
		mockErr        error
		wantStatusCode int
		wantNotice     string
		wantError      string
		wantStatus     string
	}{
		{
			name: "valid check-in",
			requestBody: models.CheckInRequest{
				MemberID: memberID,
				Source:   models.SourceKiosk,
			},
			mockResult: &models.CheckInResult{
				Fact: &models.AttendanceFact{ID: 11, SessionID: 7, MemberID: memberID, CheckinAt: checkinAt},
			},
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name: "repeat check-in is idempotent",
			requestBody: models.CheckInRequest{
				MemberID: memberID,
				Source:   models.SourceKiosk,
			},
			mockResult: &models.CheckInResult{
				Fact:             &models.AttendanceFact{ID: 11, SessionID: 7, MemberID: memberID, CheckinAt: checkinAt},
				AlreadyCheckedIn: true,
			},
			wantStatusCode: http.StatusOK,
			wantNotice:     "already_checked_in",
			wantStatus:     "OK",
		},
		{
			name: "walk-in without booking",
			requestBody: models.CheckInRequest{
				MemberID: memberID,
				Source:   models.SourceStaff,
			},
			mockResult: &models.CheckInResult{
				Fact:   &models.AttendanceFact{ID: 12, SessionID: 7, MemberID: memberID, CheckinAt: checkinAt},
				WalkIn: true,
			},
			wantStatusCode: http.StatusOK,
			wantNotice:     "walk_in",
			wantStatus:     "OK",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
			wantStatus:     "Error",
		},
		{
			name: "validation error - missing member_id",
			requestBody: models.CheckInRequest{
				Source: models.SourceKiosk,
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field MemberID is a required field",
			wantStatus:     "Error",
		},
		{
			name: "session cancelled",
			requestBody: models.CheckInRequest{
				MemberID: memberID,
				Source:   models.SourceKiosk,
			},
			mockErr:        repository.ErrNotBookable,
			wantStatusCode: http.StatusConflict,
			wantError:      "session is cancelled",
			wantStatus:     "Error",
		},
		{
			name: "walk-ins disabled",
			requestBody: models.CheckInRequest{
				MemberID: memberID,
				Source:   models.SourceKiosk,
			},
			mockErr:        repository.ErrNotBooked,
			wantStatusCode: http.StatusConflict,
			wantError:      "member has no booking and walk-ins are disabled",
			wantStatus:     "Error",
		},
		{
			name: "storage error",
			requestBody: models.CheckInRequest{
				MemberID: memberID,
				Source:   models.SourceKiosk,
			},
			mockErr:        errors.New("connection refused"),
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "could not check in",
			wantStatus:     "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock.ExpectedCalls = nil
			serviceMock.Calls = nil

			if tt.mockResult != nil || tt.mockErr != nil {
				serviceMock.On("CheckIn", mock.Anything, int64(7), memberID, mock.Anything).
					Return(tt.mockResult, tt.mockErr).Once()
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

			req := httptest.NewRequest(http.MethodPost, "/sessions/7/checkin", bytes.NewReader(bodyBytes))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "7")
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

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
			if tt.wantNotice != "" {
				assert.Equal(t, tt.wantNotice, got["notice"])
			}
			if tt.wantStatusCode == http.StatusOK {
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				assert.NotNil(t, data["fact_id"])
			}

			serviceMock.AssertExpectations(t)
		})
	}
}
