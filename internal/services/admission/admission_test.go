package admission

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
	"github.com/magabrotheeeer/dojo-scheduler/internal/storage/repository"
)

type SessionReaderMock struct{ mock.Mock }

func (m *SessionReaderMock) ReadSession(ctx context.Context, id int64) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

type CourseReaderMock struct{ mock.Mock }

func (m *CourseReaderMock) GetCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}
func (m *CourseReaderMock) IsCourseMember(ctx context.Context, courseID int64, memberID string) (bool, error) {
	args := m.Called(ctx, courseID, memberID)
	return args.Bool(0), args.Error(1)
}

type EntitlementProviderMock struct{ mock.Mock }

func (m *EntitlementProviderMock) ActiveEntitlements(ctx context.Context, memberID string) ([]models.Entitlement, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Entitlement), args.Error(1)
}
func (m *EntitlementProviderMock) MemberRank(ctx context.Context, memberID string) (string, error) {
	args := m.Called(ctx, memberID)
	return args.String(0), args.Error(1)
}
func (m *EntitlementProviderMock) CountRegistered(ctx context.Context, memberID string, from, to time.Time, courseIDs []int64) (int, error) {
	args := m.Called(ctx, memberID, from, to, courseIDs)
	return args.Int(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

const memberID = "5f0c6b2e-7a4f-4ac0-a707-46a1cbbd05f4"

func courseID(id int64) *int64 { return &id }

func TestAdmissionService_CanAdmit(t *testing.T) {
	// Среда и четверг одной недели, для проверки недельного лимита.
	wednesday := time.Date(2026, 3, 4, 18, 30, 0, 0, time.UTC)

	openSession := &models.Session{
		ID:      1,
		StartAt: wednesday,
		EndAt:   wednesday.Add(time.Hour),
		State:   models.SessionOpen,
	}
	courseSession := &models.Session{
		ID:       2,
		CourseID: courseID(10),
		StartAt:  wednesday,
		EndAt:    wednesday.Add(time.Hour),
		State:    models.SessionOpen,
	}

	unlimited := []models.Entitlement{{SubscriptionID: 1, PlanID: 1, PlanName: "unlimited"}}

	tests := []struct {
		name        string
		sessionID   int64
		setupMocks  func(s *SessionReaderMock, c *CourseReaderMock, e *EntitlementProviderMock)
		wantAllowed bool
		wantReason  string
	}{
		{
			name:      "allowed without course",
			sessionID: 1,
			setupMocks: func(s *SessionReaderMock, _ *CourseReaderMock, e *EntitlementProviderMock) {
				s.On("ReadSession", mock.Anything, int64(1)).Return(openSession, nil).Once()
				e.On("ActiveEntitlements", mock.Anything, memberID).Return(unlimited, nil).Once()
			},
			wantAllowed: true,
		},
		{
			name:      "session not found",
			sessionID: 99,
			setupMocks: func(s *SessionReaderMock, _ *CourseReaderMock, _ *EntitlementProviderMock) {
				s.On("ReadSession", mock.Anything, int64(99)).
					Return(nil, repository.ErrSessionNotFound).Once()
			},
			wantReason: models.ReasonSessionNotFound,
		},
		{
			name:      "session cancelled",
			sessionID: 3,
			setupMocks: func(s *SessionReaderMock, _ *CourseReaderMock, _ *EntitlementProviderMock) {
				s.On("ReadSession", mock.Anything, int64(3)).Return(&models.Session{
					ID: 3, StartAt: wednesday, State: models.SessionCancelled,
				}, nil).Once()
			},
			wantReason: models.ReasonSessionCancelled,
		},
		{
			name:      "rank below course minimum",
			sessionID: 2,
			setupMocks: func(s *SessionReaderMock, c *CourseReaderMock, e *EntitlementProviderMock) {
				s.On("ReadSession", mock.Anything, int64(2)).Return(courseSession, nil).Once()
				c.On("GetCourse", mock.Anything, int64(10)).Return(&models.Course{
					ID: 10, MinRank: "blue", OpenEnrollment: true,
				}, nil).Once()
				e.On("MemberRank", mock.Anything, memberID).Return("yellow", nil).Once()
			},
			wantReason: models.ReasonRankTooLow,
		},
		{
			name:      "not on closed course roster",
			sessionID: 2,
			setupMocks: func(s *SessionReaderMock, c *CourseReaderMock, e *EntitlementProviderMock) {
				s.On("ReadSession", mock.Anything, int64(2)).Return(courseSession, nil).Once()
				c.On("GetCourse", mock.Anything, int64(10)).Return(&models.Course{
					ID: 10, OpenEnrollment: false,
				}, nil).Once()
				c.On("IsCourseMember", mock.Anything, int64(10), memberID).Return(false, nil).Once()
			},
			wantReason: models.ReasonNotOnCourseRoster,
		},
		{
			name:      "no active subscription",
			sessionID: 1,
			setupMocks: func(s *SessionReaderMock, _ *CourseReaderMock, e *EntitlementProviderMock) {
				s.On("ReadSession", mock.Anything, int64(1)).Return(openSession, nil).Once()
				e.On("ActiveEntitlements", mock.Anything, memberID).
					Return([]models.Entitlement{}, nil).Once()
			},
			wantReason: models.ReasonNoActiveSubscription,
		},
		{
			name:      "course not covered by plan",
			sessionID: 2,
			setupMocks: func(s *SessionReaderMock, c *CourseReaderMock, e *EntitlementProviderMock) {
				s.On("ReadSession", mock.Anything, int64(2)).Return(courseSession, nil).Once()
				c.On("GetCourse", mock.Anything, int64(10)).Return(&models.Course{
					ID: 10, OpenEnrollment: true,
				}, nil).Once()
				e.On("ActiveEntitlements", mock.Anything, memberID).Return([]models.Entitlement{
					{SubscriptionID: 1, PlanID: 1, AllowedCourseIDs: []int64{77}},
				}, nil).Once()
			},
			wantReason: models.ReasonCourseNotAllowed,
		},
		{
			name:      "weekly cap reached",
			sessionID: 1,
			setupMocks: func(s *SessionReaderMock, _ *CourseReaderMock, e *EntitlementProviderMock) {
				s.On("ReadSession", mock.Anything, int64(1)).Return(openSession, nil).Once()
				e.On("ActiveEntitlements", mock.Anything, memberID).Return([]models.Entitlement{
					{SubscriptionID: 1, PlanID: 1, WeeklyCap: 2},
				}, nil).Once()
				e.On("CountRegistered", mock.Anything, memberID,
					mock.Anything, mock.Anything, mock.Anything).Return(2, nil).Once()
			},
			wantReason: models.ReasonWeeklyCapReached,
		},
		{
			name:      "any passing plan suffices",
			sessionID: 1,
			setupMocks: func(s *SessionReaderMock, _ *CourseReaderMock, e *EntitlementProviderMock) {
				s.On("ReadSession", mock.Anything, int64(1)).Return(openSession, nil).Once()
				e.On("ActiveEntitlements", mock.Anything, memberID).Return([]models.Entitlement{
					{SubscriptionID: 1, PlanID: 1, WeeklyCap: 1},
					{SubscriptionID: 2, PlanID: 2},
				}, nil).Once()
				// Первый план упирается в недельный лимит, второй безлимитный.
				e.On("CountRegistered", mock.Anything, memberID,
					mock.Anything, mock.Anything, mock.Anything).Return(1, nil).Once()
			},
			wantAllowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := new(SessionReaderMock)
			courses := new(CourseReaderMock)
			ents := new(EntitlementProviderMock)
			tt.setupMocks(sessions, courses, ents)

			svc := New(sessions, courses, ents, newNoopLogger())
			eval, err := svc.CanAdmit(context.Background(), tt.sessionID, memberID)

			require.NoError(t, err)
			assert.Equal(t, tt.wantAllowed, eval.Decision.Allowed)
			assert.Equal(t, tt.wantReason, eval.Decision.Reason)

			sessions.AssertExpectations(t)
			courses.AssertExpectations(t)
			ents.AssertExpectations(t)
		})
	}
}

func TestAdmissionService_CanAdmit_WeeklyWindowFollowsSessionWeek(t *testing.T) {
	// Сессия в следующую среду: окно лимита должно считаться
	// по неделе сессии, а не по текущей.
	nextWednesday := time.Date(2026, 3, 11, 18, 30, 0, 0, time.UTC)
	weekStart := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	weekEnd := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

	sessions := new(SessionReaderMock)
	ents := new(EntitlementProviderMock)
	sessions.On("ReadSession", mock.Anything, int64(5)).Return(&models.Session{
		ID: 5, StartAt: nextWednesday, State: models.SessionOpen,
	}, nil).Once()
	ents.On("ActiveEntitlements", mock.Anything, memberID).Return([]models.Entitlement{
		{SubscriptionID: 1, PlanID: 1, WeeklyCap: 3},
	}, nil).Once()
	ents.On("CountRegistered", mock.Anything, memberID, weekStart, weekEnd,
		mock.Anything).Return(0, nil).Once()

	svc := New(sessions, new(CourseReaderMock), ents, newNoopLogger())
	eval, err := svc.CanAdmit(context.Background(), 5, memberID)

	require.NoError(t, err)
	assert.True(t, eval.Decision.Allowed)
	ents.AssertExpectations(t)
}
