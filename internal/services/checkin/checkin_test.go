package checkin

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

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CheckIn(ctx context.Context, sessionID int64, memberID, source string, allowWalkIn bool, now time.Time) (*models.CheckInResult, error) {
	args := m.Called(ctx, sessionID, memberID, source, allowWalkIn, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckInResult), args.Error(1)
}
func (m *RepoMock) RemoveAttendance(ctx context.Context, factID int64) error {
	return m.Called(ctx, factID).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

const memberID = "5f0c6b2e-7a4f-4ac0-a707-46a1cbbd05f4"

func TestCheckInService_CheckIn(t *testing.T) {
	fixedNow := time.Date(2026, 3, 4, 18, 35, 0, 0, time.UTC)
	fact := &models.AttendanceFact{ID: 1, SessionID: 5, MemberID: memberID, CheckinAt: fixedNow}

	tests := []struct {
		name        string
		allowWalkIn bool
		setupMocks  func(r *RepoMock)
		wantAlready bool
		wantWalkIn  bool
		wantErr     error
	}{
		{
			name:        "booked member checked in",
			allowWalkIn: true,
			setupMocks: func(r *RepoMock) {
				r.On("CheckIn", mock.Anything, int64(5), memberID, models.SourceKiosk, true, fixedNow).
					Return(&models.CheckInResult{Fact: fact}, nil).Once()
			},
		},
		{
			name:        "repeat check-in is a no-op",
			allowWalkIn: true,
			setupMocks: func(r *RepoMock) {
				r.On("CheckIn", mock.Anything, int64(5), memberID, models.SourceKiosk, true, fixedNow).
					Return(&models.CheckInResult{Fact: fact, AlreadyCheckedIn: true}, nil).Once()
			},
			wantAlready: true,
		},
		{
			name:        "walk-in synthesized",
			allowWalkIn: true,
			setupMocks: func(r *RepoMock) {
				r.On("CheckIn", mock.Anything, int64(5), memberID, models.SourceKiosk, true, fixedNow).
					Return(&models.CheckInResult{Fact: fact, WalkIn: true}, nil).Once()
			},
			wantWalkIn: true,
		},
		{
			name:        "walk-in rejected when disabled",
			allowWalkIn: false,
			setupMocks: func(r *RepoMock) {
				r.On("CheckIn", mock.Anything, int64(5), memberID, models.SourceKiosk, false, fixedNow).
					Return(nil, repository.ErrNotBooked).Once()
			},
			wantErr: repository.ErrNotBooked,
		},
		{
			name:        "cancelled session rejected",
			allowWalkIn: true,
			setupMocks: func(r *RepoMock) {
				r.On("CheckIn", mock.Anything, int64(5), memberID, models.SourceKiosk, true, fixedNow).
					Return(nil, repository.ErrNotBookable).Once()
			},
			wantErr: repository.ErrNotBookable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setupMocks(repo)

			svc := New(repo, tt.allowWalkIn, newNoopLogger())
			svc.now = func() time.Time { return fixedNow }

			res, err := svc.CheckIn(context.Background(), 5, memberID, models.SourceKiosk)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAlready, res.AlreadyCheckedIn)
			assert.Equal(t, tt.wantWalkIn, res.WalkIn)
			repo.AssertExpectations(t)
		})
	}
}

func TestCheckInService_RemoveAttendance(t *testing.T) {
	repo := new(RepoMock)
	repo.On("RemoveAttendance", mock.Anything, int64(3)).Return(nil).Once()

	svc := New(repo, true, newNoopLogger())
	require.NoError(t, svc.RemoveAttendance(context.Background(), 3))
	repo.AssertExpectations(t)
}
