package session

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

func (m *RepoMock) CreateSession(ctx context.Context, session models.Session) (int64, error) {
	args := m.Called(ctx, session)
	return args.Get(0).(int64), args.Error(1)
}
func (m *RepoMock) ReadSession(ctx context.Context, id int64) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}
func (m *RepoMock) TransitionSession(ctx context.Context, id int64, from, to string) error {
	return m.Called(ctx, id, from, to).Error(0)
}
func (m *RepoMock) CancelSession(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *RepoMock) ListSessionsForDate(ctx context.Context, date time.Time) ([]*models.SessionSummary, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SessionSummary), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestSessionService_Lifecycle(t *testing.T) {
	tests := []struct {
		name string
		call func(svc *Service, ctx context.Context) error
		from string
		to   string
	}{
		{
			name: "publish",
			call: func(svc *Service, ctx context.Context) error { return svc.Publish(ctx, 1) },
			from: models.SessionDraft,
			to:   models.SessionOpen,
		},
		{
			name: "start",
			call: func(svc *Service, ctx context.Context) error { return svc.Start(ctx, 1) },
			from: models.SessionOpen,
			to:   models.SessionInProgress,
		},
		{
			name: "finish",
			call: func(svc *Service, ctx context.Context) error { return svc.Finish(ctx, 1) },
			from: models.SessionInProgress,
			to:   models.SessionDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			repo.On("TransitionSession", mock.Anything, int64(1), tt.from, tt.to).Return(nil).Once()

			svc := New(repo, newNoopLogger())
			require.NoError(t, tt.call(svc, context.Background()))
			repo.AssertExpectations(t)
		})
	}
}

func TestSessionService_Create_ForcesDraft(t *testing.T) {
	startAt := time.Date(2026, 3, 6, 18, 30, 0, 0, time.UTC)

	repo := new(RepoMock)
	repo.On("CreateSession", mock.Anything, mock.MatchedBy(func(s models.Session) bool {
		return s.State == models.SessionDraft &&
			!s.FromRecurring &&
			s.SessionDate.Equal(time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC))
	})).Return(int64(42), nil).Once()

	svc := New(repo, newNoopLogger())
	id, err := svc.Create(context.Background(), models.Session{
		TemplateID: 7,
		StartAt:    startAt,
		EndAt:      startAt.Add(time.Hour),
		Capacity:   10,
		State:      models.SessionOpen,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	repo.AssertExpectations(t)
}

func TestSessionService_Start_InvalidFromDone(t *testing.T) {
	repo := new(RepoMock)
	repo.On("TransitionSession", mock.Anything, int64(1),
		models.SessionOpen, models.SessionInProgress).
		Return(repository.ErrInvalidTransition).Once()

	svc := New(repo, newNoopLogger())
	err := svc.Start(context.Background(), 1)

	require.ErrorIs(t, err, repository.ErrInvalidTransition)
}

func TestSessionService_ListToday_UsesClock(t *testing.T) {
	fixedNow := time.Date(2026, 3, 4, 15, 45, 0, 0, time.UTC)
	today := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	repo := new(RepoMock)
	repo.On("ListSessionsForDate", mock.Anything, today).Return([]*models.SessionSummary{
		{ID: 1, Name: "Judo Beginners", State: models.SessionOpen, Capacity: 12, BookedCount: 5, SpotsLeft: 7},
	}, nil).Once()

	svc := New(repo, newNoopLogger())
	svc.now = func() time.Time { return fixedNow }

	sessions, err := svc.ListToday(context.Background())

	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Judo Beginners", sessions[0].Name)
	repo.AssertExpectations(t)
}
