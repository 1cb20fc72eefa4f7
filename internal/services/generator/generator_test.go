package generator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) ListActiveRecurringTemplates(ctx context.Context) ([]models.ClassTemplate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ClassTemplate), args.Error(1)
}
func (m *RepoMock) ListCourseMembers(ctx context.Context, courseID int64) ([]string, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
func (m *RepoMock) GenerateSessions(ctx context.Context, templateID int64, sessions []models.Session, members []string) (int, int, error) {
	args := m.Called(ctx, templateID, sessions, members)
	return args.Int(0), args.Int(1), args.Error(2)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func datePtr(t time.Time) *time.Time { return &t }

func TestExpandTemplate_MondayOnly(t *testing.T) {
	tmpl := models.ClassTemplate{
		ID:              1,
		MaxCapacity:     12,
		RecMon:          true,
		RecurrenceTime:  1110, // 18:30
		DurationMinutes: 90,
	}
	// Две недели начиная со вторника: внутри ровно два понедельника.
	from := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 13)

	sessions := ExpandTemplate(tmpl, from, to)

	require.Len(t, sessions, 2)
	assert.Equal(t, time.Date(2026, 3, 9, 18, 30, 0, 0, time.UTC), sessions[0].StartAt)
	assert.Equal(t, time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC), sessions[0].EndAt)
	assert.Equal(t, time.Date(2026, 3, 16, 18, 30, 0, 0, time.UTC), sessions[1].StartAt)
	for _, sess := range sessions {
		assert.Equal(t, int64(1), sess.TemplateID)
		assert.Equal(t, 12, sess.Capacity)
		assert.Equal(t, models.SessionOpen, sess.State)
		assert.True(t, sess.FromRecurring)
	}
}

func TestExpandTemplate_EffectiveRange(t *testing.T) {
	tmpl := models.ClassTemplate{
		ID:              2,
		RecWed:          true,
		RecurrenceTime:  600,
		RecurrenceStart: datePtr(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)),
		RecurrenceEnd:   datePtr(time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)),
	}
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 30)

	sessions := ExpandTemplate(tmpl, from, to)

	// Среды 4, 11, 18, 25 марта; диапазон шаблона оставляет 11 и 18.
	require.Len(t, sessions, 2)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), sessions[0].SessionDate)
	assert.Equal(t, time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC), sessions[1].SessionDate)
}

func TestExpandTemplate_NoActiveDays(t *testing.T) {
	tmpl := models.ClassTemplate{ID: 3, RecurrenceTime: 600}
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Empty(t, ExpandTemplate(tmpl, from, from.AddDate(0, 0, 60)))
}

func TestGeneratorService_GenerateAll(t *testing.T) {
	fixedNow := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	plain := models.ClassTemplate{ID: 1, RecMon: true, RecurrenceTime: 1110, RecurrenceActive: true}
	cID := int64(10)
	withCourse := models.ClassTemplate{
		ID: 2, CourseID: &cID, RecTue: true, RecurrenceTime: 600, RecurrenceActive: true,
	}

	repo := new(RepoMock)
	repo.On("ListActiveRecurringTemplates", mock.Anything).
		Return([]models.ClassTemplate{plain, withCourse}, nil).Once()
	repo.On("GenerateSessions", mock.Anything, int64(1), mock.Anything, []string(nil)).
		Return(2, 1, nil).Once()
	repo.On("ListCourseMembers", mock.Anything, cID).
		Return([]string{"member-a", "member-b"}, nil).Once()
	repo.On("GenerateSessions", mock.Anything, int64(2), mock.Anything, []string{"member-a", "member-b"}).
		Return(3, 0, nil).Once()

	svc := New(repo, 14, newNoopLogger())
	svc.now = func() time.Time { return fixedNow }

	summary, err := svc.GenerateAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Templates)
	assert.Equal(t, 5, summary.Created)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	repo.AssertExpectations(t)
}

func TestGeneratorService_GenerateAll_IsolatesTemplateFailures(t *testing.T) {
	fixedNow := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	broken := models.ClassTemplate{ID: 1, RecMon: true, RecurrenceTime: 600, RecurrenceActive: true}
	healthy := models.ClassTemplate{ID: 2, RecTue: true, RecurrenceTime: 600, RecurrenceActive: true}

	repo := new(RepoMock)
	repo.On("ListActiveRecurringTemplates", mock.Anything).
		Return([]models.ClassTemplate{broken, healthy}, nil).Once()
	repo.On("GenerateSessions", mock.Anything, int64(1), mock.Anything, []string(nil)).
		Return(0, 0, errors.New("deadlock detected")).Once()
	repo.On("GenerateSessions", mock.Anything, int64(2), mock.Anything, []string(nil)).
		Return(2, 0, nil).Once()

	svc := New(repo, 14, newNoopLogger())
	svc.now = func() time.Time { return fixedNow }

	summary, err := svc.GenerateAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Created)
	repo.AssertExpectations(t)
}
