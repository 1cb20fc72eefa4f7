package entitlement

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

func (m *RepoMock) GetActiveEntitlements(ctx context.Context, memberID string) ([]models.Entitlement, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Entitlement), args.Error(1)
}
func (m *RepoMock) GetMemberRank(ctx context.Context, memberID string) (string, error) {
	args := m.Called(ctx, memberID)
	return args.String(0), args.Error(1)
}
func (m *RepoMock) CountRegistered(ctx context.Context, memberID string, from, to time.Time, courseIDs []int64) (int, error) {
	args := m.Called(ctx, memberID, from, to, courseIDs)
	return args.Int(0), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}
func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}
func (m *CacheMock) Invalidate(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

const memberID = "5f0c6b2e-7a4f-4ac0-a707-46a1cbbd05f4"

func TestEntitlementService_ActiveEntitlements_CacheMissReadsStorage(t *testing.T) {
	ents := []models.Entitlement{{SubscriptionID: 1, PlanID: 2, PlanName: "basic", WeeklyCap: 2}}

	repo := new(RepoMock)
	c := new(CacheMock)
	c.On("Get", mock.Anything, "entitlements:"+memberID, mock.Anything).Return(false, nil).Once()
	repo.On("GetActiveEntitlements", mock.Anything, memberID).Return(ents, nil).Once()
	c.On("Set", mock.Anything, "entitlements:"+memberID, ents, cacheTTL).Return(nil).Once()

	svc := New(repo, c, newNoopLogger())
	got, err := svc.ActiveEntitlements(context.Background(), memberID)

	require.NoError(t, err)
	assert.Equal(t, ents, got)
	repo.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestEntitlementService_ActiveEntitlements_CacheErrorFallsThrough(t *testing.T) {
	ents := []models.Entitlement{{SubscriptionID: 1, PlanID: 2}}

	repo := new(RepoMock)
	c := new(CacheMock)
	c.On("Get", mock.Anything, "entitlements:"+memberID, mock.Anything).
		Return(false, errors.New("redis down")).Once()
	repo.On("GetActiveEntitlements", mock.Anything, memberID).Return(ents, nil).Once()
	c.On("Set", mock.Anything, "entitlements:"+memberID, ents, cacheTTL).
		Return(errors.New("redis down")).Once()

	svc := New(repo, c, newNoopLogger())
	got, err := svc.ActiveEntitlements(context.Background(), memberID)

	require.NoError(t, err)
	assert.Equal(t, ents, got)
}

func TestEntitlementService_MemberRank_NoCache(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetMemberRank", mock.Anything, memberID).Return("blue", nil).Once()

	svc := New(repo, nil, newNoopLogger())
	rank, err := svc.MemberRank(context.Background(), memberID)

	require.NoError(t, err)
	assert.Equal(t, "blue", rank)
}

func TestEntitlementService_Invalidate(t *testing.T) {
	c := new(CacheMock)
	c.On("Invalidate", mock.Anything, "entitlements:"+memberID).Return(nil).Once()
	c.On("Invalidate", mock.Anything, "rank:"+memberID).Return(nil).Once()

	svc := New(new(RepoMock), c, newNoopLogger())
	svc.Invalidate(context.Background(), memberID)

	c.AssertExpectations(t)
}
