package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_GetActiveEntitlements(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	memberID := uuid.New().String()
	factory.CreateMember(t, memberID, "member", "white")

	unlimitedPlan := factory.CreatePlan(t, "Unlimited", 0, 0)
	limitedPlan := factory.CreatePlan(t, "Twice a week", 2, 8)

	courseID := factory.CreateCourse(t, "Fundamentals", "", true)
	_, err := storage.DB.Exec(`INSERT INTO plan_courses (plan_id, course_id) VALUES ($1, $2)`,
		limitedPlan, courseID)
	require.NoError(t, err)

	periodStart := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	nextBilling := periodStart.AddDate(0, 1, 0)
	factory.CreateSubscription(t, memberID, unlimitedPlan, periodStart, nextBilling)
	factory.CreateSubscription(t, memberID, limitedPlan, periodStart, nextBilling)

	// Приостановленная подписка не даёт прав
	_, err = storage.DB.Exec(`INSERT INTO member_subscriptions
		(member_id, plan_id, state, period_start, next_billing_date)
		VALUES ($1, $2, 'paused', $3, $4)`,
		memberID, unlimitedPlan, periodStart, nextBilling)
	require.NoError(t, err)

	ents, err := storage.GetActiveEntitlements(ctx, memberID)
	require.NoError(t, err)
	require.Len(t, ents, 2)

	assert.Equal(t, "Unlimited", ents[0].PlanName)
	assert.Equal(t, 0, ents[0].WeeklyCap)
	assert.Empty(t, ents[0].AllowedCourseIDs)

	assert.Equal(t, "Twice a week", ents[1].PlanName)
	assert.Equal(t, 2, ents[1].WeeklyCap)
	assert.Equal(t, 8, ents[1].PeriodCap)
	assert.Equal(t, []int64{courseID}, ents[1].AllowedCourseIDs)
	assert.True(t, ents[1].PeriodStart.Equal(periodStart))
	assert.True(t, ents[1].NextBillingDate.Equal(nextBilling))
}

func TestStorage_MemberLookups(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	memberID := uuid.New().String()
	factory.CreateMember(t, memberID, "member", "purple")

	rank, err := storage.GetMemberRank(ctx, memberID)
	require.NoError(t, err)
	assert.Equal(t, "purple", rank)

	_, err = storage.GetMemberRank(ctx, uuid.New().String())
	require.ErrorIs(t, err, ErrMemberNotFound)

	count, err := storage.GetAttendanceCount(ctx, memberID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStorage_CourseLookups(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	courseID := factory.CreateCourse(t, "Advanced", "blue", false)
	memberID := uuid.New().String()
	factory.CreateMember(t, memberID, "member", "blue")
	factory.AddCourseMember(t, courseID, memberID)

	course, err := storage.GetCourse(ctx, courseID)
	require.NoError(t, err)
	assert.Equal(t, "Advanced", course.Name)
	assert.Equal(t, "blue", course.MinRank)
	assert.False(t, course.OpenEnrollment)

	_, err = storage.GetCourse(ctx, 99999)
	require.ErrorIs(t, err, ErrCourseNotFound)

	isMember, err := storage.IsCourseMember(ctx, courseID, memberID)
	require.NoError(t, err)
	assert.True(t, isMember)

	err = storage.RemoveCourseMember(ctx, courseID, memberID)
	require.NoError(t, err)

	isMember, err = storage.IsCourseMember(ctx, courseID, memberID)
	require.NoError(t, err)
	assert.False(t, isMember)

	err = storage.RemoveCourseMember(ctx, courseID, memberID)
	require.ErrorIs(t, err, ErrEntryNotFound)
}
