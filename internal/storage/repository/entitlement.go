package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
)

// GetActiveEntitlements возвращает права доступа участника: по одному
// элементу на каждую активную подписку с лимитами тарифа и списком
// разрешённых курсов. Пустой результат означает отсутствие активной
// подписки.
func (s *Storage) GetActiveEntitlements(ctx context.Context, memberID string) ([]models.Entitlement, error) {
	const op = "storage.GetActiveEntitlements"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT ms.id, p.id, p.name, p.weekly_cap, p.period_cap,
		        ms.period_start, ms.next_billing_date
		 FROM member_subscriptions ms
		 JOIN subscription_plans p ON p.id = ms.plan_id
		 WHERE ms.member_id = $1 AND ms.state = 'active'
		 ORDER BY ms.id`,
		memberID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ents []models.Entitlement
	for rows.Next() {
		var e models.Entitlement
		err := rows.Scan(&e.SubscriptionID, &e.PlanID, &e.PlanName,
			&e.WeeklyCap, &e.PeriodCap, &e.PeriodStart, &e.NextBillingDate)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ents = append(ents, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range ents {
		courseRows, err := s.DB.QueryContext(ctx,
			`SELECT course_id FROM plan_courses WHERE plan_id = $1 ORDER BY course_id`,
			ents[i].PlanID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		for courseRows.Next() {
			var courseID int64
			if err := courseRows.Scan(&courseID); err != nil {
				_ = courseRows.Close()
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			ents[i].AllowedCourseIDs = append(ents[i].AllowedCourseIDs, courseID)
		}
		if err := courseRows.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := courseRows.Close(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return ents, nil
}
