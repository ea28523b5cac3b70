package subscription

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(database *sqlx.DB) Repository {
	return &repository{db: database}
}

func (r *repository) ListActiveByMember(ctx context.Context, memberID int) ([]SubscriptionWithAllocations, error) {
	var subs []Subscription
	err := r.db.SelectContext(ctx, &subs, `
		SELECT id, member_id, plan_id, start_date, end_date, status, created_at
		FROM subscriptions
		WHERE member_id = $1
		  AND status = 'active'
		  AND start_date <= NOW()
		  AND end_date >= NOW()
		ORDER BY end_date
	`, memberID)
	if err != nil {
		return nil, err
	}

	out := make([]SubscriptionWithAllocations, 0, len(subs))
	for _, sub := range subs {
		var allocations []GroupSessionAllocation
		err := r.db.SelectContext(ctx, &allocations, `
			SELECT id, subscription_id, group_id, sessions_remaining, total_sessions
			FROM group_session_allocations
			WHERE subscription_id = $1
			ORDER BY id
		`, sub.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, SubscriptionWithAllocations{Subscription: sub, Allocations: allocations})
	}

	return out, nil
}

// CreateFromPlan instantiates a subscription and its group allocations
// from the plan template in one transaction.
func (r *repository) CreateFromPlan(ctx context.Context, memberID, planID int) (*SubscriptionWithAllocations, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var plan Plan
	err = tx.GetContext(ctx, &plan, `
		SELECT id, name, price_cents, duration_months
		FROM plans
		WHERE id = $1
	`, planID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	endDate := now.AddDate(0, plan.DurationMonths, 0)

	var sub Subscription
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO subscriptions (member_id, plan_id, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, 'active')
		RETURNING id, member_id, plan_id, start_date, end_date, status, created_at
	`, memberID, planID, now, endDate).StructScan(&sub)
	if err != nil {
		return nil, err
	}

	var templates []struct {
		GroupID      int `db:"group_id"`
		SessionCount int `db:"session_count"`
	}
	err = tx.SelectContext(ctx, &templates, `
		SELECT group_id, session_count
		FROM plan_group_sessions
		WHERE plan_id = $1
		ORDER BY group_id
	`, planID)
	if err != nil {
		return nil, err
	}

	allocations := make([]GroupSessionAllocation, 0, len(templates))
	for _, tpl := range templates {
		var alloc GroupSessionAllocation
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO group_session_allocations (subscription_id, group_id, sessions_remaining, total_sessions)
			VALUES ($1, $2, $3, $3)
			RETURNING id, subscription_id, group_id, sessions_remaining, total_sessions
		`, sub.ID, tpl.GroupID, tpl.SessionCount).StructScan(&alloc)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, alloc)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &SubscriptionWithAllocations{Subscription: sub, Allocations: allocations}, nil
}
