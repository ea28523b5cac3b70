package subscription

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

type Subscription struct {
	ID        int       `db:"id" json:"id"`
	MemberID  int       `db:"member_id" json:"member_id"`
	PlanID    int       `db:"plan_id" json:"plan_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GroupSessionAllocation is a subscription's session budget for one
// group. sessions_remaining is written only by the registration ledger.
type GroupSessionAllocation struct {
	ID                int `db:"id" json:"id"`
	SubscriptionID    int `db:"subscription_id" json:"subscription_id"`
	GroupID           int `db:"group_id" json:"group_id"`
	SessionsRemaining int `db:"sessions_remaining" json:"sessions_remaining"`
	TotalSessions     int `db:"total_sessions" json:"total_sessions"`
}

type SubscriptionWithAllocations struct {
	Subscription
	Allocations []GroupSessionAllocation `json:"allocations"`
}

type Plan struct {
	ID         int    `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	PriceCents int64  `db:"price_cents" json:"price_cents"`
	// Months the subscription runs from its start date.
	DurationMonths int `db:"duration_months" json:"duration_months"`
}

type CreateSubscriptionRequest struct {
	MemberID int `json:"member_id" binding:"required"`
	PlanID   int `json:"plan_id" binding:"required"`
}
