package subscription

import "context"

type Repository interface {
	ListActiveByMember(ctx context.Context, memberID int) ([]SubscriptionWithAllocations, error)
	CreateFromPlan(ctx context.Context, memberID, planID int) (*SubscriptionWithAllocations, error)
}
