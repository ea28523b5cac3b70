package course

import (
	"context"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, id int) (*Instance, error)
	GetWithClassByID(ctx context.Context, id int) (*InstanceWithClass, error)
	ListUpcoming(ctx context.Context, from time.Time) ([]InstanceWithClass, error)
	ListBySchedule(ctx context.Context, scheduleID int) ([]Instance, error)
	ReplaceForSchedule(ctx context.Context, scheduleID int, instances []Instance) ([]Instance, error)
	SetActiveForSchedule(ctx context.Context, scheduleID int, active bool) (int, error)
	DeleteInstance(ctx context.Context, id int) error
	CancelInstance(ctx context.Context, id int) (*InstanceWithClass, []Attendee, error)
	SweepStatuses(ctx context.Context, now time.Time) (started, completed int64, err error)
}
