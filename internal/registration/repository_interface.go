package registration

import (
	"context"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, id int) (*Registration, error)
	ListByMember(ctx context.Context, memberID int) ([]RegistrationWithCourse, error)
	// ListActiveOnDate returns the member's registered bookings on a
	// calendar date with their course time ranges.
	ListActiveOnDate(ctx context.Context, memberID int, date time.Time) ([]Overlap, error)
	MarkAbsent(ctx context.Context, registrationID int) error
}

// Ledger is the only component allowed to mutate current_participants
// and sessions_remaining, always inside one transaction.
type LedgerInterface interface {
	Reserve(ctx context.Context, p ReserveParams) (*Registration, error)
	Release(ctx context.Context, p ReleaseParams) (*ReleaseResult, error)
}

// Notifier queues booking lifecycle emails. Satisfied by
// notify.Service; a nil Notifier disables delivery. Queue failures
// never fail the booking.
type Notifier interface {
	SendRegistrationConfirmation(ctx context.Context, email, name, className, qrToken string, startAt time.Time) error
	SendCancellationNotice(ctx context.Context, email, name, className string, startAt time.Time, refunded bool) error
}
