package checkin

import "context"

type Repository interface {
	// Validate marks the registration behind qrToken as attended and
	// records a checkin row. A token that was already validated
	// succeeds idempotently.
	Validate(ctx context.Context, qrToken string, staffID int) (*ValidateResult, error)
	// Unvalidate reverts a mistaken scan: deletes the checkin row and
	// puts the registration back to registered. Capacity and session
	// counters are untouched.
	Unvalidate(ctx context.Context, registrationID int) error
	ListByCourse(ctx context.Context, courseID int) ([]Checkin, error)
}
