package registration

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"wildenergy/internal/apperr"
	"wildenergy/internal/logger"
	"wildenergy/internal/metrics"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type ReserveParams struct {
	MemberID int
	CourseID int
	// AllocationID funds the registration; nil means no session is
	// consumed (guest or unfunded admin registration).
	AllocationID *int
	// Guest bumps the member's informational guest counter.
	Guest bool
	// AdminOverride lets the reservation exceed capacity. Logged and
	// flagged in the registration notes by the caller.
	AdminOverride bool
	QRToken       string
	Notes         string
}

type ReleaseParams struct {
	RegistrationID int
	// ForceRefund refunds the session regardless of the cutoff.
	ForceRefund bool
	// RefundCutoff is how long before the course start a cancellation
	// still refunds the session.
	RefundCutoff time.Duration
	Now          time.Time
}

type ReleaseResult struct {
	Registration *Registration `json:"registration"`
	Refunded     bool          `json:"refunded"`
}

// Ledger owns the (current_participants, sessions_remaining,
// registration-uniqueness) triple. Every mutation runs as one
// transaction with row-level locks; no other component writes these
// counters.
type Ledger struct {
	db *sqlx.DB
}

func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

type lockedInstance struct {
	ID                  int       `db:"id"`
	MaxParticipants     int       `db:"max_participants"`
	CurrentParticipants int       `db:"current_participants"`
	Status              string    `db:"status"`
	IsActive            bool      `db:"is_active"`
	StartAt             time.Time `db:"start_at"`
}

func (l *Ledger) Reserve(ctx context.Context, p ReserveParams) (*Registration, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var inst lockedInstance
	err = tx.QueryRowxContext(ctx, `
		SELECT id, max_participants, current_participants, status, is_active, start_at
		FROM course_instances
		WHERE id = $1
		FOR UPDATE
	`, p.CourseID).StructScan(&inst)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("course_not_found", "course instance not found")
		}
		return nil, translatePQ(err)
	}

	if !inst.IsActive || inst.Status == "cancelled" {
		return nil, apperr.State("course_not_bookable", "course instance is not bookable")
	}

	if inst.CurrentParticipants >= inst.MaxParticipants {
		if !p.AdminOverride {
			return nil, apperr.Conflict("course_full", "course is full")
		}
		logger.Warn("Capacity override",
			"course_id", p.CourseID,
			"member_id", p.MemberID,
			"current", inst.CurrentParticipants,
			"max", inst.MaxParticipants,
		)
		metrics.RecordCapacityOverride()
	}

	var reg Registration
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO registrations (member_id, course_id, allocation_id, status, qr_token, notes)
		VALUES ($1, $2, $3, 'registered', $4, $5)
		RETURNING `+registrationColumns+`
	`, p.MemberID, p.CourseID, p.AllocationID, p.QRToken, p.Notes).StructScan(&reg)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("already_registered", "member already has an active registration for this course")
		}
		return nil, translatePQ(err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE course_instances
		SET current_participants = current_participants + 1
		WHERE id = $1
	`, p.CourseID)
	if err != nil {
		return nil, translatePQ(err)
	}

	if p.AllocationID != nil {
		result, err := tx.ExecContext(ctx, `
			UPDATE group_session_allocations
			SET sessions_remaining = sessions_remaining - 1
			WHERE id = $1 AND sessions_remaining > 0
		`, *p.AllocationID)
		if err != nil {
			return nil, translatePQ(err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, apperr.Conflict("no_sessions_remaining", "no sessions remaining on the selected allocation")
		}
	}

	if p.Guest {
		_, err = tx.ExecContext(ctx, `
			UPDATE members
			SET guest_registrations = guest_registrations + 1
			WHERE id = $1
		`, p.MemberID)
		if err != nil {
			return nil, translatePQ(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, translatePQ(err)
	}

	return &reg, nil
}

// Release cancels a registered registration, frees its capacity slot
// and refunds the session only strictly before the cutoff (or when an
// admin forces the refund). Late cancellations forfeit the session.
func (l *Ledger) Release(ctx context.Context, p ReleaseParams) (*ReleaseResult, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var reg Registration
	err = tx.QueryRowxContext(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE id = $1
		FOR UPDATE
	`, p.RegistrationID).StructScan(&reg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("registration_not_found", "registration not found")
		}
		return nil, translatePQ(err)
	}

	if reg.Status != StatusRegistered {
		return nil, apperr.State("not_registered", "only registered registrations can be cancelled")
	}

	var inst lockedInstance
	err = tx.QueryRowxContext(ctx, `
		SELECT id, max_participants, current_participants, status, is_active, start_at
		FROM course_instances
		WHERE id = $1
		FOR UPDATE
	`, reg.CourseID).StructScan(&inst)
	if err != nil {
		return nil, translatePQ(err)
	}

	err = tx.QueryRowxContext(ctx, `
		UPDATE registrations
		SET status = 'cancelled'
		WHERE id = $1
		RETURNING `+registrationColumns+`
	`, p.RegistrationID).StructScan(&reg)
	if err != nil {
		return nil, translatePQ(err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE course_instances
		SET current_participants = GREATEST(current_participants - 1, 0)
		WHERE id = $1
	`, reg.CourseID)
	if err != nil {
		return nil, translatePQ(err)
	}

	refunded := false
	if reg.AllocationID != nil {
		eligible := p.ForceRefund || p.Now.Before(inst.StartAt.Add(-p.RefundCutoff))
		if eligible {
			_, err = tx.ExecContext(ctx, `
				UPDATE group_session_allocations
				SET sessions_remaining = LEAST(sessions_remaining + 1, total_sessions)
				WHERE id = $1
			`, *reg.AllocationID)
			if err != nil {
				return nil, translatePQ(err)
			}
			refunded = true
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, translatePQ(err)
	}

	return &ReleaseResult{Registration: &reg, Refunded: refunded}, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// translatePQ surfaces lost serialization and deadlock races as
// concurrency errors so callers can retry once.
func translatePQ(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return apperr.Concurrency("serialization_failure", "lost a concurrent update race")
		}
	}
	return err
}
