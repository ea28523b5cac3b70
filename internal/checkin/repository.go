package checkin

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"wildenergy/internal/apperr"
	"wildenergy/internal/metrics"
	"wildenergy/internal/registration"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

type tokenLookup struct {
	RegistrationID int       `db:"registration_id"`
	MemberID       int       `db:"member_id"`
	Status         string    `db:"status"`
	MemberName     string    `db:"member_name"`
	ClassName      string    `db:"class_name"`
	StartAt        time.Time `db:"start_at"`
}

func (r *repository) Validate(ctx context.Context, qrToken string, staffID int) (*ValidateResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var row tokenLookup
	err = tx.QueryRowxContext(ctx, `
		SELECT r.id AS registration_id, r.member_id, r.status,
		       m.name AS member_name, cl.name AS class_name, ci.start_at
		FROM registrations r
		JOIN members m ON m.id = r.member_id
		JOIN course_instances ci ON ci.id = r.course_id
		JOIN classes cl ON cl.id = ci.class_id
		WHERE r.qr_token = $1
		FOR UPDATE OF r
	`, qrToken).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("invalid_token", "no registration matches this token")
		}
		return nil, err
	}

	result := &ValidateResult{
		RegistrationID: row.RegistrationID,
		MemberID:       row.MemberID,
		MemberName:     row.MemberName,
		ClassName:      row.ClassName,
		StartAt:        row.StartAt,
	}

	switch row.Status {
	case registration.StatusAttended:
		// Re-scan of a validated token. Report success so a flaky
		// scanner doesn't strand the member at the desk.
		var existing Checkin
		err = tx.QueryRowxContext(ctx, `
			SELECT id, registration_id, checked_in_by, checked_in_at
			FROM checkins
			WHERE registration_id = $1
		`, row.RegistrationID).StructScan(&existing)
		if err != nil {
			return nil, err
		}
		result.Checkin = &existing
		result.AlreadyCheckedIn = true
		return result, tx.Commit()

	case registration.StatusRegistered:
		// proceed

	default:
		return nil, apperr.State("not_registered", "registration is not in a checkable state")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE registrations
		SET status = 'attended'
		WHERE id = $1 AND status = 'registered'
	`, row.RegistrationID)
	if err != nil {
		return nil, err
	}

	var created Checkin
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO checkins (registration_id, checked_in_by)
		VALUES ($1, $2)
		RETURNING id, registration_id, checked_in_by, checked_in_at
	`, row.RegistrationID, staffID).StructScan(&created)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.RecordCheckin()
	result.Checkin = &created
	return result, nil
}

func (r *repository) Unvalidate(ctx context.Context, registrationID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM checkins WHERE registration_id = $1
	`, registrationID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.NotFound("checkin_not_found", "no checkin recorded for this registration")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE registrations
		SET status = 'registered'
		WHERE id = $1 AND status = 'attended'
	`, registrationID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) ListByCourse(ctx context.Context, courseID int) ([]Checkin, error) {
	checkins := []Checkin{}
	err := r.db.SelectContext(ctx, &checkins, `
		SELECT c.id, c.registration_id, c.checked_in_by, c.checked_in_at
		FROM checkins c
		JOIN registrations r ON r.id = c.registration_id
		WHERE r.course_id = $1
		ORDER BY c.checked_in_at
	`, courseID)
	return checkins, err
}
