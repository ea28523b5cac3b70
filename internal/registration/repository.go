package registration

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"wildenergy/internal/apperr"

	"github.com/jmoiron/sqlx"
)

const registrationColumns = `id, member_id, course_id, allocation_id, status, qr_token, notes, registered_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id int) (*Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`

	var reg Registration
	err := r.db.GetContext(ctx, &reg, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("registration_not_found", "registration not found")
		}
		return nil, err
	}

	return &reg, nil
}

func (r *repository) ListByMember(ctx context.Context, memberID int) ([]RegistrationWithCourse, error) {
	query := `
		SELECT
			r.id, r.member_id, r.course_id, r.allocation_id, r.status, r.qr_token, r.notes, r.registered_at,
			cl.name AS class_name,
			ci.course_date,
			ci.start_at,
			ci.end_at,
			m.name AS trainer_name
		FROM registrations r
		JOIN course_instances ci ON r.course_id = ci.id
		JOIN classes cl ON ci.class_id = cl.id
		JOIN members m ON ci.trainer_id = m.id
		WHERE r.member_id = $1
		ORDER BY ci.start_at DESC
	`

	var regs []RegistrationWithCourse
	err := r.db.SelectContext(ctx, &regs, query, memberID)
	if err != nil {
		return nil, err
	}

	return regs, nil
}

func (r *repository) ListActiveOnDate(ctx context.Context, memberID int, date time.Time) ([]Overlap, error) {
	query := `
		SELECT
			r.id AS registration_id,
			r.course_id,
			cl.name AS class_name,
			ci.course_date,
			ci.start_at,
			ci.end_at,
			m.name AS trainer_name
		FROM registrations r
		JOIN course_instances ci ON r.course_id = ci.id
		JOIN classes cl ON ci.class_id = cl.id
		JOIN members m ON ci.trainer_id = m.id
		WHERE r.member_id = $1
		  AND r.status = 'registered'
		  AND ci.course_date = $2
		ORDER BY ci.start_at
	`

	var overlaps []Overlap
	err := r.db.SelectContext(ctx, &overlaps, query, memberID, date)
	if err != nil {
		return nil, err
	}

	return overlaps, nil
}

// MarkAbsent is a staff correction for no-shows. Valid only from
// registered; the consumed session stays consumed.
func (r *repository) MarkAbsent(ctx context.Context, registrationID int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE registrations
		SET status = 'absent'
		WHERE id = $1 AND status = 'registered'
	`, registrationID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return apperr.State("not_registered", "registration is not in registered status")
	}

	return nil
}
