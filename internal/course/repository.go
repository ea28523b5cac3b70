package course

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"wildenergy/internal/apperr"

	"github.com/jmoiron/sqlx"
)

const instanceColumns = `id, schedule_id, class_id, trainer_id, course_date, start_at, end_at, max_participants, current_participants, status, is_active, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id int) (*Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM course_instances WHERE id = $1`

	var inst Instance
	err := r.db.GetContext(ctx, &inst, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("course_not_found", "course instance not found")
		}
		return nil, err
	}

	return &inst, nil
}

func (r *repository) GetWithClassByID(ctx context.Context, id int) (*InstanceWithClass, error) {
	query := `
		SELECT
			ci.id, ci.schedule_id, ci.class_id, ci.trainer_id, ci.course_date,
			ci.start_at, ci.end_at, ci.max_participants, ci.current_participants,
			ci.status, ci.is_active, ci.created_at,
			cl.name AS class_name,
			cl.category_id,
			m.name AS trainer_name
		FROM course_instances ci
		JOIN classes cl ON ci.class_id = cl.id
		JOIN members m ON ci.trainer_id = m.id
		WHERE ci.id = $1
	`

	var inst InstanceWithClass
	err := r.db.GetContext(ctx, &inst, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("course_not_found", "course instance not found")
		}
		return nil, err
	}

	return &inst, nil
}

func (r *repository) ListUpcoming(ctx context.Context, from time.Time) ([]InstanceWithClass, error) {
	query := `
		SELECT
			ci.id, ci.schedule_id, ci.class_id, ci.trainer_id, ci.course_date,
			ci.start_at, ci.end_at, ci.max_participants, ci.current_participants,
			ci.status, ci.is_active, ci.created_at,
			cl.name AS class_name,
			cl.category_id,
			m.name AS trainer_name
		FROM course_instances ci
		JOIN classes cl ON ci.class_id = cl.id
		JOIN members m ON ci.trainer_id = m.id
		WHERE ci.start_at >= $1 AND ci.is_active = TRUE AND ci.status = 'scheduled'
		ORDER BY ci.start_at
	`

	var instances []InstanceWithClass
	err := r.db.SelectContext(ctx, &instances, query, from)
	if err != nil {
		return nil, err
	}

	return instances, nil
}

func (r *repository) ListBySchedule(ctx context.Context, scheduleID int) ([]Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM course_instances WHERE schedule_id = $1 ORDER BY start_at`

	var instances []Instance
	err := r.db.SelectContext(ctx, &instances, query, scheduleID)
	if err != nil {
		return nil, err
	}

	return instances, nil
}

// ReplaceForSchedule deletes and recreates a schedule's instances in a
// single transaction. The zero-registrations precondition is checked
// inside the same transaction so a concurrent registration cannot land
// on an instance mid-deletion.
func (r *repository) ReplaceForSchedule(ctx context.Context, scheduleID int, instances []Instance) ([]Instance, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var bookings int
	err = tx.GetContext(ctx, &bookings, `
		SELECT COUNT(*)
		FROM registrations r
		JOIN course_instances ci ON r.course_id = ci.id
		WHERE ci.schedule_id = $1
	`, scheduleID)
	if err != nil {
		return nil, err
	}

	if bookings > 0 {
		return nil, apperr.State("schedule_has_registrations",
			"schedule has instances with registrations or check-ins and cannot be regenerated")
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM course_instances WHERE schedule_id = $1`, scheduleID)
	if err != nil {
		return nil, err
	}

	created := make([]Instance, 0, len(instances))
	for _, inst := range instances {
		var row Instance
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO course_instances (schedule_id, class_id, trainer_id, course_date, start_at, end_at, max_participants, status, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled', $8)
			RETURNING `+instanceColumns+`
		`, scheduleID, inst.ClassID, inst.TrainerID, inst.CourseDate, inst.StartAt, inst.EndAt, inst.MaxParticipants, inst.IsActive).StructScan(&row)
		if err != nil {
			return nil, err
		}
		created = append(created, row)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return created, nil
}

// SetActiveForSchedule flips the active flag on all of a schedule's
// instances. Deactivation never deletes.
func (r *repository) SetActiveForSchedule(ctx context.Context, scheduleID int, active bool) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE course_instances
		SET is_active = $2
		WHERE schedule_id = $1
	`, scheduleID, active)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(affected), nil
}

// DeleteInstance removes an instance only when nothing references it.
func (r *repository) DeleteInstance(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM course_instances
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM registrations WHERE course_id = $1)
	`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return apperr.State("instance_in_use", "course instance has registrations or check-ins and cannot be deleted")
	}

	return nil
}

// CancelInstance marks an instance cancelled and returns its roster
// of registered members so they can be told. Registrations stay as
// they are; refunds go through the registration ledger per booking.
func (r *repository) CancelInstance(ctx context.Context, id int) (*InstanceWithClass, []Attendee, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var inst InstanceWithClass
	err = tx.GetContext(ctx, &inst, `
		SELECT
			ci.id, ci.schedule_id, ci.class_id, ci.trainer_id, ci.course_date,
			ci.start_at, ci.end_at, ci.max_participants, ci.current_participants,
			ci.status, ci.is_active, ci.created_at,
			cl.name AS class_name,
			cl.category_id,
			m.name AS trainer_name
		FROM course_instances ci
		JOIN classes cl ON ci.class_id = cl.id
		JOIN members m ON ci.trainer_id = m.id
		WHERE ci.id = $1
		FOR UPDATE OF ci
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, apperr.NotFound("course_not_found", "course instance not found")
		}
		return nil, nil, err
	}

	if inst.Status == StatusCompleted || inst.Status == StatusCancelled {
		return nil, nil, apperr.State("course_not_cancellable", "course instance already "+inst.Status)
	}

	_, err = tx.ExecContext(ctx, `UPDATE course_instances SET status = 'cancelled' WHERE id = $1`, id)
	if err != nil {
		return nil, nil, err
	}

	var attendees []Attendee
	err = tx.SelectContext(ctx, &attendees, `
		SELECT m.email, m.name
		FROM registrations r
		JOIN members m ON r.member_id = m.id
		WHERE r.course_id = $1 AND r.status = 'registered'
	`, id)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	inst.Status = StatusCancelled
	return &inst, attendees, nil
}

// SweepStatuses advances scheduled instances into in_progress and
// completed based on wall clock. Housekeeping only; capacity and
// overlap checks compare timestamps directly.
func (r *repository) SweepStatuses(ctx context.Context, now time.Time) (int64, int64, error) {
	started, err := r.db.ExecContext(ctx, `
		UPDATE course_instances
		SET status = 'in_progress'
		WHERE status = 'scheduled' AND start_at <= $1 AND end_at > $1
	`, now)
	if err != nil {
		return 0, 0, err
	}

	completed, err := r.db.ExecContext(ctx, `
		UPDATE course_instances
		SET status = 'completed'
		WHERE status IN ('scheduled', 'in_progress') AND end_at <= $1
	`, now)
	if err != nil {
		return 0, 0, err
	}

	startedN, _ := started.RowsAffected()
	completedN, _ := completed.RowsAffected()
	return startedN, completedN, nil
}
