package schedule

import (
	"context"
	"errors"

	"wildenergy/internal/apperr"
	"wildenergy/internal/course"

	"github.com/jmoiron/sqlx"
)

var ErrScheduleNotFound = errors.New("schedule not found")

const scheduleColumns = `id, class_id, trainer_id, repetition, day_of_week, schedule_date, start_date, end_date, start_time, end_time, max_participants, is_active, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, s *Schedule) (*Schedule, error) {
	query := `
		INSERT INTO schedules (class_id, trainer_id, repetition, day_of_week, schedule_date, start_date, end_date, start_time, end_time, max_participants)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + scheduleColumns

	var created Schedule
	err := r.db.GetContext(ctx, &created, query,
		s.ClassID, s.TrainerID, s.Repetition, s.DayOfWeek, s.ScheduleDate,
		s.StartDate, s.EndDate, s.StartTime, s.EndTime, s.MaxParticipants)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`

	var s Schedule
	err := r.db.GetContext(ctx, &s, query, id)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// UpdateAndReplace runs the definition UPDATE and the instance
// delete-and-recreate inside one transaction. The zero-registrations
// gate sits in the same transaction, so a rejected edit rolls the
// schedule row back along with the instances; there is never a window
// where an edited definition sits over stale instances.
func (r *repository) UpdateAndReplace(ctx context.Context, s *Schedule, instances []course.Instance) (*Schedule, []course.Instance, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	query := `
		UPDATE schedules
		SET class_id = $2, trainer_id = $3, repetition = $4, day_of_week = $5,
		    schedule_date = $6, start_date = $7, end_date = $8,
		    start_time = $9, end_time = $10, max_participants = $11
		WHERE id = $1
		RETURNING ` + scheduleColumns

	var updated Schedule
	err = tx.GetContext(ctx, &updated, query,
		s.ID, s.ClassID, s.TrainerID, s.Repetition, s.DayOfWeek, s.ScheduleDate,
		s.StartDate, s.EndDate, s.StartTime, s.EndTime, s.MaxParticipants)
	if err != nil {
		return nil, nil, err
	}

	var bookings int
	err = tx.GetContext(ctx, &bookings, `
		SELECT COUNT(*)
		FROM registrations r
		JOIN course_instances ci ON r.course_id = ci.id
		WHERE ci.schedule_id = $1
	`, s.ID)
	if err != nil {
		return nil, nil, err
	}

	if bookings > 0 {
		return nil, nil, apperr.State("schedule_has_registrations",
			"schedule has instances with registrations or check-ins and cannot be regenerated")
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM course_instances WHERE schedule_id = $1`, s.ID)
	if err != nil {
		return nil, nil, err
	}

	created := make([]course.Instance, 0, len(instances))
	for _, inst := range instances {
		var row course.Instance
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO course_instances (schedule_id, class_id, trainer_id, course_date, start_at, end_at, max_participants, status, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled', $8)
			RETURNING id, schedule_id, class_id, trainer_id, course_date, start_at, end_at, max_participants, current_participants, status, is_active, created_at
		`, s.ID, inst.ClassID, inst.TrainerID, inst.CourseDate, inst.StartAt, inst.EndAt, inst.MaxParticipants, inst.IsActive).StructScan(&row)
		if err != nil {
			return nil, nil, err
		}
		created = append(created, row)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	return &updated, created, nil
}

func (r *repository) List(ctx context.Context) ([]Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules ORDER BY id`

	var schedules []Schedule
	err := r.db.SelectContext(ctx, &schedules, query)
	if err != nil {
		return nil, err
	}

	return schedules, nil
}

func (r *repository) SetActive(ctx context.Context, id int, active bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE schedules
		SET is_active = $2
		WHERE id = $1
	`, id, active)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return ErrScheduleNotFound
	}

	return nil
}
