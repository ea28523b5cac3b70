package course

import (
	"context"
	"regexp"
	"testing"
	"time"

	"wildenergy/internal/apperr"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

func instanceRow(id int, scheduleID int, start time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "schedule_id", "class_id", "trainer_id", "course_date", "start_at", "end_at",
		"max_participants", "current_participants", "status", "is_active", "created_at",
	}).AddRow(id, scheduleID, 1, 2, start.Truncate(24*time.Hour), start, start.Add(time.Hour), 10, 0, "scheduled", true, time.Now())
}

func TestReplaceForSchedule(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	start := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	instances := []Instance{{
		ClassID:         1,
		TrainerID:       2,
		CourseDate:      start.Truncate(24 * time.Hour),
		StartAt:         start,
		EndAt:           start.Add(time.Hour),
		MaxParticipants: 10,
		IsActive:        true,
	}}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM registrations r JOIN course_instances ci ON r.course_id = ci.id WHERE ci.schedule_id = $1")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_instances WHERE schedule_id = $1")).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery("INSERT INTO course_instances").
		WithArgs(7, 1, 2, instances[0].CourseDate, instances[0].StartAt, instances[0].EndAt, 10, true).
		WillReturnRows(instanceRow(100, 7, start))
	mock.ExpectCommit()

	created, err := repo.ReplaceForSchedule(context.Background(), 7, instances)
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, 100, created[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceForScheduleBlockedByRegistrations(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM registrations r JOIN course_instances ci ON r.course_id = ci.id WHERE ci.schedule_id = $1")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	_, err := repo.ReplaceForSchedule(context.Background(), 7, nil)
	require.Error(t, err)
	require.True(t, apperr.IsState(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteInstanceGuarded(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_instances WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM registrations WHERE course_id = $1)")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteInstance(context.Background(), 5)
	require.Error(t, err)
	require.True(t, apperr.IsState(err))
}

func instanceWithClassRow(id int, status string, start time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "schedule_id", "class_id", "trainer_id", "course_date", "start_at", "end_at",
		"max_participants", "current_participants", "status", "is_active", "created_at",
		"class_name", "category_id", "trainer_name",
	}).AddRow(id, 7, 1, 2, start.Truncate(24*time.Hour), start, start.Add(time.Hour), 10, 2, status, true, time.Now(),
		"Pole Basics", 1, "Trainer")
}

func TestCancelInstanceReturnsRoster(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	start := time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT(.+)FROM course_instances ci(.+)FOR UPDATE OF ci").
		WithArgs(5).
		WillReturnRows(instanceWithClassRow(5, StatusScheduled, start))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_instances SET status = 'cancelled' WHERE id = $1")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT m.email, m.name FROM registrations r").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"email", "name"}).
			AddRow("a@example.com", "Aya").
			AddRow("b@example.com", "Bilel"))
	mock.ExpectCommit()

	inst, attendees, err := repo.CancelInstance(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, inst.Status)
	require.Equal(t, "Pole Basics", inst.ClassName)
	require.Len(t, attendees, 2)
	require.Equal(t, "a@example.com", attendees[0].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelInstanceRejectsCompleted(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	start := time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT(.+)FROM course_instances ci(.+)FOR UPDATE OF ci").
		WithArgs(5).
		WillReturnRows(instanceWithClassRow(5, StatusCompleted, start))
	mock.ExpectRollback()

	_, _, err := repo.CancelInstance(context.Background(), 5)
	require.Error(t, err)
	require.True(t, apperr.IsState(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepStatuses(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_instances SET status = 'in_progress' WHERE status = 'scheduled' AND start_at <= $1 AND end_at > $1")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_instances SET status = 'completed' WHERE status IN ('scheduled', 'in_progress') AND end_at <= $1")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	started, completed, err := repo.SweepStatuses(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, int64(2), started)
	require.Equal(t, int64(1), completed)
}
