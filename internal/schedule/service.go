package schedule

import (
	"context"
	"fmt"
	"time"

	"wildenergy/internal/apperr"
	"wildenergy/internal/catalog"
	"wildenergy/internal/course"
	"wildenergy/internal/logger"
	"wildenergy/internal/metrics"
)

// defaultCapacity applies when neither the schedule nor the class
// carries a capacity.
const defaultCapacity = 10

const dateLayout = "2006-01-02"

type Service interface {
	Create(ctx context.Context, req UpsertScheduleRequest) (*Schedule, []course.Instance, error)
	Update(ctx context.Context, scheduleID int, req UpsertScheduleRequest) (*Schedule, []course.Instance, error)
	Regenerate(ctx context.Context, scheduleID int) ([]course.Instance, error)
	SetActive(ctx context.Context, scheduleID int, active bool) error
	GetByID(ctx context.Context, scheduleID int) (*Schedule, error)
	List(ctx context.Context) ([]Schedule, error)
}

type service struct {
	repo    Repository
	courses course.Repository
	classes catalog.Repository
}

func NewService(repo Repository, courses course.Repository, classes catalog.Repository) Service {
	return &service{
		repo:    repo,
		courses: courses,
		classes: classes,
	}
}

func (s *service) Create(ctx context.Context, req UpsertScheduleRequest) (*Schedule, []course.Instance, error) {
	sch, err := scheduleFromRequest(req)
	if err != nil {
		return nil, nil, err
	}

	instances, err := s.expand(ctx, sch)
	if err != nil {
		return nil, nil, err
	}

	created, err := s.repo.Create(ctx, sch)
	if err != nil {
		return nil, nil, err
	}

	persisted, err := s.courses.ReplaceForSchedule(ctx, created.ID, instances)
	if err != nil {
		return nil, nil, err
	}

	metrics.RecordScheduleExpansion(len(persisted))
	logger.Info("Schedule expanded",
		"schedule_id", created.ID,
		"repetition", created.Repetition,
		"instances", len(persisted),
	)

	return created, persisted, nil
}

// Update regenerates the schedule's instances from the edited
// definition. The edit is rejected outright when any instance under
// the schedule has registrations or check-ins; no partial
// regeneration ever happens.
func (s *service) Update(ctx context.Context, scheduleID int, req UpsertScheduleRequest) (*Schedule, []course.Instance, error) {
	previous, err := s.repo.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, nil, apperr.NotFound("schedule_not_found", "schedule not found")
	}

	sch, err := scheduleFromRequest(req)
	if err != nil {
		return nil, nil, err
	}
	sch.ID = scheduleID
	sch.IsActive = previous.IsActive

	instances, err := s.expand(ctx, sch)
	if err != nil {
		return nil, nil, err
	}

	// One transaction for the definition and its instances; a rejected
	// edit leaves both exactly as they were.
	updated, persisted, err := s.repo.UpdateAndReplace(ctx, sch, instances)
	if err != nil {
		return nil, nil, err
	}

	metrics.RecordScheduleExpansion(len(persisted))

	return updated, persisted, nil
}

// Regenerate re-expands an unedited schedule. Expanding the same
// definition twice yields the same instance set.
func (s *service) Regenerate(ctx context.Context, scheduleID int) ([]course.Instance, error) {
	sch, err := s.repo.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, apperr.NotFound("schedule_not_found", "schedule not found")
	}

	instances, err := s.expand(ctx, sch)
	if err != nil {
		return nil, err
	}

	persisted, err := s.courses.ReplaceForSchedule(ctx, scheduleID, instances)
	if err != nil {
		return nil, err
	}

	metrics.RecordScheduleExpansion(len(persisted))

	return persisted, nil
}

func (s *service) SetActive(ctx context.Context, scheduleID int, active bool) error {
	if err := s.repo.SetActive(ctx, scheduleID, active); err != nil {
		if err == ErrScheduleNotFound {
			return apperr.NotFound("schedule_not_found", "schedule not found")
		}
		return err
	}

	affected, err := s.courses.SetActiveForSchedule(ctx, scheduleID, active)
	if err != nil {
		return err
	}

	logger.Info("Schedule active flag changed",
		"schedule_id", scheduleID,
		"active", active,
		"instances", affected,
	)

	return nil
}

func (s *service) GetByID(ctx context.Context, scheduleID int) (*Schedule, error) {
	return s.repo.GetByID(ctx, scheduleID)
}

func (s *service) List(ctx context.Context) ([]Schedule, error) {
	return s.repo.List(ctx)
}

// expand turns the schedule definition into its full instance set.
// Validation failures reject the whole expansion.
func (s *service) expand(ctx context.Context, sch *Schedule) ([]course.Instance, error) {
	cls, err := s.classes.GetClassByID(ctx, sch.ClassID)
	if err != nil {
		return nil, apperr.NotFound("class_not_found", "class not found")
	}

	capacity := defaultCapacity
	if cls.MaxCapacity != nil {
		capacity = *cls.MaxCapacity
	}
	if sch.MaxParticipants != nil {
		capacity = *sch.MaxParticipants
	}

	startHour, startMin, err := parseTimeOfDay(sch.StartTime)
	if err != nil {
		return nil, apperr.Validation("invalid_start_time", fmt.Sprintf("invalid start_time %q", sch.StartTime))
	}
	endHour, endMin, err := parseTimeOfDay(sch.EndTime)
	if err != nil {
		return nil, apperr.Validation("invalid_end_time", fmt.Sprintf("invalid end_time %q", sch.EndTime))
	}
	if endHour*60+endMin <= startHour*60+startMin {
		return nil, apperr.Validation("invalid_time_range", "end_time must be after start_time")
	}

	dates, err := occurrenceDates(sch)
	if err != nil {
		return nil, err
	}

	instances := make([]course.Instance, 0, len(dates))
	for _, d := range dates {
		instances = append(instances, course.Instance{
			ClassID:         sch.ClassID,
			TrainerID:       sch.TrainerID,
			CourseDate:      d,
			StartAt:         time.Date(d.Year(), d.Month(), d.Day(), startHour, startMin, 0, 0, time.UTC),
			EndAt:           time.Date(d.Year(), d.Month(), d.Day(), endHour, endMin, 0, 0, time.UTC),
			MaxParticipants: capacity,
			// A deactivated schedule regenerates deactivated instances.
			IsActive: sch.IsActive,
		})
	}

	return instances, nil
}

func occurrenceDates(sch *Schedule) ([]time.Time, error) {
	switch sch.Repetition {
	case RepetitionOnce:
		if sch.ScheduleDate == nil {
			return nil, apperr.Validation("missing_schedule_date", "schedule_date is required for one-off schedules")
		}
		return []time.Time{*sch.ScheduleDate}, nil

	case RepetitionDaily, RepetitionWeekly:
		if sch.StartDate == nil || sch.EndDate == nil {
			return nil, apperr.Validation("missing_date_range", "start_date and end_date are required for recurring schedules")
		}
		if sch.EndDate.Before(*sch.StartDate) {
			return nil, apperr.Validation("invalid_date_range", "end_date must not be before start_date")
		}
		if sch.Repetition == RepetitionWeekly && sch.DayOfWeek == nil {
			return nil, apperr.Validation("missing_day_of_week", "day_of_week is required for weekly schedules")
		}

		var dates []time.Time
		for d := *sch.StartDate; !d.After(*sch.EndDate); d = d.AddDate(0, 0, 1) {
			if sch.Repetition == RepetitionWeekly && int(d.Weekday()) != *sch.DayOfWeek {
				continue
			}
			dates = append(dates, d)
		}
		return dates, nil

	default:
		return nil, apperr.Validation("invalid_repetition", fmt.Sprintf("unknown repetition %q", sch.Repetition))
	}
}

func parseTimeOfDay(value string) (hour, min int, err error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

func scheduleFromRequest(req UpsertScheduleRequest) (*Schedule, error) {
	sch := &Schedule{
		ClassID:         req.ClassID,
		TrainerID:       req.TrainerID,
		Repetition:      req.Repetition,
		DayOfWeek:       req.DayOfWeek,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
		IsActive:        true,
	}

	parseDate := func(field, value string) (*time.Time, error) {
		if value == "" {
			return nil, nil
		}
		d, err := time.Parse(dateLayout, value)
		if err != nil {
			return nil, apperr.Validation("invalid_"+field, fmt.Sprintf("invalid %s %q, expected YYYY-MM-DD", field, value))
		}
		return &d, nil
	}

	var err error
	if sch.ScheduleDate, err = parseDate("schedule_date", req.ScheduleDate); err != nil {
		return nil, err
	}
	if sch.StartDate, err = parseDate("start_date", req.StartDate); err != nil {
		return nil, err
	}
	if sch.EndDate, err = parseDate("end_date", req.EndDate); err != nil {
		return nil, err
	}

	return sch, nil
}
