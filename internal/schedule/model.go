package schedule

import "time"

const (
	RepetitionOnce   = "once"
	RepetitionDaily  = "daily"
	RepetitionWeekly = "weekly"
)

// Schedule is a recurrence rule bound to one class and one trainer.
// Times of day are "HH:MM" strings; weekly schedules use time.Weekday
// numbering (Sunday = 0).
type Schedule struct {
	ID              int        `db:"id" json:"id"`
	ClassID         int        `db:"class_id" json:"class_id"`
	TrainerID       int        `db:"trainer_id" json:"trainer_id"`
	Repetition      string     `db:"repetition" json:"repetition"`
	DayOfWeek       *int       `db:"day_of_week" json:"day_of_week,omitempty"`
	ScheduleDate    *time.Time `db:"schedule_date" json:"schedule_date,omitempty"`
	StartDate       *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate         *time.Time `db:"end_date" json:"end_date,omitempty"`
	StartTime       string     `db:"start_time" json:"start_time"`
	EndTime         string     `db:"end_time" json:"end_time"`
	MaxParticipants *int       `db:"max_participants" json:"max_participants,omitempty"`
	IsActive        bool       `db:"is_active" json:"is_active"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

type UpsertScheduleRequest struct {
	ClassID         int    `json:"class_id" binding:"required"`
	TrainerID       int    `json:"trainer_id" binding:"required"`
	Repetition      string `json:"repetition" binding:"required,oneof=once daily weekly"`
	DayOfWeek       *int   `json:"day_of_week" binding:"omitempty,min=0,max=6"`
	ScheduleDate    string `json:"schedule_date"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	StartTime       string `json:"start_time" binding:"required"`
	EndTime         string `json:"end_time" binding:"required"`
	MaxParticipants *int   `json:"max_participants" binding:"omitempty,min=1"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}
