package course

import "time"

const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Instance is one concrete bookable occurrence of a class. Instances
// are created only by the schedule expander; current_participants is
// written only by the registration ledger.
type Instance struct {
	ID                  int        `db:"id" json:"id"`
	ScheduleID          *int       `db:"schedule_id" json:"schedule_id,omitempty"`
	ClassID             int        `db:"class_id" json:"class_id"`
	TrainerID           int        `db:"trainer_id" json:"trainer_id"`
	CourseDate          time.Time  `db:"course_date" json:"course_date"`
	StartAt             time.Time  `db:"start_at" json:"start_at"`
	EndAt               time.Time  `db:"end_at" json:"end_at"`
	MaxParticipants     int        `db:"max_participants" json:"max_participants"`
	CurrentParticipants int        `db:"current_participants" json:"current_participants"`
	Status              string     `db:"status" json:"status"`
	IsActive            bool       `db:"is_active" json:"is_active"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
}

type InstanceWithClass struct {
	Instance
	ClassName   string `db:"class_name" json:"class_name"`
	CategoryID  int    `db:"category_id" json:"category_id"`
	TrainerName string `db:"trainer_name" json:"trainer_name"`
}

type InstanceWithAvailability struct {
	InstanceWithClass
	Available int  `json:"available"`
	IsFull    bool `json:"is_full"`
}

// Attendee is a registered member's contact on an instance, collected
// when a cancelled course needs to notify its roster.
type Attendee struct {
	Email string `db:"email" json:"email"`
	Name  string `db:"name" json:"name"`
}
