package registration

import "time"

// Registration statuses. registered is the only active status; the
// other three are terminal.
const (
	StatusRegistered = "registered"
	StatusAttended   = "attended"
	StatusCancelled  = "cancelled"
	StatusAbsent     = "absent"
)

type Registration struct {
	ID       int `db:"id" json:"id"`
	MemberID int `db:"member_id" json:"member_id"`
	CourseID int `db:"course_id" json:"course_id"`
	// AllocationID is the funded group session allocation, nil for
	// guest and unfunded admin registrations.
	AllocationID *int      `db:"allocation_id" json:"allocation_id,omitempty"`
	Status       string    `db:"status" json:"status"`
	QRToken      string    `db:"qr_token" json:"qr_token"`
	Notes        string    `db:"notes" json:"notes,omitempty"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

type RegistrationWithCourse struct {
	Registration
	ClassName   string    `db:"class_name" json:"class_name"`
	CourseDate  time.Time `db:"course_date" json:"course_date"`
	StartAt     time.Time `db:"start_at" json:"start_at"`
	EndAt       time.Time `db:"end_at" json:"end_at"`
	TrainerName string    `db:"trainer_name" json:"trainer_name"`
}

// Overlap describes one conflicting booking with enough detail for a
// confirmation prompt.
type Overlap struct {
	RegistrationID int       `db:"registration_id" json:"registration_id"`
	CourseID       int       `db:"course_id" json:"course_id"`
	ClassName      string    `db:"class_name" json:"class_name"`
	CourseDate     time.Time `db:"course_date" json:"course_date"`
	StartAt        time.Time `db:"start_at" json:"start_at"`
	EndAt          time.Time `db:"end_at" json:"end_at"`
	TrainerName    string    `db:"trainer_name" json:"trainer_name"`
}

type RegisterRequest struct {
	// Force confirms registration despite reported overlaps.
	Force      bool   `json:"force"`
	AllowGuest bool   `json:"allow_guest"`
	Notes      string `json:"notes"`
}

type CancelRequest struct {
	// ForceRefund refunds the session regardless of the cutoff.
	// Admin only, for trainer or studio caused cancellations.
	ForceRefund bool `json:"force_refund"`
}

type BulkRegisterRequest struct {
	MemberIDs []int `json:"member_ids" binding:"required,min=1"`
}

type BulkRegisterItem struct {
	MemberID     int           `json:"member_id"`
	Registration *Registration `json:"registration,omitempty"`
	Error        string        `json:"error,omitempty"`
}

type BulkRegisterResult struct {
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Items     []BulkRegisterItem `json:"items"`
}

type RegisterResponse struct {
	Registration *Registration `json:"registration,omitempty"`
	// Conflicts is populated instead of Registration when overlapping
	// bookings exist and force was not set.
	Conflicts []Overlap `json:"conflicts,omitempty"`
	Funding   string    `json:"funding,omitempty" example:"allocation"`
}
