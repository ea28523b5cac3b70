package checkin

import "time"

type Checkin struct {
	ID             int       `db:"id" json:"id"`
	RegistrationID int       `db:"registration_id" json:"registration_id"`
	// CheckedInBy is the staff member who scanned the token.
	CheckedInBy int       `db:"checked_in_by" json:"checked_in_by"`
	CheckedInAt time.Time `db:"checked_in_at" json:"checked_in_at"`
}

type ValidateRequest struct {
	QRToken string `json:"qr_token" binding:"required"`
}

// ValidateResult carries enough context for the front-desk screen.
type ValidateResult struct {
	Checkin        *Checkin  `json:"checkin"`
	RegistrationID int       `json:"registration_id"`
	MemberID       int       `json:"member_id"`
	MemberName     string    `json:"member_name"`
	ClassName      string    `json:"class_name"`
	StartAt        time.Time `json:"start_at"`
	// AlreadyCheckedIn is set when the token was scanned before; the
	// scan still succeeds.
	AlreadyCheckedIn bool `json:"already_checked_in"`
}
