package model

import "time"

// Application statuses, in pipeline order.
const (
	ApplicationApplied   = "applied"
	ApplicationScreening = "screening"
	ApplicationInterview = "interview"
	ApplicationOffered   = "offered"
	ApplicationRejected  = "rejected"
	ApplicationHired     = "hired"
)

// ApplicationStatuses lists every valid application status.
var ApplicationStatuses = []string{
	ApplicationApplied,
	ApplicationScreening,
	ApplicationInterview,
	ApplicationOffered,
	ApplicationRejected,
	ApplicationHired,
}

// Application is a candidate's submission against a career posting.
type Application struct {
	ID          uint64    `json:"id"`           // applications.id
	CareerID    uint64    `json:"career_id"`    // applications.career_id
	FullName    string    `json:"full_name"`    // applications.full_name
	Email       string    `json:"email"`        // applications.email
	Phone       string    `json:"phone"`        // applications.phone
	ResumeKey   string    `json:"resume_key"`   // applications.resume_key (object storage key)
	CoverLetter string    `json:"cover_letter"` // applications.cover_letter
	Status      string    `json:"status"`       // applications.status
	Notes       string    `json:"notes"`        // applications.notes (internal)
	CreatedAt   time.Time `json:"created_at"`   // applications.created_at
	UpdatedAt   time.Time `json:"updated_at"`   // applications.updated_at
}
