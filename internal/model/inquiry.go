package model

import "time"

// Inquiry statuses.
const (
	InquiryNew        = "new"
	InquiryInProgress = "in_progress"
	InquiryResolved   = "resolved"
)

// InquiryStatuses lists every valid inquiry status.
var InquiryStatuses = []string{InquiryNew, InquiryInProgress, InquiryResolved}

// Inquiry is a contact/CRM request submitted from the public site.
type Inquiry struct {
	ID         uint64    `json:"id"`          // inquiries.id
	Name       string    `json:"name"`        // inquiries.name
	Email      string    `json:"email"`       // inquiries.email
	Phone      string    `json:"phone"`       // inquiries.phone
	Company    string    `json:"company"`     // inquiries.company
	Subject    string    `json:"subject"`     // inquiries.subject
	Message    string    `json:"message"`     // inquiries.message
	Status     string    `json:"status"`      // inquiries.status
	AssignedTo *uint64   `json:"assigned_to"` // inquiries.assigned_to (nullable users.id)
	CreatedAt  time.Time `json:"created_at"`  // inquiries.created_at
	UpdatedAt  time.Time `json:"updated_at"`  // inquiries.updated_at
}
