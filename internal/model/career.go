package model

import "time"

// Career statuses.
const (
	CareerOpen   = "open"
	CareerClosed = "closed"
)

// Career is a job posting in the `careers` table.
type Career struct {
	ID             uint64    `json:"id"`              // careers.id
	Title          string    `json:"title"`           // careers.title
	Department     string    `json:"department"`      // careers.department
	Location       string    `json:"location"`        // careers.location
	EmploymentType string    `json:"employment_type"` // careers.employment_type
	Description    string    `json:"description"`     // careers.description
	Requirements   string    `json:"requirements"`    // careers.requirements
	Status         string    `json:"status"`          // careers.status (open|closed)
	CreatedBy      uint64    `json:"created_by"`      // careers.created_by
	CreatedAt      time.Time `json:"created_at"`      // careers.created_at
	UpdatedAt      time.Time `json:"updated_at"`      // careers.updated_at
}
