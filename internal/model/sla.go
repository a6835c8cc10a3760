package model

import "time"

// SLATier is the priority tier of an SLA template.
type SLATier string

const (
	SLATierLow      SLATier = "LOW"
	SLATierStandard SLATier = "STANDARD"
	SLATierUrgent   SLATier = "URGENT"
)

// SLATemplate is a reusable turnaround policy. A task's due date is
// computed as assignment/creation time plus DurationHrs unless a manual
// override is supplied.
type SLATemplate struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Tier        SLATier `json:"tier" db:"tier"`
	DurationHrs int     `json:"duration_hrs" db:"duration_hrs"`
}

// Duration returns the template's turnaround as a time.Duration.
func (s SLATemplate) Duration() time.Duration {
	return time.Duration(s.DurationHrs) * time.Hour
}
