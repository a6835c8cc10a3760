// Package sla computes due dates from SLA templates and detects
// breached tasks.
package sla

import (
	"time"

	"github.com/opsdeskhq/opsdesk/internal/model"
)

// ComputeDueDate returns from plus the SLA turnaround.
func ComputeDueDate(durationHrs int, from time.Time) time.Time {
	return from.Add(time.Duration(durationHrs) * time.Hour).UTC()
}

// IsBreached reports whether the task is past due and not completed at
// the given instant.
func IsBreached(task *model.Task, now time.Time) bool {
	return task.Overdue(now)
}
