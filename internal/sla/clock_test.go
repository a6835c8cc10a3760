package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/opsdeskhq/opsdesk/internal/model"
)

func TestComputeDueDate(t *testing.T) {
	from := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)

	assert.Equal(t, from.Add(48*time.Hour), ComputeDueDate(48, from))
	assert.Equal(t, from, ComputeDueDate(0, from))
}

func TestIsBreached(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		task model.Task
		want bool
	}{
		{"past due", model.Task{Status: model.StatusInProgress, DueAt: &past}, true},
		{"not yet due", model.Task{Status: model.StatusInProgress, DueAt: &future}, false},
		{"no due date", model.Task{Status: model.StatusInProgress}, false},
		{"completed past due", model.Task{Status: model.StatusCompleted, DueAt: &past}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBreached(&tt.task, now))
		})
	}
}
