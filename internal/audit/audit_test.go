package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeskhq/opsdesk/internal/audit"
	"github.com/opsdeskhq/opsdesk/internal/model"
	"github.com/opsdeskhq/opsdesk/tests/testutil"
)

func TestRecordAndTrail(t *testing.T) {
	s := testutil.NewTestStore(t)
	recorder := audit.NewRecorder(s)
	ctx := context.Background()

	sla := testutil.SeedSLA(t, s, "standard", model.SLATierStandard, 48)
	user := testutil.SeedUser(t, s, "actor", model.RoleAdmin, nil)

	task := &model.Task{Title: "work", SLAID: sla.ID, ReporterID: user.ID}
	created := &model.AuditEntry{ActorID: user.ID, Action: model.AuditTaskCreated}
	require.NoError(t, s.CreateTaskWithAudit(ctx, task, created))

	entry, err := recorder.Record(ctx, task.ID, user.ID,
		model.AuditStatusChange, "PENDING", "RECEIVED")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())

	trail, err := recorder.Trail(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, model.AuditTaskCreated, trail[0].Action)
	assert.Equal(t, model.AuditStatusChange, trail[1].Action)
	assert.Equal(t, "RECEIVED", trail[1].NewValue)
}
