package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtcstudio/taskboard/internal/domain"
	apperrors "github.com/dtcstudio/taskboard/pkg/util/errorutil"
)

func TestApplyStatusChangeDoneForcesProgress(t *testing.T) {
	reason := "waiting on vendor"
	task := &domain.Task{
		ID:            "task-1",
		Status:        domain.TaskStatusBlocker,
		Progress:      40,
		BlockerReason: &reason,
	}

	entry, err := applyStatusChange(task, StatusChange{NewStatus: domain.TaskStatusDone})
	require.NoError(t, err)

	assert.Equal(t, domain.TaskStatusDone, task.Status)
	assert.Equal(t, 100, task.Progress)
	assert.Nil(t, task.BlockerReason)
	assert.Nil(t, task.BlockerRelatedTo)
	assert.Equal(t, domain.LogFieldStatus, entry.Field)
	assert.Equal(t, "BLOCKER", entry.OldValue)
	assert.Equal(t, "DONE", entry.NewValue)
}

func TestApplyStatusChangeBlockerRequiresReason(t *testing.T) {
	task := &domain.Task{ID: "task-1", Status: domain.TaskStatusInProgress}

	_, err := applyStatusChange(task, StatusChange{NewStatus: domain.TaskStatusBlocker})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	// failed transition must not leave a half-applied status
	assert.Equal(t, domain.TaskStatusInProgress, task.Status)

	_, err = applyStatusChange(task, StatusChange{NewStatus: domain.TaskStatusBlocker, BlockerReason: "   "})
	require.Error(t, err)
}

func TestApplyStatusChangeBlockerPersistsReason(t *testing.T) {
	task := &domain.Task{ID: "task-1", Status: domain.TaskStatusInProgress}

	entry, err := applyStatusChange(task, StatusChange{
		NewStatus:        domain.TaskStatusBlocker,
		BlockerReason:    "waiting on vendor",
		BlockerRelatedTo: "task-9",
	})
	require.NoError(t, err)

	require.NotNil(t, task.BlockerReason)
	assert.Equal(t, "waiting on vendor", *task.BlockerReason)
	require.NotNil(t, task.BlockerRelatedTo)
	assert.Equal(t, "task-9", *task.BlockerRelatedTo)
	// reason doubles as details when none given
	require.NotNil(t, entry.Details)
	assert.Equal(t, "waiting on vendor", *entry.Details)
}

func TestApplyStatusChangeLeavingBlockerClearsFields(t *testing.T) {
	reason := "waiting on vendor"
	related := "task-9"
	task := &domain.Task{
		ID:               "task-1",
		Status:           domain.TaskStatusBlocker,
		BlockerReason:    &reason,
		BlockerRelatedTo: &related,
	}

	_, err := applyStatusChange(task, StatusChange{NewStatus: domain.TaskStatusInProgress})
	require.NoError(t, err)
	assert.Nil(t, task.BlockerReason)
	assert.Nil(t, task.BlockerRelatedTo)
}

func TestApplyStatusChangeNoOpStillLogs(t *testing.T) {
	task := &domain.Task{ID: "task-1", Status: domain.TaskStatusDone, Progress: 100}

	entry, err := applyStatusChange(task, StatusChange{NewStatus: domain.TaskStatusDone})
	require.NoError(t, err)
	assert.Equal(t, "DONE", entry.OldValue)
	assert.Equal(t, "DONE", entry.NewValue)
}

func TestApplyStatusChangeRejectsUnknownStatus(t *testing.T) {
	task := &domain.Task{ID: "task-1", Status: domain.TaskStatusTodo}

	_, err := applyStatusChange(task, StatusChange{NewStatus: "ARCHIVED"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestApplyStatusChangeOverdueSweepDetails(t *testing.T) {
	task := &domain.Task{ID: "task-1", Status: domain.TaskStatusInProgress}

	entry, err := applyStatusChange(task, StatusChange{
		NewStatus: domain.TaskStatusOverdue,
		Details:   OverdueSweepDetails,
	})
	require.NoError(t, err)
	require.NotNil(t, entry.Details)
	assert.Equal(t, "System: automatically marked as overdue", *entry.Details)
	assert.Nil(t, entry.ActorID)
}
