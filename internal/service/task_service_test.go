package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtcstudio/taskboard/internal/domain"
	"github.com/dtcstudio/taskboard/internal/events"
	"github.com/dtcstudio/taskboard/internal/repository/memory"
	apperrors "github.com/dtcstudio/taskboard/pkg/util/errorutil"
)

type taskFixture struct {
	service  *TaskService
	tasks    *memory.TaskRepo
	staff    *memory.StaffRepo
	manager  *domain.StaffMember
	designer *domain.StaffMember
	seller   *domain.StaffMember
	now      time.Time
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()

	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	tasks := memory.NewTaskRepo()
	tasks.NowFunc = func() time.Time { return now }
	staff := memory.NewStaffRepo()

	ctx := context.Background()
	manager := &domain.StaffMember{Name: "Mara", Email: "mara@example.com", Role: domain.StaffRoleManager, Active: true}
	designer := &domain.StaffMember{Name: "Dana", Email: "dana@example.com", Role: domain.StaffRoleDesigner, Active: true}
	seller := &domain.StaffMember{Name: "Sven", Email: "sven@example.com", Role: domain.StaffRoleSeller, Active: true}
	require.NoError(t, staff.Create(ctx, manager))
	require.NoError(t, staff.Create(ctx, designer))
	require.NoError(t, staff.Create(ctx, seller))

	svc := NewTaskService(TaskDependencies{
		TaskRepo:   tasks,
		LogRepo:    tasks,
		StaffRepo:  staff,
		Dispatcher: events.NewInMemoryDispatcher(),
		Now:        func() time.Time { return now },
	})
	return &taskFixture{
		service:  svc,
		tasks:    tasks,
		staff:    staff,
		manager:  manager,
		designer: designer,
		seller:   seller,
		now:      now,
	}
}

func (f *taskFixture) createTask(t *testing.T, deadline time.Time) *domain.Task {
	t.Helper()
	task, err := f.service.CreateTask(context.Background(), f.manager, TaskCreateInput{
		Title:      "Landing page mockup",
		Purpose:    "Spring campaign",
		AssigneeID: f.designer.ID,
		Role:       domain.StaffRoleDesigner,
		Priority:   domain.TaskPriorityHigh,
		Deadline:   deadline,
	})
	require.NoError(t, err)
	return task
}

func TestCreateTaskManagerOnly(t *testing.T) {
	f := newTaskFixture(t)

	_, err := f.service.CreateTask(context.Background(), f.designer, TaskCreateInput{
		Title:      "x",
		Purpose:    "y",
		AssigneeID: f.designer.ID,
		Role:       domain.StaffRoleDesigner,
		Deadline:   f.now.Add(time.Hour),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestCreateTaskRejectsRoleMismatch(t *testing.T) {
	f := newTaskFixture(t)

	_, err := f.service.CreateTask(context.Background(), f.manager, TaskCreateInput{
		Title:      "Mockup",
		Purpose:    "Campaign",
		AssigneeID: f.seller.ID,
		Role:       domain.StaffRoleDesigner,
		Deadline:   f.now.Add(time.Hour),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	// manager is never a valid task department
	_, err = f.service.CreateTask(context.Background(), f.manager, TaskCreateInput{
		Title:      "Mockup",
		Purpose:    "Campaign",
		AssigneeID: f.manager.ID,
		Role:       domain.StaffRoleManager,
		Deadline:   f.now.Add(time.Hour),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestCreateTaskWritesCreationLog(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t, f.now.Add(48*time.Hour))

	assert.Equal(t, domain.TaskStatusTodo, task.Status)
	assert.Equal(t, int64(1), task.Version)

	logs, err := f.tasks.ListByTask(context.Background(), task.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.LogFieldTask, logs[0].Field)
	assert.Equal(t, "None", logs[0].OldValue)
	assert.Equal(t, "Created", logs[0].NewValue)
	require.NotNil(t, logs[0].ActorID)
	assert.Equal(t, f.manager.ID, *logs[0].ActorID)
}

func TestUpdateTaskDeadlineExtensionResumesOverdue(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t, f.now.Add(-2*time.Hour))

	// the hourly sweep has already marked it
	_, err := applyStatusChange(task, StatusChange{NewStatus: domain.TaskStatusOverdue, Details: OverdueSweepDetails})
	require.NoError(t, err)
	require.NoError(t, f.tasks.UpdateWithLogs(context.Background(), task, nil, task.Version))

	newDeadline := f.now.Add(24 * time.Hour)
	updated, err := f.service.UpdateTask(context.Background(), f.designer, task.ID, TaskUpdateInput{
		Deadline: &newDeadline,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, updated.Status)

	logs, err := f.tasks.ListByTask(context.Background(), task.ID)
	require.NoError(t, err)
	// creation + deadline + auto status
	require.Len(t, logs, 3)
	assert.Equal(t, domain.LogFieldDeadline, logs[1].Field)
	assert.Equal(t, domain.LogFieldStatus, logs[2].Field)
	assert.Equal(t, "OVERDUE", logs[2].OldValue)
	assert.Equal(t, "IN_PROGRESS", logs[2].NewValue)
}

func TestUpdateTaskDeadlineExtensionResumesBlocked(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t, f.now.Add(4*time.Hour))

	_, err := f.service.UpdateStatus(context.Background(), f.designer, task.ID, StatusUpdateInput{
		Status:        domain.TaskStatusBlocker,
		BlockerReason: "waiting on vendor",
	})
	require.NoError(t, err)

	newDeadline := f.now.Add(48 * time.Hour)
	updated, err := f.service.UpdateTask(context.Background(), f.designer, task.ID, TaskUpdateInput{
		Deadline: &newDeadline,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, updated.Status)
	assert.Nil(t, updated.BlockerReason)

	logs, err := f.tasks.ListByTask(context.Background(), task.ID)
	require.NoError(t, err)
	last := logs[len(logs)-1]
	assert.Equal(t, domain.LogFieldStatus, last.Field)
	assert.Equal(t, "BLOCKER", last.OldValue)
	assert.Equal(t, "IN_PROGRESS", last.NewValue)
}

func TestUpdateTaskExplicitStatusWinsOverDeadlineSideEffect(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t, f.now.Add(-time.Hour))
	_, err := applyStatusChange(task, StatusChange{NewStatus: domain.TaskStatusOverdue})
	require.NoError(t, err)
	require.NoError(t, f.tasks.UpdateWithLogs(context.Background(), task, nil, task.Version))

	newDeadline := f.now.Add(24 * time.Hour)
	status := domain.TaskStatusTodo
	updated, err := f.service.UpdateTask(context.Background(), f.designer, task.ID, TaskUpdateInput{
		Deadline: &newDeadline,
		Status:   &status,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusTodo, updated.Status)
}

func TestUpdateTaskAssigneeCannotTouchManagerFields(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t, f.now.Add(4*time.Hour))

	priority := domain.TaskPriorityLow
	_, err := f.service.UpdateTask(context.Background(), f.designer, task.ID, TaskUpdateInput{
		Priority: &priority,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	title := "New title"
	_, err = f.service.UpdateTask(context.Background(), f.designer, task.ID, TaskUpdateInput{
		Title: &title,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestUpdateTaskNonAssigneeForbidden(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t, f.now.Add(4*time.Hour))

	progress := 50
	_, err := f.service.UpdateTask(context.Background(), f.seller, task.ID, TaskUpdateInput{
		Progress: &progress,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestUpdateTaskVersionConflict(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t, f.now.Add(4*time.Hour))

	// another session bumps the version
	progress := 30
	_, err := f.service.UpdateTask(context.Background(), f.designer, task.ID, TaskUpdateInput{Progress: &progress})
	require.NoError(t, err)

	stale := int64(1)
	progress2 := 60
	_, err = f.service.UpdateTask(context.Background(), f.designer, task.ID, TaskUpdateInput{
		Progress:        &progress2,
		ExpectedVersion: &stale,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
}

func TestUpdateTaskReassignmentLogsNames(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t, f.now.Add(4*time.Hour))

	other := &domain.StaffMember{Name: "Dale", Email: "dale@example.com", Role: domain.StaffRoleDesigner, Active: true}
	require.NoError(t, f.staff.Create(context.Background(), other))

	updated, err := f.service.UpdateTask(context.Background(), f.manager, task.ID, TaskUpdateInput{
		AssigneeID: &other.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, other.ID, updated.AssigneeID)

	logs, err := f.tasks.ListByTask(context.Background(), task.ID)
	require.NoError(t, err)
	last := logs[len(logs)-1]
	assert.Equal(t, domain.LogFieldAssignee, last.Field)
	assert.Equal(t, "Dana", last.OldValue)
	assert.Equal(t, "Dale", last.NewValue)
}

func TestUpdateTaskProgressLogged(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t, f.now.Add(4*time.Hour))

	progress := 75
	_, err := f.service.UpdateTask(context.Background(), f.designer, task.ID, TaskUpdateInput{Progress: &progress})
	require.NoError(t, err)

	logs, err := f.tasks.ListByTask(context.Background(), task.ID)
	require.NoError(t, err)
	last := logs[len(logs)-1]
	assert.Equal(t, domain.LogFieldProgress, last.Field)
	assert.Equal(t, "0", last.OldValue)
	assert.Equal(t, "75", last.NewValue)

	bad := 140
	_, err = f.service.UpdateTask(context.Background(), f.designer, task.ID, TaskUpdateInput{Progress: &bad})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestUpdateStatusNoOpStillLogs(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t, f.now.Add(4*time.Hour))

	_, err := f.service.UpdateStatus(context.Background(), f.designer, task.ID, StatusUpdateInput{
		Status: domain.TaskStatusDone,
	})
	require.NoError(t, err)

	_, err = f.service.UpdateStatus(context.Background(), f.designer, task.ID, StatusUpdateInput{
		Status: domain.TaskStatusDone,
	})
	require.NoError(t, err)

	logs, err := f.tasks.ListByTask(context.Background(), task.ID)
	require.NoError(t, err)
	last := logs[len(logs)-1]
	assert.Equal(t, "DONE", last.OldValue)
	assert.Equal(t, "DONE", last.NewValue)
}

func TestAddCommentUsesFixedMarkers(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t, f.now.Add(4*time.Hour))

	entry, err := f.service.AddComment(context.Background(), f.designer, task.ID, "Waiting for brand assets")
	require.NoError(t, err)
	assert.Equal(t, domain.LogFieldComment, entry.Field)
	assert.Equal(t, "-", entry.OldValue)
	assert.Equal(t, "Note Added", entry.NewValue)
	require.NotNil(t, entry.Details)
	assert.Equal(t, "Waiting for brand assets", *entry.Details)
}

func TestDeleteTaskManagerOnly(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t, f.now.Add(4*time.Hour))

	err := f.service.DeleteTask(context.Background(), f.designer, task.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	require.NoError(t, f.service.DeleteTask(context.Background(), f.manager, task.ID))
	_, _, err = f.service.GetTask(context.Background(), f.manager, task.ID)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestListTasksProjectsOverdueWithoutPersisting(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t, f.now.Add(-time.Hour))

	listed, err := f.service.ListTasks(context.Background(), f.designer, TaskListFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, domain.TaskStatusOverdue, listed[0].Status)

	// the projection is advisory: the store still holds TODO until the
	// sweep runs
	stored, err := f.tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusTodo, stored.Status)
}

func TestGetTaskVisibility(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t, f.now.Add(4*time.Hour))

	// other department, not assignee
	_, _, err := f.service.GetTask(context.Background(), f.seller, task.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	// same department sees the board entry
	colleague := &domain.StaffMember{Name: "Drew", Email: "drew@example.com", Role: domain.StaffRoleDesigner, Active: true}
	require.NoError(t, f.staff.Create(context.Background(), colleague))
	_, _, err = f.service.GetTask(context.Background(), colleague, task.ID)
	require.NoError(t, err)
}

func TestUpdateTaskBlockerReasonEditWithoutStatusChange(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t, f.now.Add(4*time.Hour))

	_, err := f.service.UpdateStatus(context.Background(), f.designer, task.ID, StatusUpdateInput{
		Status:           domain.TaskStatusBlocker,
		BlockerReason:    "waiting on vendor",
		BlockerRelatedTo: "Vendor Co",
	})
	require.NoError(t, err)

	reason := "waiting on legal"
	updated, err := f.service.UpdateTask(context.Background(), f.designer, task.ID, TaskUpdateInput{
		BlockerReason: &reason,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusBlocker, updated.Status)
	require.NotNil(t, updated.BlockerReason)
	assert.Equal(t, "waiting on legal", *updated.BlockerReason)
	require.NotNil(t, updated.BlockerRelatedTo)
	assert.Equal(t, "Vendor Co", *updated.BlockerRelatedTo)

	logs, err := f.tasks.ListByTask(context.Background(), task.ID)
	require.NoError(t, err)
	last := logs[len(logs)-1]
	assert.Equal(t, domain.LogFieldStatus, last.Field)
	assert.Equal(t, "BLOCKER", last.OldValue)
	assert.Equal(t, "BLOCKER", last.NewValue)
	require.NotNil(t, last.Details)
	assert.Equal(t, "waiting on legal", *last.Details)
}

func TestUpdateTaskBlockerFieldsRequireBlockedTask(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t, f.now.Add(4*time.Hour))

	reason := "waiting on vendor"
	_, err := f.service.UpdateTask(context.Background(), f.designer, task.ID, TaskUpdateInput{
		BlockerReason: &reason,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	stored, err := f.tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusTodo, stored.Status)
	assert.Nil(t, stored.BlockerReason)
}

func TestUpdateTaskProgressRejectedWhileDone(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t, f.now.Add(4*time.Hour))

	_, err := f.service.UpdateStatus(context.Background(), f.designer, task.ID, StatusUpdateInput{
		Status: domain.TaskStatusDone,
	})
	require.NoError(t, err)

	progress := 50
	_, err = f.service.UpdateTask(context.Background(), f.designer, task.ID, TaskUpdateInput{
		Progress: &progress,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	stored, err := f.tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, stored.Progress)
}
