package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtcstudio/taskboard/internal/domain"
	"github.com/dtcstudio/taskboard/internal/events"
	"github.com/dtcstudio/taskboard/internal/observability"
	"github.com/dtcstudio/taskboard/internal/repository/memory"
)

type sweepFixture struct {
	service *SweepService
	tasks   *memory.TaskRepo
	events  *eventRecorder
	now     time.Time
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) byType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()

	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	tasks := memory.NewTaskRepo()
	tasks.NowFunc = func() time.Time { return now }

	recorder := &eventRecorder{}
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventTaskOverdue, recorder.record)
	dispatcher.Subscribe(events.EventDeadlineApproaching, recorder.record)

	svc := NewSweepService(SweepDependencies{
		TaskRepo:   tasks,
		Dispatcher: dispatcher,
		Metrics:    observability.NewMetrics(),
		Now:        func() time.Time { return now },
	})
	return &sweepFixture{service: svc, tasks: tasks, events: recorder, now: now}
}

func (f *sweepFixture) seedTask(t *testing.T, status domain.TaskStatus, deadline time.Time) *domain.Task {
	t.Helper()
	task := &domain.Task{
		Title:      "task",
		Purpose:    "p",
		AssigneeID: "staff-1",
		Role:       domain.StaffRoleDesigner,
		Status:     status,
		Priority:   domain.TaskPriorityMedium,
		Deadline:   deadline,
	}
	if status == domain.TaskStatusBlocker {
		reason := "waiting"
		task.BlockerReason = &reason
	}
	require.NoError(t, f.tasks.Create(context.Background(), task, nil))
	return task
}

func TestOverdueSweepMarksEligibleTasks(t *testing.T) {
	f := newSweepFixture(t)
	todo := f.seedTask(t, domain.TaskStatusTodo, f.now.Add(-2*time.Hour))
	inProgress := f.seedTask(t, domain.TaskStatusInProgress, f.now.Add(-time.Minute))
	blocked := f.seedTask(t, domain.TaskStatusBlocker, f.now.Add(-time.Hour))
	done := f.seedTask(t, domain.TaskStatusDone, f.now.Add(-time.Hour))
	future := f.seedTask(t, domain.TaskStatusTodo, f.now.Add(time.Hour))

	marked, err := f.service.RunOverdueSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, marked)

	for _, id := range []string{todo.ID, inProgress.ID, blocked.ID} {
		task, err := f.tasks.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusOverdue, task.Status, id)

		logs, err := f.tasks.ListByTask(context.Background(), id)
		require.NoError(t, err)
		last := logs[len(logs)-1]
		assert.Equal(t, domain.LogFieldStatus, last.Field)
		assert.Equal(t, "OVERDUE", last.NewValue)
		require.NotNil(t, last.Details)
		assert.Equal(t, OverdueSweepDetails, *last.Details)
		assert.Nil(t, last.ActorID)
	}

	// blocker fields cleared on the way out of BLOCKER
	blockedAfter, err := f.tasks.GetByID(context.Background(), blocked.ID)
	require.NoError(t, err)
	assert.Nil(t, blockedAfter.BlockerReason)

	doneAfter, err := f.tasks.GetByID(context.Background(), done.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusDone, doneAfter.Status)

	futureAfter, err := f.tasks.GetByID(context.Background(), future.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusTodo, futureAfter.Status)

	assert.Len(t, f.events.byType(events.EventTaskOverdue), 3)
}

func TestOverdueSweepIdempotent(t *testing.T) {
	f := newSweepFixture(t)
	f.seedTask(t, domain.TaskStatusTodo, f.now.Add(-time.Hour))

	first, err := f.service.RunOverdueSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := f.service.RunOverdueSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second)
}

func TestOverdueSweepExactBoundaryNotMarked(t *testing.T) {
	f := newSweepFixture(t)
	// deadline == now is not strictly before now
	boundary := f.seedTask(t, domain.TaskStatusTodo, f.now)

	marked, err := f.service.RunOverdueSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, marked)

	task, err := f.tasks.GetByID(context.Background(), boundary.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusTodo, task.Status)
}

type fakeDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *fakeDeduper) ShouldSend(_ context.Context, taskID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if d.seen[taskID] {
		return false
	}
	d.seen[taskID] = true
	return true
}

func TestDeadlineRemindersWindowAndDedupe(t *testing.T) {
	f := newSweepFixture(t)
	deduper := &fakeDeduper{}
	f.service.deduper = deduper

	dueSoon := f.seedTask(t, domain.TaskStatusInProgress, f.now.Add(90*time.Minute))
	f.seedTask(t, domain.TaskStatusInProgress, f.now.Add(5*time.Hour))
	f.seedTask(t, domain.TaskStatusDone, f.now.Add(time.Hour))

	sent, err := f.service.RunDeadlineReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	reminders := f.events.byType(events.EventDeadlineApproaching)
	require.Len(t, reminders, 1)
	assert.Equal(t, dueSoon.ID, reminders[0].TaskID)

	// second scan within the window is suppressed
	sent, err = f.service.RunDeadlineReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}
