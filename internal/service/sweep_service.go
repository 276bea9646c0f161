package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dtcstudio/taskboard/internal/domain"
	"github.com/dtcstudio/taskboard/internal/events"
	"github.com/dtcstudio/taskboard/internal/observability"
	"github.com/dtcstudio/taskboard/internal/persistence"
	"github.com/dtcstudio/taskboard/internal/repository"
)

// deadlineReminderWindow is how far ahead the reminder job looks.
const deadlineReminderWindow = 2 * time.Hour

// SweepService owns the scheduled background passes over the task store:
// the authoritative overdue sweep and the deadline reminder scan.
type SweepService struct {
	tasks      repository.TaskRepository
	cache      persistence.BoardCache
	deduper    persistence.ReminderDeduper
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// SweepDependencies bundles collaborators for the sweep service.
type SweepDependencies struct {
	TaskRepo   repository.TaskRepository
	Cache      persistence.BoardCache
	Deduper    persistence.ReminderDeduper
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewSweepService constructs the service.
func NewSweepService(deps SweepDependencies) *SweepService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := deps.Cache
	if cache == nil {
		cache = persistence.NewBoardCache(nil, 0, logger)
	}
	deduper := deps.Deduper
	if deduper == nil {
		deduper = persistence.NewReminderDeduper(nil, 0)
	}
	return &SweepService{
		tasks:      deps.TaskRepo,
		cache:      cache,
		deduper:    deduper,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        now,
	}
}

// RunOverdueSweep marks every task whose deadline has passed and whose
// status is neither DONE nor OVERDUE. Each task is updated independently
// so one failure cannot stall the pass; tasks that changed under the
// sweep are skipped and picked up on the next run.
func (s *SweepService) RunOverdueSweep(ctx context.Context) (int, error) {
	now := s.now()
	candidates, err := s.tasks.ListOverdueCandidates(ctx, now)
	if err != nil {
		return 0, err
	}

	marked := 0
	touchedRoles := make(map[domain.StaffRole]struct{})
	for i := range candidates {
		task := candidates[i]
		if !task.OverdueEligible(now) {
			continue
		}
		oldStatus := task.Status
		entry, err := applyStatusChange(&task, StatusChange{
			NewStatus: domain.TaskStatusOverdue,
			Details:   OverdueSweepDetails,
		})
		if err != nil {
			s.logger.Error("overdue sweep transition failed",
				zap.String("task_id", task.ID), zap.Error(err))
			continue
		}
		if err := s.tasks.UpdateWithLogs(ctx, &task, []domain.UpdateLog{entry}, task.Version); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				// someone edited the task mid-sweep; the next run
				// re-evaluates it
				continue
			}
			s.logger.Error("overdue sweep update failed",
				zap.String("task_id", task.ID), zap.Error(err))
			continue
		}

		marked++
		touchedRoles[task.Role] = struct{}{}
		s.publish(ctx, events.Event{
			Type:   events.EventTaskOverdue,
			TaskID: task.ID,
			Actor:  events.SystemActor(),
			Payload: events.TaskOverduePayload{
				AssigneeID: task.AssigneeID,
				Deadline:   task.Deadline,
			},
		})
		s.logger.Info("task marked overdue",
			zap.String("task_id", task.ID),
			zap.String("previous_status", string(oldStatus)),
			zap.Time("deadline", task.Deadline))
	}

	for role := range touchedRoles {
		s.cache.Invalidate(ctx, role)
	}
	s.metrics.RecordSweep("overdue", marked)
	if marked > 0 {
		s.logger.Info("overdue sweep finished", zap.Int("marked", marked))
	}
	return marked, nil
}

// RunDeadlineReminders emits a deadline-approaching event for every
// unfinished task due within the next two hours, at most once per task
// per dedupe window.
func (s *SweepService) RunDeadlineReminders(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.tasks.ListDueBetween(ctx, now, now.Add(deadlineReminderWindow))
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		task := due[i]
		if task.Status == domain.TaskStatusDone {
			continue
		}
		if !s.deduper.ShouldSend(ctx, task.ID) {
			continue
		}
		sent++
		s.publish(ctx, events.Event{
			Type:   events.EventDeadlineApproaching,
			TaskID: task.ID,
			Actor:  events.SystemActor(),
			Payload: events.DeadlineApproachingPayload{
				AssigneeID: task.AssigneeID,
				Deadline:   task.Deadline,
			},
		})
	}

	s.metrics.RecordSweep("deadline_reminder", sent)
	return sent, nil
}

func (s *SweepService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now()
	_ = s.dispatcher.Publish(ctx, event)
}
