package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/dtcstudio/taskboard/internal/domain"
	"github.com/dtcstudio/taskboard/internal/events"
	"github.com/dtcstudio/taskboard/internal/persistence"
	"github.com/dtcstudio/taskboard/internal/repository"
	apperrors "github.com/dtcstudio/taskboard/pkg/util/errorutil"
)

// TaskService coordinates the task lifecycle: creation, field updates,
// status transitions, comments, and deletion. Every mutation flows
// through the permission gate and produces its audit entries atomically
// with the field change.
type TaskService struct {
	tasks      repository.TaskRepository
	logs       repository.UpdateLogRepository
	staff      repository.StaffRepository
	cache      persistence.BoardCache
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TaskDependencies bundles collaborators for the task service.
type TaskDependencies struct {
	TaskRepo   repository.TaskRepository
	LogRepo    repository.UpdateLogRepository
	StaffRepo  repository.StaffRepository
	Cache      persistence.BoardCache
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
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
	return &TaskService{
		tasks:      deps.TaskRepo,
		logs:       deps.LogRepo,
		staff:      deps.StaffRepo,
		cache:      cache,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        now,
	}
}

// TaskCreateInput describes task creation payload.
type TaskCreateInput struct {
	Title       string
	Purpose     string
	Description string
	AssigneeID  string
	Role        domain.StaffRole
	Priority    domain.TaskPriority
	Deadline    time.Time
}

// TaskUpdateInput describes a batch of proposed field changes. Nil
// pointers mean "leave unchanged". ExpectedVersion, when supplied,
// rejects the batch if another actor has updated the task since the
// caller last read it.
type TaskUpdateInput struct {
	Title            *string
	Purpose          *string
	Description      *string
	AssigneeID       *string
	Role             *domain.StaffRole
	Priority         *domain.TaskPriority
	Progress         *int
	Deadline         *time.Time
	Status           *domain.TaskStatus
	BlockerReason    *string
	BlockerRelatedTo *string
	Comments         []string
	Details          string
	ExpectedVersion  *int64
}

// TaskListFilter describes listing parameters.
type TaskListFilter struct {
	Role       *domain.StaffRole
	Statuses   []domain.TaskStatus
	AssigneeID *string
	Limit      int
	Offset     int
}

// CreateTask creates a task. Manager-only.
func (s *TaskService) CreateTask(ctx context.Context, actor *domain.StaffMember, input TaskCreateInput) (*domain.Task, error) {
	if !actor.IsManager() {
		return nil, apperrors.NewForbidden("task creation is manager-only")
	}
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Purpose) == "" {
		return nil, apperrors.NewValidationError("title and purpose required", nil)
	}
	if !domain.DepartmentRole(input.Role) {
		return nil, apperrors.NewValidationError("task role must be a department role", map[string]any{"role": input.Role})
	}
	if input.Deadline.IsZero() {
		return nil, apperrors.NewValidationError("deadline required", nil)
	}
	if input.Priority == "" {
		input.Priority = domain.TaskPriorityMedium
	}
	if !domain.ValidPriority(input.Priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}

	assignee, err := s.requireAssignable(ctx, input.AssigneeID, input.Role)
	if err != nil {
		return nil, err
	}

	task := &domain.Task{
		Title:       strings.TrimSpace(input.Title),
		Purpose:     strings.TrimSpace(input.Purpose),
		Description: strings.TrimSpace(input.Description),
		AssigneeID:  assignee.ID,
		Role:        input.Role,
		Status:      domain.TaskStatusTodo,
		Priority:    input.Priority,
		Progress:    0,
		Deadline:    input.Deadline,
		CreatedByID: actor.ID,
	}

	initial := &domain.UpdateLog{
		Field:    domain.LogFieldTask,
		OldValue: "None",
		NewValue: "Created",
		ActorID:  &actor.ID,
	}
	detail := fmt.Sprintf("Created by %s", actor.Name)
	initial.Details = &detail

	if err := s.tasks.Create(ctx, task, initial); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.cache.Invalidate(ctx, task.Role)
	s.publishEvent(ctx, events.Event{
		Type:   events.EventTaskCreated,
		TaskID: task.ID,
		Actor:  events.StaffActor(actor.ID),
		Payload: events.TaskCreatedPayload{
			Title:      task.Title,
			Role:       task.Role,
			Priority:   task.Priority,
			AssigneeID: task.AssigneeID,
			Deadline:   task.Deadline,
		},
	})
	return task, nil
}

// GetTask fetches a task with its full history, enforcing visibility.
// The returned task carries the advisory overdue projection.
func (s *TaskService) GetTask(ctx context.Context, actor *domain.StaffMember, taskID string) (*domain.Task, []domain.UpdateLog, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if !canViewTask(actor, task) {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	history, err := s.logs.ListByTask(ctx, task.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	s.projectOverdue(task)
	return task, history, nil
}

// ListTasks returns tasks visible to the actor. Plain role-board queries
// are served from the projection cache when warm.
func (s *TaskService) ListTasks(ctx context.Context, actor *domain.StaffMember, filter TaskListFilter) ([]domain.Task, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}

	cacheKey := s.boardCacheKey(actor, filter)
	if cacheKey != "" {
		if tasks, ok := s.cache.Get(ctx, cacheKey); ok {
			s.projectOverdueAll(tasks)
			return tasks, nil
		}
	}

	repoFilter := repository.TaskFilter{
		Role:       filter.Role,
		Statuses:   filter.Statuses,
		AssigneeID: filter.AssigneeID,
		VisibleTo:  actor,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	tasks, err := s.tasks.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if cacheKey != "" {
		s.cache.Set(ctx, cacheKey, tasks)
	}
	s.projectOverdueAll(tasks)
	return tasks, nil
}

// UpdateTask applies a batch of field changes. The diff is computed
// against the freshly read row, each changed field yields one audit
// entry, and everything commits in a single transaction keyed on the
// task version.
func (s *TaskService) UpdateTask(ctx context.Context, actor *domain.StaffMember, taskID string, input TaskUpdateInput) (*domain.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := authorizeFieldChanges(actor, task, input); err != nil {
		return nil, err
	}
	if input.ExpectedVersion != nil && *input.ExpectedVersion != task.Version {
		return nil, apperrors.NewConflict("task was modified by another user", map[string]any{
			"expected_version": *input.ExpectedVersion,
			"current_version":  task.Version,
		})
	}

	oldRole := task.Role
	var logEntries []domain.UpdateLog
	var statusPayload *events.TaskStatusChangedPayload
	var assignPayload *events.TaskAssignedPayload

	// Explicit status change first so the deadline side effect below can
	// defer to it.
	if input.Status != nil {
		change := StatusChange{
			NewStatus: *input.Status,
			Details:   input.Details,
			ActorID:   &actor.ID,
		}
		if input.BlockerReason != nil {
			change.BlockerReason = *input.BlockerReason
		}
		if input.BlockerRelatedTo != nil {
			change.BlockerRelatedTo = *input.BlockerRelatedTo
		}
		oldStatus := task.Status
		entry, err := applyStatusChange(task, change)
		if err != nil {
			return nil, err
		}
		logEntries = append(logEntries, entry)
		statusPayload = &events.TaskStatusChangedPayload{
			OldStatus:     oldStatus,
			NewStatus:     task.Status,
			BlockerReason: change.BlockerReason,
			Details:       input.Details,
		}
	} else if input.BlockerReason != nil || input.BlockerRelatedTo != nil {
		// Blocker fields without a status change edit the active blocker
		// in place. Re-running the BLOCKER transition keeps the reason
		// validation and the audit entry in one place.
		if task.Status != domain.TaskStatusBlocker {
			return nil, apperrors.NewValidationError("blocker fields require BLOCKER status", map[string]any{"status": task.Status})
		}
		change := StatusChange{
			NewStatus: domain.TaskStatusBlocker,
			Details:   input.Details,
			ActorID:   &actor.ID,
		}
		if input.BlockerReason != nil {
			change.BlockerReason = *input.BlockerReason
		} else if task.BlockerReason != nil {
			change.BlockerReason = *task.BlockerReason
		}
		if input.BlockerRelatedTo != nil {
			change.BlockerRelatedTo = *input.BlockerRelatedTo
		} else if task.BlockerRelatedTo != nil {
			change.BlockerRelatedTo = *task.BlockerRelatedTo
		}
		entry, err := applyStatusChange(task, change)
		if err != nil {
			return nil, err
		}
		logEntries = append(logEntries, entry)
	}

	if input.Title != nil && strings.TrimSpace(*input.Title) != task.Title {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title required", nil)
		}
		task.Title = title
	}
	if input.Purpose != nil && strings.TrimSpace(*input.Purpose) != task.Purpose {
		purpose := strings.TrimSpace(*input.Purpose)
		if purpose == "" {
			return nil, apperrors.NewValidationError("purpose required", nil)
		}
		task.Purpose = purpose
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}

	if input.Role != nil && *input.Role != task.Role {
		if !domain.DepartmentRole(*input.Role) {
			return nil, apperrors.NewValidationError("task role must be a department role", map[string]any{"role": *input.Role})
		}
		task.Role = *input.Role
	}

	if input.AssigneeID != nil && *input.AssigneeID != task.AssigneeID {
		newAssignee, err := s.requireAssignable(ctx, *input.AssigneeID, task.Role)
		if err != nil {
			return nil, err
		}
		oldName := s.staffName(ctx, task.AssigneeID)
		oldID := task.AssigneeID
		task.AssigneeID = newAssignee.ID
		logEntries = append(logEntries, s.fieldLog(task.ID, domain.LogFieldAssignee, oldName, newAssignee.Name, &actor.ID))
		assignPayload = &events.TaskAssignedPayload{OldAssigneeID: oldID, NewAssigneeID: newAssignee.ID}
	} else if input.Role != nil && task.Role != oldRole {
		// role changed without reassignment: the current assignee must
		// still belong to the new department
		if _, err := s.requireAssignable(ctx, task.AssigneeID, task.Role); err != nil {
			return nil, err
		}
	}

	if input.Priority != nil && *input.Priority != task.Priority {
		if !domain.ValidPriority(*input.Priority) {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *input.Priority})
		}
		task.Priority = *input.Priority
	}

	if input.Deadline != nil && !input.Deadline.Equal(task.Deadline) {
		oldDeadline := task.Deadline
		task.Deadline = *input.Deadline
		logEntries = append(logEntries, s.fieldLog(task.ID,
			domain.LogFieldDeadline,
			oldDeadline.Format(time.RFC3339),
			task.Deadline.Format(time.RFC3339),
			&actor.ID))

		// Extending the deadline of a stalled task resumes it: OVERDUE
		// on any deadline edit, BLOCKER only when the deadline actually
		// moves out. An explicit status or a blocker-field edit in the
		// same request wins over the side effect.
		if input.Status == nil && input.BlockerReason == nil && input.BlockerRelatedTo == nil {
			resume := task.Status == domain.TaskStatusOverdue ||
				(task.Status == domain.TaskStatusBlocker && task.Deadline.After(oldDeadline))
			if resume {
				oldStatus := task.Status
				entry, err := applyStatusChange(task, StatusChange{
					NewStatus: domain.TaskStatusInProgress,
					Details:   "Deadline extended",
					ActorID:   &actor.ID,
				})
				if err != nil {
					return nil, err
				}
				logEntries = append(logEntries, entry)
				statusPayload = &events.TaskStatusChangedPayload{
					OldStatus: oldStatus,
					NewStatus: domain.TaskStatusInProgress,
					Details:   "Deadline extended",
				}
			}
		}
	}

	if input.Progress != nil && *input.Progress != task.Progress {
		if *input.Progress < 0 || *input.Progress > 100 {
			return nil, apperrors.NewValidationError("progress must be within 0..100", map[string]any{"progress": *input.Progress})
		}
		if task.Status == domain.TaskStatusDone {
			return nil, apperrors.NewValidationError("progress is pinned while DONE", map[string]any{"progress": *input.Progress})
		}
		logEntries = append(logEntries, s.fieldLog(task.ID,
			domain.LogFieldProgress,
			strconv.Itoa(task.Progress),
			strconv.Itoa(*input.Progress),
			&actor.ID))
		task.Progress = *input.Progress
	}

	for _, body := range input.Comments {
		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}
		logEntries = append(logEntries, domain.NewComment(task.ID, body, &actor.ID))
	}

	if err := s.persistUpdate(ctx, task, logEntries); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, oldRole)
	if task.Role != oldRole {
		s.cache.Invalidate(ctx, task.Role)
	}
	if statusPayload != nil {
		s.publishEvent(ctx, events.Event{
			Type:    events.EventTaskStatusChanged,
			TaskID:  task.ID,
			Actor:   events.StaffActor(actor.ID),
			Payload: *statusPayload,
		})
	}
	if assignPayload != nil {
		s.publishEvent(ctx, events.Event{
			Type:    events.EventTaskAssigned,
			TaskID:  task.ID,
			Actor:   events.StaffActor(actor.ID),
			Payload: *assignPayload,
		})
	}
	return task, nil
}

// StatusUpdateInput describes an explicit status change request.
type StatusUpdateInput struct {
	Status           domain.TaskStatus
	BlockerReason    string
	BlockerRelatedTo string
	Details          string
}

// UpdateStatus performs an explicit status transition.
func (s *TaskService) UpdateStatus(ctx context.Context, actor *domain.StaffMember, taskID string, input StatusUpdateInput) (*domain.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !canEditTask(actor, task) {
		return nil, apperrors.NewForbidden("access denied")
	}

	oldStatus := task.Status
	entry, err := applyStatusChange(task, StatusChange{
		NewStatus:        input.Status,
		BlockerReason:    input.BlockerReason,
		BlockerRelatedTo: input.BlockerRelatedTo,
		Details:          input.Details,
		ActorID:          &actor.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.persistUpdate(ctx, task, []domain.UpdateLog{entry}); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, task.Role)
	s.publishEvent(ctx, events.Event{
		Type:   events.EventTaskStatusChanged,
		TaskID: task.ID,
		Actor:  events.StaffActor(actor.ID),
		Payload: events.TaskStatusChangedPayload{
			OldStatus:     oldStatus,
			NewStatus:     task.Status,
			BlockerReason: input.BlockerReason,
			Details:       input.Details,
		},
	})
	return task, nil
}

// AddComment appends a freestanding comment entry to the history.
func (s *TaskService) AddComment(ctx context.Context, actor *domain.StaffMember, taskID, body string) (*domain.UpdateLog, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body required", nil)
	}
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !canEditTask(actor, task) {
		return nil, apperrors.NewForbidden("access denied")
	}

	entry := domain.NewComment(task.ID, body, &actor.ID)
	if err := s.logs.Append(ctx, &entry); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventCommentAdded,
		TaskID: task.ID,
		Actor:  events.StaffActor(actor.ID),
		Payload: events.CommentAddedPayload{
			AuthorID: actor.ID,
			Preview:  stringPreview(body, 120),
		},
	})
	return &entry, nil
}

// DeleteTask removes a task and its history. Manager-only; the deletion
// is logged before the rows go away.
func (s *TaskService) DeleteTask(ctx context.Context, actor *domain.StaffMember, taskID string) error {
	if !actor.IsManager() {
		return apperrors.NewForbidden("task deletion is manager-only")
	}
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("task", map[string]any{"task_id": taskID})
		}
		return apperrors.MapError(err)
	}

	s.logger.Info("task deleted",
		zap.String("task_id", taskID),
		zap.String("title", task.Title),
		zap.String("deleted_by", actor.ID))
	s.cache.Invalidate(ctx, task.Role)
	s.publishEvent(ctx, events.Event{
		Type:    events.EventTaskDeleted,
		TaskID:  taskID,
		Actor:   events.StaffActor(actor.ID),
		Payload: events.TaskDeletedPayload{Title: task.Title},
	})
	return nil
}

// ListAssignableStaff returns the active staff whose role matches the task
// department, the only legal reassignment candidates.
func (s *TaskService) ListAssignableStaff(ctx context.Context, role domain.StaffRole) ([]domain.StaffMember, error) {
	if !domain.DepartmentRole(role) {
		return nil, apperrors.NewValidationError("department role required", map[string]any{"role": role})
	}
	active := true
	staff, err := s.staff.List(ctx, repository.StaffFilter{Role: &role, Active: &active})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

func (s *TaskService) getTask(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task", map[string]any{"task_id": taskID})
		}
		return nil, apperrors.MapError(err)
	}
	return task, nil
}

func (s *TaskService) persistUpdate(ctx context.Context, task *domain.Task, logs []domain.UpdateLog) error {
	err := s.tasks.UpdateWithLogs(ctx, task, logs, task.Version)
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrVersionConflict) {
		return apperrors.NewConflict("task was modified by another user", nil)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("task", map[string]any{"task_id": task.ID})
	}
	return apperrors.MapError(err)
}

func (s *TaskService) requireAssignable(ctx context.Context, staffID string, role domain.StaffRole) (*domain.StaffMember, error) {
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("assignee not found", map[string]any{"staff_id": staffID})
		}
		return nil, apperrors.MapError(err)
	}
	if !staff.Active {
		return nil, apperrors.NewValidationError("assignee inactive", map[string]any{"staff_id": staffID})
	}
	if staff.Role != role {
		return nil, apperrors.NewValidationError("assignee role does not match task department", map[string]any{
			"staff_role": staff.Role,
			"task_role":  role,
		})
	}
	return staff, nil
}

func (s *TaskService) staffName(ctx context.Context, staffID string) string {
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return "Unknown"
	}
	return staff.Name
}

func (s *TaskService) fieldLog(taskID string, field domain.LogField, oldVal, newVal string, actorID *string) domain.UpdateLog {
	return domain.UpdateLog{
		TaskID:   taskID,
		Field:    field,
		OldValue: oldVal,
		NewValue: newVal,
		ActorID:  actorID,
	}
}

// projectOverdue applies the advisory read-path overdue projection: the
// same predicate as the authoritative sweep, rendered without mutating
// the store.
func (s *TaskService) projectOverdue(task *domain.Task) {
	if task.OverdueEligible(s.now()) {
		task.Status = domain.TaskStatusOverdue
	}
}

func (s *TaskService) projectOverdueAll(tasks []domain.Task) {
	now := s.now()
	for i := range tasks {
		if tasks[i].OverdueEligible(now) {
			tasks[i].Status = domain.TaskStatusOverdue
		}
	}
}

// boardCacheKey returns "" when the query is too specific to cache.
func (s *TaskService) boardCacheKey(actor *domain.StaffMember, filter TaskListFilter) string {
	if !actor.IsManager() {
		return ""
	}
	if filter.Role == nil || filter.AssigneeID != nil || len(filter.Statuses) > 0 || filter.Offset > 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", *filter.Role, filter.Limit)
}

func (s *TaskService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
