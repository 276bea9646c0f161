package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/dtcstudio/taskboard/internal/domain"
	"github.com/dtcstudio/taskboard/internal/events"
	"github.com/dtcstudio/taskboard/internal/notify"
	"github.com/dtcstudio/taskboard/internal/repository"
	apperrors "github.com/dtcstudio/taskboard/pkg/util/errorutil"
)

// NotificationService turns domain events into persisted notifications
// and pushes them to staff chats. Delivery failures are logged and the
// in-app row is kept, so nothing is lost when the bot is down.
type NotificationService struct {
	notifications repository.NotificationRepository
	tasks         repository.TaskRepository
	staff         repository.StaffRepository
	dispatcher    events.Dispatcher
	sender        notify.Sender
	logger        *zap.Logger
	now           func() time.Time
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	TaskRepo         repository.TaskRepository
	StaffRepo        repository.StaffRepository
	Dispatcher       events.Dispatcher
	Sender           notify.Sender
	Logger           *zap.Logger
	Now              func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	sender := deps.Sender
	if sender == nil {
		sender = notify.NoopSender{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &NotificationService{
		notifications: deps.NotificationRepo,
		tasks:         deps.TaskRepo,
		staff:         deps.StaffRepo,
		dispatcher:    deps.Dispatcher,
		sender:        sender,
		logger:        logger,
		now:           now,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTaskCreated, n.handleTaskCreated)
	n.dispatcher.Subscribe(events.EventTaskAssigned, n.handleTaskAssigned)
	n.dispatcher.Subscribe(events.EventTaskStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventTaskOverdue, n.handleTaskOverdue)
	n.dispatcher.Subscribe(events.EventDeadlineApproaching, n.handleDeadlineApproaching)
}

// ListForStaff returns a staff member's notification feed.
func (n *NotificationService) ListForStaff(ctx context.Context, staffID string, limit, offset int) ([]domain.Notification, error) {
	items, err := n.notifications.ListByStaff(ctx, staffID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// MarkRead marks one of the staff member's notifications as read.
func (n *NotificationService) MarkRead(ctx context.Context, staffID, notificationID string) error {
	if err := n.notifications.MarkRead(ctx, staffID, notificationID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", map[string]any{"notification_id": notificationID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// SendDailyReportReminders nudges every active non-manager who has a
// report pending. Managers review reports, they do not file them.
func (n *NotificationService) SendDailyReportReminders(ctx context.Context) (int, error) {
	active := true
	members, err := n.staff.List(ctx, repository.StaffFilter{Active: &active})
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range members {
		member := members[i]
		if member.IsManager() {
			continue
		}
		n.deliver(ctx, &member, nil, domain.NotificationDailyReportReminder,
			"Don't forget to submit your daily report before end of day.")
		sent++
	}
	return sent, nil
}

func (n *NotificationService) handleTaskCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskCreatedPayload)
	if !ok {
		return nil
	}
	msg := fmt.Sprintf("New task assigned: %q, due %s", payload.Title, payload.Deadline.Format("Jan 2 15:04"))
	n.deliverTo(ctx, payload.AssigneeID, &event.TaskID, domain.NotificationTaskAssigned, msg)
	return nil
}

func (n *NotificationService) handleTaskAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskAssignedPayload)
	if !ok {
		return nil
	}
	task, err := n.tasks.GetByID(ctx, event.TaskID)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("Task %q was assigned to you", task.Title)
	n.deliverTo(ctx, payload.NewAssigneeID, &event.TaskID, domain.NotificationTaskAssigned, msg)
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskStatusChangedPayload)
	if !ok {
		return nil
	}
	if payload.OldStatus == payload.NewStatus {
		return nil
	}
	task, err := n.tasks.GetByID(ctx, event.TaskID)
	if err != nil {
		return err
	}

	switch payload.NewStatus {
	case domain.TaskStatusBlocker:
		msg := fmt.Sprintf("Task %q is blocked: %s", task.Title, payload.BlockerReason)
		n.deliverTo(ctx, task.AssigneeID, &event.TaskID, domain.NotificationTaskBlocked, msg)
		if task.CreatedByID != "" && task.CreatedByID != task.AssigneeID {
			n.deliverTo(ctx, task.CreatedByID, &event.TaskID, domain.NotificationTaskBlocked, msg)
		}
	case domain.TaskStatusDone:
		if task.CreatedByID != "" {
			msg := fmt.Sprintf("Task %q was completed", task.Title)
			n.deliverTo(ctx, task.CreatedByID, &event.TaskID, domain.NotificationStatusChanged, msg)
		}
	default:
		// TODO/IN_PROGRESS flips are visible on the board, no ping
	}
	return nil
}

func (n *NotificationService) handleTaskOverdue(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskOverduePayload)
	if !ok {
		return nil
	}
	task, err := n.tasks.GetByID(ctx, event.TaskID)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("Task %q is overdue (deadline was %s)", task.Title, payload.Deadline.Format("Jan 2 15:04"))
	n.deliverTo(ctx, payload.AssigneeID, &event.TaskID, domain.NotificationTaskOverdue, msg)
	return nil
}

func (n *NotificationService) handleDeadlineApproaching(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.DeadlineApproachingPayload)
	if !ok {
		return nil
	}
	task, err := n.tasks.GetByID(ctx, event.TaskID)
	if err != nil {
		return err
	}

	// Redis dedupe already gates the event, the table is the backstop
	// when Redis is not configured.
	already, err := n.notifications.SentSince(ctx, event.TaskID, domain.NotificationDeadlineApproaching, n.now().Add(-time.Hour))
	if err == nil && already {
		return nil
	}

	msg := fmt.Sprintf("Task %q is due at %s", task.Title, payload.Deadline.Format("15:04"))
	n.deliverTo(ctx, payload.AssigneeID, &event.TaskID, domain.NotificationDeadlineApproaching, msg)
	return nil
}

func (n *NotificationService) deliverTo(ctx context.Context, staffID string, taskID *string, kind domain.NotificationKind, message string) {
	member, err := n.staff.GetByID(ctx, staffID)
	if err != nil {
		n.logger.Warn("notification target lookup failed",
			zap.String("staff_id", staffID), zap.Error(err))
		return
	}
	n.deliver(ctx, member, taskID, kind, message)
}

func (n *NotificationService) deliver(ctx context.Context, member *domain.StaffMember, taskID *string, kind domain.NotificationKind, message string) {
	delivered := false
	if member.ChatID != nil {
		if err := n.sender.SendMessage(*member.ChatID, message); err != nil {
			n.logger.Warn("notification delivery failed",
				zap.String("staff_id", member.ID),
				zap.String("kind", string(kind)),
				zap.Error(err))
		} else {
			delivered = true
		}
	}

	record := &domain.Notification{
		StaffID:   member.ID,
		TaskID:    taskID,
		Kind:      kind,
		Message:   message,
		Delivered: delivered,
	}
	if err := n.notifications.Create(ctx, record); err != nil {
		n.logger.Error("notification persist failed",
			zap.String("staff_id", member.ID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}
