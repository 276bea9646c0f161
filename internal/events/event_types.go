package events

import (
	"time"

	"github.com/dtcstudio/taskboard/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTaskCreated         EventType = "task_created"
	EventTaskStatusChanged   EventType = "task_status_changed"
	EventTaskAssigned        EventType = "task_assigned"
	EventTaskOverdue         EventType = "task_overdue"
	EventDeadlineApproaching EventType = "deadline_approaching"
	EventTaskDeleted         EventType = "task_deleted"
	EventCommentAdded        EventType = "comment_added"
)

// Actor encapsulates actor metadata for an event. A nil StaffID marks a
// system-initiated event (scheduled sweeps).
type Actor struct {
	StaffID *string `json:"staff_id,omitempty"`
}

// SystemActor is the actor attached to sweep-driven events.
func SystemActor() Actor {
	return Actor{}
}

// StaffActor builds an actor for the given staff member.
func StaffActor(staffID string) Actor {
	return Actor{StaffID: &staffID}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TaskID    string      `json:"task_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TaskCreatedPayload payload.
type TaskCreatedPayload struct {
	Title      string              `json:"title"`
	Role       domain.StaffRole    `json:"role"`
	Priority   domain.TaskPriority `json:"priority"`
	AssigneeID string              `json:"assignee_id"`
	Deadline   time.Time           `json:"deadline"`
}

// TaskStatusChangedPayload payload.
type TaskStatusChangedPayload struct {
	OldStatus     domain.TaskStatus `json:"old_status"`
	NewStatus     domain.TaskStatus `json:"new_status"`
	BlockerReason string            `json:"blocker_reason,omitempty"`
	Details       string            `json:"details,omitempty"`
}

// TaskAssignedPayload payload.
type TaskAssignedPayload struct {
	OldAssigneeID string `json:"old_assignee_id"`
	NewAssigneeID string `json:"new_assignee_id"`
}

// TaskOverduePayload payload.
type TaskOverduePayload struct {
	AssigneeID string    `json:"assignee_id"`
	Deadline   time.Time `json:"deadline"`
}

// DeadlineApproachingPayload payload.
type DeadlineApproachingPayload struct {
	AssigneeID string    `json:"assignee_id"`
	Deadline   time.Time `json:"deadline"`
}

// TaskDeletedPayload payload.
type TaskDeletedPayload struct {
	Title string `json:"title"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	AuthorID string `json:"author_id"`
	Preview  string `json:"preview"`
}
