package domain

import "time"

// TaskStatus enumerates lifecycle states for tasks.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusBlocker    TaskStatus = "BLOCKER"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusOverdue    TaskStatus = "OVERDUE"
)

// ValidStatus reports whether the value is a known status.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusBlocker, TaskStatusDone, TaskStatusOverdue:
		return true
	}
	return false
}

// TaskPriority enumerates urgency. Canonical storage form is upper case;
// the HTTP boundary translates the client casing (High/Medium/Low).
type TaskPriority string

const (
	TaskPriorityHigh   TaskPriority = "HIGH"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityLow    TaskPriority = "LOW"
)

// ValidPriority reports whether the value is a known priority.
func ValidPriority(p TaskPriority) bool {
	switch p {
	case TaskPriorityHigh, TaskPriorityMedium, TaskPriorityLow:
		return true
	}
	return false
}

// Task is the aggregate for trackable work items.
type Task struct {
	ID               string
	Title            string
	Purpose          string
	Description      string
	AssigneeID       string
	Role             StaffRole
	Status           TaskStatus
	Priority         TaskPriority
	Progress         int
	Deadline         time.Time
	BlockerReason    *string
	BlockerRelatedTo *string
	CreatedByID      string
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OverdueEligible reports whether the overdue sweep predicate holds:
// deadline passed and status neither DONE nor OVERDUE.
func (t *Task) OverdueEligible(now time.Time) bool {
	if t.Status == TaskStatusDone || t.Status == TaskStatusOverdue {
		return false
	}
	return t.Deadline.Before(now)
}
