package domain

import "time"

// NotificationKind enumerates delivered notification types.
type NotificationKind string

const (
	NotificationTaskAssigned        NotificationKind = "TASK_ASSIGNED"
	NotificationStatusChanged       NotificationKind = "STATUS_CHANGED"
	NotificationTaskBlocked         NotificationKind = "TASK_BLOCKED"
	NotificationTaskOverdue         NotificationKind = "TASK_OVERDUE"
	NotificationDeadlineApproaching NotificationKind = "DEADLINE_APPROACHING"
	NotificationDailyReportReminder NotificationKind = "DAILY_REPORT_REMINDER"
)

// Notification is a recorded delivery attempt. Rows back the in-app panel
// and the once-per-hour dedupe of deadline reminders.
type Notification struct {
	ID        string
	StaffID   string
	TaskID    *string
	Kind      NotificationKind
	Message   string
	Delivered bool
	ReadAt    *time.Time
	CreatedAt time.Time
}
