package domain

import "time"

// LogField names the mutated field in an UpdateLog entry. The literal
// values are part of the persisted audit trail format.
type LogField string

const (
	LogFieldStatus   LogField = "Status"
	LogFieldAssignee LogField = "Assigned To"
	LogFieldDeadline LogField = "Deadline"
	LogFieldProgress LogField = "Progress"
	LogFieldComment  LogField = "Comment"
	LogFieldTask     LogField = "Task"
	LogFieldSystem   LogField = "System"
)

// Comment entries carry no before/after; the body lives in Details and
// the value columns hold fixed markers.
const (
	CommentOldValuePlaceholder = "-"
	CommentNewValueMarker      = "Note Added"
)

// UpdateLog is one immutable audit trail entry. Entries are append-only:
// once written they are never edited or removed.
type UpdateLog struct {
	ID        string
	TaskID    string
	Field     LogField
	OldValue  string
	NewValue  string
	Details   *string
	ActorID   *string
	Timestamp time.Time
}

// NewComment builds a Comment log entry for the given body.
func NewComment(taskID, body string, actorID *string) UpdateLog {
	detail := body
	return UpdateLog{
		TaskID:   taskID,
		Field:    LogFieldComment,
		OldValue: CommentOldValuePlaceholder,
		NewValue: CommentNewValueMarker,
		Details:  &detail,
		ActorID:  actorID,
	}
}
