package service

import (
	"strings"

	"github.com/dtcstudio/taskboard/internal/domain"
	apperrors "github.com/dtcstudio/taskboard/pkg/util/errorutil"
)

// OverdueSweepDetails is the self-identifying justification attached to
// sweep-driven transitions.
const OverdueSweepDetails = "System: automatically marked as overdue"

// StatusChange describes a requested status transition.
type StatusChange struct {
	NewStatus        domain.TaskStatus
	BlockerReason    string
	BlockerRelatedTo string
	Details          string
	ActorID          *string
}

// applyStatusChange mutates the task in place and returns the single
// Status audit entry for the transition. Any status may move to any other
// status; only the side effects are fixed:
//   - into DONE: progress forced to 100
//   - into BLOCKER: a non-empty blocker reason is required and both
//     blocker fields are persisted
//   - leaving BLOCKER: blocker fields are cleared
//
// An explicit request equal to the current status still logs (old == new),
// matching the long-standing board behavior.
func applyStatusChange(task *domain.Task, change StatusChange) (domain.UpdateLog, error) {
	if !domain.ValidStatus(change.NewStatus) {
		return domain.UpdateLog{}, apperrors.NewValidationError("unknown status", map[string]any{"status": change.NewStatus})
	}

	details := strings.TrimSpace(change.Details)

	switch change.NewStatus {
	case domain.TaskStatusDone:
		task.Progress = 100
		task.BlockerReason = nil
		task.BlockerRelatedTo = nil
	case domain.TaskStatusBlocker:
		reason := strings.TrimSpace(change.BlockerReason)
		if reason == "" {
			return domain.UpdateLog{}, apperrors.NewValidationError("blocker reason required", nil)
		}
		task.BlockerReason = &reason
		if related := strings.TrimSpace(change.BlockerRelatedTo); related != "" {
			task.BlockerRelatedTo = &related
		} else {
			task.BlockerRelatedTo = nil
		}
		if details == "" {
			details = reason
		}
	default:
		task.BlockerReason = nil
		task.BlockerRelatedTo = nil
	}

	oldStatus := task.Status
	task.Status = change.NewStatus

	entry := domain.UpdateLog{
		TaskID:   task.ID,
		Field:    domain.LogFieldStatus,
		OldValue: string(oldStatus),
		NewValue: string(change.NewStatus),
		ActorID:  change.ActorID,
	}
	if details != "" {
		entry.Details = &details
	}
	return entry, nil
}
