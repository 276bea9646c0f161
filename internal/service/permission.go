package service

import (
	"github.com/dtcstudio/taskboard/internal/domain"
	apperrors "github.com/dtcstudio/taskboard/pkg/util/errorutil"
)

// The permission gate is a small decision table over the actor's
// relationship to the task:
//
//	Manager              -> every field, reassignment, deletion
//	Assignee             -> status, progress, deadline, blocker fields, comments
//	anyone else          -> read-only
//
// Task creation, deletion, and reassignment are Manager-only.

func canViewTask(actor *domain.StaffMember, task *domain.Task) bool {
	if actor == nil {
		return false
	}
	if actor.IsManager() || task.AssigneeID == actor.ID {
		return true
	}
	// same department sees the board
	return task.Role == actor.Role
}

func canEditTask(actor *domain.StaffMember, task *domain.Task) bool {
	if actor == nil {
		return false
	}
	return actor.IsManager() || task.AssigneeID == actor.ID
}

// authorizeFieldChanges rejects the update when the actor touches fields
// outside their permission set. Managers pass unconditionally.
func authorizeFieldChanges(actor *domain.StaffMember, task *domain.Task, input TaskUpdateInput) error {
	if actor == nil {
		return apperrors.NewUnauthorized("staff required")
	}
	if actor.IsManager() {
		return nil
	}
	if task.AssigneeID != actor.ID {
		return apperrors.NewForbidden("access denied")
	}
	// assignee may not retitle, reassign, reclassify, or reprioritize
	if input.Title != nil || input.Purpose != nil || input.Description != nil ||
		input.AssigneeID != nil || input.Role != nil || input.Priority != nil {
		return apperrors.NewForbidden("field restricted to managers")
	}
	return nil
}
