package dto

import (
	"strings"
	"time"

	"github.com/dtcstudio/taskboard/internal/domain"
)

// Priority and role values cross the wire in display form ("High",
// "Customer Service"); storage keeps the canonical upper-case form. The
// parse helpers accept either.

// ParsePriority normalizes a client priority value.
func ParsePriority(v string) (domain.TaskPriority, bool) {
	p := domain.TaskPriority(strings.ToUpper(strings.TrimSpace(v)))
	if domain.ValidPriority(p) {
		return p, true
	}
	return "", false
}

// FormatPriority renders the display casing.
func FormatPriority(p domain.TaskPriority) string {
	switch p {
	case domain.TaskPriorityHigh:
		return "High"
	case domain.TaskPriorityMedium:
		return "Medium"
	case domain.TaskPriorityLow:
		return "Low"
	}
	return string(p)
}

// ParseRole normalizes a client role value.
func ParseRole(v string) (domain.StaffRole, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(v))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	r := domain.StaffRole(normalized)
	if domain.ValidRole(r) {
		return r, true
	}
	return "", false
}

// FormatRole renders the display name.
func FormatRole(r domain.StaffRole) string {
	switch r {
	case domain.StaffRoleManager:
		return "Manager"
	case domain.StaffRoleDesigner:
		return "Designer"
	case domain.StaffRoleSeller:
		return "Seller"
	case domain.StaffRoleCustomerService:
		return "Customer Service"
	}
	return string(r)
}

// CreateTaskRequest payload.
type CreateTaskRequest struct {
	Title       string    `json:"title"`
	Purpose     string    `json:"purpose"`
	Description string    `json:"description"`
	AssigneeID  string    `json:"assignee_id"`
	Role        string    `json:"role"`
	Priority    string    `json:"priority"`
	Deadline    time.Time `json:"deadline"`
}

// UpdateTaskRequest payload: absent fields stay unchanged.
type UpdateTaskRequest struct {
	Title            *string    `json:"title"`
	Purpose          *string    `json:"purpose"`
	Description      *string    `json:"description"`
	AssigneeID       *string    `json:"assignee_id"`
	Role             *string    `json:"role"`
	Priority         *string    `json:"priority"`
	Progress         *int       `json:"progress"`
	Deadline         *time.Time `json:"deadline"`
	Status           *string    `json:"status"`
	BlockerReason    *string    `json:"blocker_reason"`
	BlockerRelatedTo *string    `json:"blocker_related_to"`
	Comments         []string   `json:"comments"`
	Details          string     `json:"details"`
	ExpectedVersion  *int64     `json:"expected_version"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status           string `json:"status"`
	BlockerReason    string `json:"blocker_reason"`
	BlockerRelatedTo string `json:"blocker_related_to"`
	Details          string `json:"details"`
}

// CommentRequest payload.
type CommentRequest struct {
	Body string `json:"body"`
}

// TaskResponse is the board representation of a task.
type TaskResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Purpose          string    `json:"purpose"`
	Description      string    `json:"description"`
	AssigneeID       string    `json:"assignee_id"`
	Role             string    `json:"role"`
	Status           string    `json:"status"`
	Priority         string    `json:"priority"`
	Progress         int       `json:"progress"`
	Deadline         time.Time `json:"deadline"`
	BlockerReason    *string   `json:"blocker_reason,omitempty"`
	BlockerRelatedTo *string   `json:"blocker_related_to,omitempty"`
	CreatedByID      string    `json:"created_by_id"`
	Version          int64     `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TaskDetailResponse adds the audit history.
type TaskDetailResponse struct {
	TaskResponse
	History []UpdateLogResponse `json:"history"`
}

// UpdateLogResponse is one audit entry.
type UpdateLogResponse struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Field     string    `json:"field"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	Details   *string   `json:"details,omitempty"`
	ActorID   *string   `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskToResponse maps a domain task.
func TaskToResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:               t.ID,
		Title:            t.Title,
		Purpose:          t.Purpose,
		Description:      t.Description,
		AssigneeID:       t.AssigneeID,
		Role:             FormatRole(t.Role),
		Status:           string(t.Status),
		Priority:         FormatPriority(t.Priority),
		Progress:         t.Progress,
		Deadline:         t.Deadline,
		BlockerReason:    t.BlockerReason,
		BlockerRelatedTo: t.BlockerRelatedTo,
		CreatedByID:      t.CreatedByID,
		Version:          t.Version,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

// TasksToResponses maps a slice.
func TasksToResponses(tasks []domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, TaskToResponse(&tasks[i]))
	}
	return out
}

// LogToResponse maps an audit entry.
func LogToResponse(l *domain.UpdateLog) UpdateLogResponse {
	return UpdateLogResponse{
		ID:        l.ID,
		TaskID:    l.TaskID,
		Field:     string(l.Field),
		OldValue:  l.OldValue,
		NewValue:  l.NewValue,
		Details:   l.Details,
		ActorID:   l.ActorID,
		Timestamp: l.Timestamp,
	}
}

// LogsToResponses maps a slice.
func LogsToResponses(logs []domain.UpdateLog) []UpdateLogResponse {
	out := make([]UpdateLogResponse, 0, len(logs))
	for i := range logs {
		out = append(out, LogToResponse(&logs[i]))
	}
	return out
}
