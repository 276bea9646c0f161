package dto

import (
	"time"

	"github.com/dtcstudio/taskboard/internal/domain"
)

// SubmitReportRequest payload.
type SubmitReportRequest struct {
	Content          string   `json:"content"`
	CompletedTaskIDs []string `json:"completed_task_ids"`
}

// ReportResponse is one daily report.
type ReportResponse struct {
	ID               string    `json:"id"`
	StaffID          string    `json:"staff_id"`
	Date             string    `json:"date"`
	Content          string    `json:"content"`
	CompletedTaskIDs []string  `json:"completed_task_ids"`
	CreatedAt        time.Time `json:"created_at"`
}

// TemplateResponse is one daily checklist template.
type TemplateResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Active   bool   `json:"active"`
}

// NotificationResponse is one feed entry.
type NotificationResponse struct {
	ID        string     `json:"id"`
	TaskID    *string    `json:"task_id,omitempty"`
	Kind      string     `json:"kind"`
	Message   string     `json:"message"`
	Delivered bool       `json:"delivered"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ReportToResponse maps a domain report.
func ReportToResponse(r *domain.DailyReport) ReportResponse {
	ids := r.CompletedTaskIDs
	if ids == nil {
		ids = []string{}
	}
	return ReportResponse{
		ID:               r.ID,
		StaffID:          r.StaffID,
		Date:             r.Date,
		Content:          r.Content,
		CompletedTaskIDs: ids,
		CreatedAt:        r.CreatedAt,
	}
}

// ReportsToResponses maps a slice.
func ReportsToResponses(reports []domain.DailyReport) []ReportResponse {
	out := make([]ReportResponse, 0, len(reports))
	for i := range reports {
		out = append(out, ReportToResponse(&reports[i]))
	}
	return out
}

// TemplatesToResponses maps checklist templates.
func TemplatesToResponses(templates []domain.DailyTaskTemplate) []TemplateResponse {
	out := make([]TemplateResponse, 0, len(templates))
	for _, tpl := range templates {
		out = append(out, TemplateResponse{ID: tpl.ID, Title: tpl.Title, Category: tpl.Category, Active: tpl.Active})
	}
	return out
}

// NotificationsToResponses maps feed entries.
func NotificationsToResponses(items []domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for i := range items {
		n := items[i]
		out = append(out, NotificationResponse{
			ID:        n.ID,
			TaskID:    n.TaskID,
			Kind:      string(n.Kind),
			Message:   n.Message,
			Delivered: n.Delivered,
			ReadAt:    n.ReadAt,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}
