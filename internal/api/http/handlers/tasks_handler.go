package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/dtcstudio/taskboard/internal/api/dto"
	"github.com/dtcstudio/taskboard/internal/auth"
	"github.com/dtcstudio/taskboard/internal/domain"
	"github.com/dtcstudio/taskboard/internal/service"
	apperrors "github.com/dtcstudio/taskboard/pkg/util/errorutil"
)

// TasksHandler exposes the task board endpoints.
type TasksHandler struct {
	service *service.TaskService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(taskService *service.TaskService) *TasksHandler {
	return &TasksHandler{service: taskService}
}

// CreateTask POST /tasks.
func (h *TasksHandler) CreateTask(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	role, ok := dto.ParseRole(req.Role)
	if !ok {
		return apperrors.NewValidationError("unknown role", map[string]any{"role": req.Role})
	}
	input := service.TaskCreateInput{
		Title:       req.Title,
		Purpose:     req.Purpose,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		Role:        role,
		Deadline:    req.Deadline,
	}
	if req.Priority != "" {
		priority, ok := dto.ParsePriority(req.Priority)
		if !ok {
			return apperrors.NewValidationError("unknown priority", map[string]any{"priority": req.Priority})
		}
		input.Priority = priority
	}

	task, err := h.service.CreateTask(c.Context(), principal.Staff, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.TaskToResponse(task)})
}

// ListTasks GET /tasks.
func (h *TasksHandler) ListTasks(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	filter, err := parseTaskListQuery(c)
	if err != nil {
		return err
	}
	tasks, err := h.service.ListTasks(c.Context(), principal.Staff, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TasksToResponses(tasks)})
}

// GetTask GET /tasks/:id.
func (h *TasksHandler) GetTask(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	task, history, err := h.service.GetTask(c.Context(), principal.Staff, c.Params("id"))
	if err != nil {
		return err
	}
	detail := dto.TaskDetailResponse{
		TaskResponse: dto.TaskToResponse(task),
		History:      dto.LogsToResponses(history),
	}
	return c.JSON(fiber.Map{"data": detail})
}

// UpdateTask PUT /tasks/:id.
func (h *TasksHandler) UpdateTask(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TaskUpdateInput{
		Title:            req.Title,
		Purpose:          req.Purpose,
		Description:      req.Description,
		AssigneeID:       req.AssigneeID,
		Progress:         req.Progress,
		Deadline:         req.Deadline,
		BlockerReason:    req.BlockerReason,
		BlockerRelatedTo: req.BlockerRelatedTo,
		Comments:         req.Comments,
		Details:          req.Details,
		ExpectedVersion:  req.ExpectedVersion,
	}
	if req.Role != nil {
		role, ok := dto.ParseRole(*req.Role)
		if !ok {
			return apperrors.NewValidationError("unknown role", map[string]any{"role": *req.Role})
		}
		input.Role = &role
	}
	if req.Priority != nil {
		priority, ok := dto.ParsePriority(*req.Priority)
		if !ok {
			return apperrors.NewValidationError("unknown priority", map[string]any{"priority": *req.Priority})
		}
		input.Priority = &priority
	}
	if req.Status != nil {
		status := domain.TaskStatus(strings.ToUpper(strings.TrimSpace(*req.Status)))
		input.Status = &status
	}

	task, err := h.service.UpdateTask(c.Context(), principal.Staff, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TaskToResponse(task)})
}

// UpdateStatus PATCH /tasks/:id/status.
func (h *TasksHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	task, err := h.service.UpdateStatus(c.Context(), principal.Staff, c.Params("id"), service.StatusUpdateInput{
		Status:           domain.TaskStatus(strings.ToUpper(strings.TrimSpace(req.Status))),
		BlockerReason:    req.BlockerReason,
		BlockerRelatedTo: req.BlockerRelatedTo,
		Details:          req.Details,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TaskToResponse(task)})
}

// AddComment POST /tasks/:id/comments.
func (h *TasksHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	entry, err := h.service.AddComment(c.Context(), principal.Staff, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.LogToResponse(entry)})
}

// DeleteTask DELETE /tasks/:id.
func (h *TasksHandler) DeleteTask(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	if err := h.service.DeleteTask(c.Context(), principal.Staff, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListAssignable GET /tasks/assignable.
func (h *TasksHandler) ListAssignable(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	role, ok := dto.ParseRole(c.Query("role"))
	if !ok {
		return apperrors.NewValidationError("role query required", nil)
	}
	members, err := h.service.ListAssignableStaff(c.Context(), role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StaffToResponses(members)})
}

func parseTaskListQuery(c *fiber.Ctx) (service.TaskListFilter, error) {
	filter := service.TaskListFilter{}
	if roleStr := c.Query("role"); roleStr != "" {
		role, ok := dto.ParseRole(roleStr)
		if !ok {
			return filter, apperrors.NewValidationError("unknown role", map[string]any{"role": roleStr})
		}
		filter.Role = &role
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status := domain.TaskStatus(strings.ToUpper(strings.TrimSpace(part)))
			if !domain.ValidStatus(status) {
				return filter, apperrors.NewValidationError("unknown status", map[string]any{"status": part})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if assignee := c.Query("assignee_id"); assignee != "" {
		filter.AssigneeID = &assignee
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
