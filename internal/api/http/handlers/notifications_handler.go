package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dtcstudio/taskboard/internal/api/dto"
	"github.com/dtcstudio/taskboard/internal/auth"
	"github.com/dtcstudio/taskboard/internal/service"
	apperrors "github.com/dtcstudio/taskboard/pkg/util/errorutil"
)

// NotificationsHandler exposes the in-app notification feed.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 50)
	items, err := h.service.ListForStaff(c.Context(), principal.Staff.ID, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NotificationsToResponses(items)})
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	if err := h.service.MarkRead(c.Context(), principal.Staff.ID, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "read"}})
}
