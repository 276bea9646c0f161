package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dtcstudio/taskboard/internal/api/dto"
	"github.com/dtcstudio/taskboard/internal/auth"
	"github.com/dtcstudio/taskboard/internal/repository"
	"github.com/dtcstudio/taskboard/internal/service"
	apperrors "github.com/dtcstudio/taskboard/pkg/util/errorutil"
)

// ReportsHandler exposes daily report and checklist endpoints.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// SubmitReport POST /reports.
func (h *ReportsHandler) SubmitReport(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.SubmitReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	report, err := h.service.SubmitReport(c.Context(), principal.Staff, service.ReportInput{
		Content:          req.Content,
		CompletedTaskIDs: req.CompletedTaskIDs,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.ReportToResponse(report)})
}

// ListReports GET /reports.
func (h *ReportsHandler) ListReports(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	filter := parseReportFilter(c)
	reports, err := h.service.ListReports(c.Context(), principal.Staff, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ReportsToResponses(reports)})
}

// ExportReports GET /reports/export.
func (h *ReportsHandler) ExportReports(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	filter := parseReportFilter(c)
	data, err := h.service.ExportCSV(c.Context(), principal.Staff, filter)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="daily_reports.csv"`)
	return c.Send(data)
}

// ListTemplates GET /reports/templates.
func (h *ReportsHandler) ListTemplates(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	activeOnly := c.Query("active", "true") != "false"
	templates, err := h.service.ListTemplates(c.Context(), activeOnly)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TemplatesToResponses(templates)})
}

// ActivateTemplate POST /reports/templates/:id/activate.
func (h *ReportsHandler) ActivateTemplate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	task, err := h.service.ActivateTemplate(c.Context(), principal.Staff, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.TaskToResponse(task)})
}

func parseReportFilter(c *fiber.Ctx) repository.ReportFilter {
	var filter repository.ReportFilter
	if staffID := c.Query("staff_id"); staffID != "" {
		filter.StaffID = &staffID
	}
	if from := c.Query("date_from"); from != "" {
		filter.DateFrom = &from
	}
	if to := c.Query("date_to"); to != "" {
		filter.DateTo = &to
	}
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}
