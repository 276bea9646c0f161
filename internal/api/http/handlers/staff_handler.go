package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/dtcstudio/taskboard/internal/api/dto"
	"github.com/dtcstudio/taskboard/internal/auth"
	"github.com/dtcstudio/taskboard/internal/service"
	apperrors "github.com/dtcstudio/taskboard/pkg/util/errorutil"
)

// StaffHandler exposes auth and staff directory endpoints.
type StaffHandler struct {
	authService  *service.AuthService
	staffService *service.StaffService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService, staffService *service.StaffService) *StaffHandler {
	return &StaffHandler{authService: authService, staffService: staffService}
}

// Login handles POST /auth/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	staff, token, exp, err := h.authService.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token,
		ExpiresAt: exp,
		Staff:     dto.StaffToResponse(staff),
	}})
}

// Me handles GET /auth/me.
func (h *StaffHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	return c.JSON(fiber.Map{"data": dto.StaffToResponse(principal.Staff)})
}

// RequestPasswordReset handles POST /auth/password/reset/request.
func (h *StaffHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required", nil)
	}

	token, err := h.authService.RequestPasswordReset(c.Context(), req.Email)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"data": fiber.Map{
			"reset_token": token.Token,
			"expires_at":  token.ExpiresAt,
		},
	})
}

// ConfirmPasswordReset handles POST /auth/password/reset/confirm.
func (h *StaffHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Token == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("token and new password required", nil)
	}

	if err := h.authService.ConfirmPasswordReset(c.Context(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password_reset"}})
}

// ChangePassword handles POST /auth/password/change.
func (h *StaffHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("current and new password required", nil)
	}

	if err := h.authService.ChangePassword(c.Context(), principal.Staff.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password_changed"}})
}

// CreateStaff handles POST /staff.
func (h *StaffHandler) CreateStaff(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.CreateStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	role, ok := dto.ParseRole(req.Role)
	if !ok {
		return apperrors.NewValidationError("unknown role", map[string]any{"role": req.Role})
	}

	staff, err := h.staffService.CreateStaffMember(c.Context(), principal.Staff, service.StaffInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
		Avatar:   req.Avatar,
		ChatID:   req.ChatID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.StaffToResponse(staff)})
}

// ListStaff handles GET /staff.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	filters := parseStaffListFilters(c)
	list, err := h.staffService.ListStaffMembers(c.Context(), filters)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StaffToResponses(list)})
}

// GetStaff handles GET /staff/:id.
func (h *StaffHandler) GetStaff(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	staff, err := h.staffService.GetStaffMemberByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StaffToResponse(staff)})
}

// UpdateStaff handles PUT /staff/:id.
func (h *StaffHandler) UpdateStaff(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.UpdateStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.StaffInput{
		Name:   req.Name,
		Email:  req.Email,
		Avatar: req.Avatar,
		ChatID: req.ChatID,
	}
	if req.Role != "" {
		role, ok := dto.ParseRole(req.Role)
		if !ok {
			return apperrors.NewValidationError("unknown role", map[string]any{"role": req.Role})
		}
		input.Role = role
	}

	updated, err := h.staffService.UpdateStaffMember(c.Context(), principal.Staff, c.Params("id"), input, req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StaffToResponse(updated)})
}

func parseStaffListFilters(c *fiber.Ctx) service.StaffListFilters {
	var filters service.StaffListFilters
	if roleStr := c.Query("role"); roleStr != "" {
		if role, ok := dto.ParseRole(roleStr); ok {
			filters.Role = &role
		}
	}
	if active := c.Query("active"); active != "" {
		if val, err := strconv.ParseBool(active); err == nil {
			filters.Active = &val
		}
	}
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 50)
	filters.Offset = (page - 1) * pageSize
	filters.Limit = pageSize
	return filters
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultVal
}
