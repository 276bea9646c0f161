package dto

import (
	"time"

	"github.com/dtcstudio/taskboard/internal/domain"
)

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// StaffResponse is the public view of a staff account.
type StaffResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Avatar string `json:"avatar,omitempty"`
	Active bool   `json:"active"`
}

// AuthResponse is returned from login.
type AuthResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Staff     StaffResponse `json:"staff"`
}

// CreateStaffRequest payload.
type CreateStaffRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Avatar   string `json:"avatar"`
	ChatID   *int64 `json:"chat_id"`
}

// UpdateStaffRequest payload.
type UpdateStaffRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Avatar string `json:"avatar"`
	ChatID *int64 `json:"chat_id"`
	Active bool   `json:"active"`
}

// PasswordResetRequest payload for initiating reset.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest payload for confirming reset.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// StaffToResponse maps a domain staff member.
func StaffToResponse(s *domain.StaffMember) StaffResponse {
	return StaffResponse{
		ID:     s.ID,
		Name:   s.Name,
		Email:  s.Email,
		Role:   FormatRole(s.Role),
		Avatar: s.Avatar,
		Active: s.Active,
	}
}

// StaffToResponses maps a slice.
func StaffToResponses(members []domain.StaffMember) []StaffResponse {
	out := make([]StaffResponse, 0, len(members))
	for i := range members {
		out = append(out, StaffToResponse(&members[i]))
	}
	return out
}
