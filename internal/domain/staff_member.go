package domain

import "time"

// StaffRole enumerates roles. MANAGER carries elevated permissions; the
// remaining three double as the task department classification. A task's
// role is never MANAGER.
type StaffRole string

const (
	StaffRoleManager         StaffRole = "MANAGER"
	StaffRoleDesigner        StaffRole = "DESIGNER"
	StaffRoleSeller          StaffRole = "SELLER"
	StaffRoleCustomerService StaffRole = "CUSTOMER_SERVICE"
)

// ValidRole reports whether the value is a known role.
func ValidRole(r StaffRole) bool {
	switch r {
	case StaffRoleManager, StaffRoleDesigner, StaffRoleSeller, StaffRoleCustomerService:
		return true
	}
	return false
}

// DepartmentRole reports whether the role may classify a task.
func DepartmentRole(r StaffRole) bool {
	return ValidRole(r) && r != StaffRoleManager
}

// StaffMember models a team member who owns or manages tasks.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	Avatar       string
	ChatID       *int64
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsManager reports whether the staff member holds the MANAGER role.
func (s *StaffMember) IsManager() bool {
	return s != nil && s.Role == StaffRoleManager
}
