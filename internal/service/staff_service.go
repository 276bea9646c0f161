package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dtcstudio/taskboard/internal/auth"
	"github.com/dtcstudio/taskboard/internal/config"
	"github.com/dtcstudio/taskboard/internal/domain"
	"github.com/dtcstudio/taskboard/internal/repository"
	apperrors "github.com/dtcstudio/taskboard/pkg/util/errorutil"
)

// StaffService manages staff accounts. Account administration is
// manager-only; the directory listing is open to all staff so boards can
// render assignee names.
type StaffService struct {
	staff      repository.StaffRepository
	bcryptCost int
}

// StaffListFilters define listing parameters.
type StaffListFilters struct {
	Role   *domain.StaffRole
	Active *bool
	Limit  int
	Offset int
}

// NewStaffService constructs the service.
func NewStaffService(cfg config.Config, staffRepo repository.StaffRepository) *StaffService {
	return &StaffService{
		staff:      staffRepo,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

func requireManager(actor *domain.StaffMember) error {
	if actor == nil || !actor.IsManager() {
		return apperrors.NewForbidden("manager role required")
	}
	return nil
}

// StaffInput carries account fields for create/update.
type StaffInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.StaffRole
	Avatar   string
	ChatID   *int64
}

// CreateStaffMember adds a new staff account.
func (s *StaffService) CreateStaffMember(ctx context.Context, actor *domain.StaffMember, input StaffInput) (*domain.StaffMember, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("name, email and password required", nil)
	}
	if !domain.ValidRole(input.Role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	if existing, err := s.staff.GetByEmail(ctx, input.Email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("staff email already exists", map[string]any{"email": input.Email})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	staff := &domain.StaffMember{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		Avatar:       input.Avatar,
		ChatID:       input.ChatID,
		Active:       true,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// ListStaffMembers lists staff with filters. Open to all staff.
func (s *StaffService) ListStaffMembers(ctx context.Context, filters StaffListFilters) ([]domain.StaffMember, error) {
	members, err := s.staff.List(ctx, repository.StaffFilter{
		Role:   filters.Role,
		Active: filters.Active,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return members, nil
}

// GetStaffMemberByID fetches a staff member.
func (s *StaffService) GetStaffMemberByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	staff, err := s.staff.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("staff", map[string]any{"staff_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// UpdateStaffMember updates account details. Manager-only, except that
// staff may update their own avatar and chat binding.
func (s *StaffService) UpdateStaffMember(ctx context.Context, actor *domain.StaffMember, staffID string, input StaffInput, active bool) (*domain.StaffMember, error) {
	selfEdit := actor != nil && actor.ID == staffID
	if !selfEdit {
		if err := requireManager(actor); err != nil {
			return nil, err
		}
	}

	staff, err := s.GetStaffMemberByID(ctx, staffID)
	if err != nil {
		return nil, err
	}

	if selfEdit && !actor.IsManager() {
		// self-service surface: avatar and chat binding only
		staff.Avatar = input.Avatar
		staff.ChatID = input.ChatID
	} else {
		input.Email = strings.ToLower(strings.TrimSpace(input.Email))
		if input.Email != "" && input.Email != staff.Email {
			if existing, err := s.staff.GetByEmail(ctx, input.Email); err == nil && existing != nil && existing.ID != staff.ID {
				return nil, apperrors.NewConflict("staff email already exists", map[string]any{"email": input.Email})
			} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.MapError(err)
			}
			staff.Email = input.Email
		}
		if input.Name != "" {
			staff.Name = input.Name
		}
		if input.Role != "" {
			if !domain.ValidRole(input.Role) {
				return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
			}
			staff.Role = input.Role
		}
		staff.Avatar = input.Avatar
		staff.ChatID = input.ChatID
		staff.Active = active
	}

	if err := s.staff.Update(ctx, staff); err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}
