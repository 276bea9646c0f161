package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/dtcstudio/taskboard/internal/domain"
	"github.com/dtcstudio/taskboard/internal/repository"
	apperrors "github.com/dtcstudio/taskboard/pkg/util/errorutil"
)

// ReportService handles daily reports and the daily checklist templates.
type ReportService struct {
	reports repository.ReportRepository
	tasks   repository.TaskRepository
	staff   repository.StaffRepository
	logger  *zap.Logger
	now     func() time.Time
}

// ReportDependencies bundles collaborators.
type ReportDependencies struct {
	ReportRepo repository.ReportRepository
	TaskRepo   repository.TaskRepository
	StaffRepo  repository.StaffRepository
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		reports: deps.ReportRepo,
		tasks:   deps.TaskRepo,
		staff:   deps.StaffRepo,
		logger:  logger,
		now:     now,
	}
}

// ReportInput is a daily report submission.
type ReportInput struct {
	Content          string
	CompletedTaskIDs []string
}

// SubmitReport files the actor's report for today. One report per staff
// member per day.
func (s *ReportService) SubmitReport(ctx context.Context, actor *domain.StaffMember, input ReportInput) (*domain.DailyReport, error) {
	if actor.IsManager() {
		return nil, apperrors.NewForbidden("managers do not file daily reports")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("report content required", nil)
	}

	report := &domain.DailyReport{
		StaffID:          actor.ID,
		Date:             s.now().Format("2006-01-02"),
		Content:          content,
		CompletedTaskIDs: input.CompletedTaskIDs,
	}
	if report.CompletedTaskIDs == nil {
		report.CompletedTaskIDs = []string{}
	}

	if err := s.reports.CreateReport(ctx, report); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperrors.NewConflict("report already submitted today", map[string]any{"date": report.Date})
		}
		return nil, apperrors.MapError(err)
	}
	return report, nil
}

// ListReports returns reports the actor may see: managers see everyone,
// everyone else sees only their own.
func (s *ReportService) ListReports(ctx context.Context, actor *domain.StaffMember, filter repository.ReportFilter) ([]domain.DailyReport, error) {
	if !actor.IsManager() {
		filter.StaffID = &actor.ID
	}
	reports, err := s.reports.ListReports(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return reports, nil
}

// ExportCSV renders reports as CSV for managers.
func (s *ReportService) ExportCSV(ctx context.Context, actor *domain.StaffMember, filter repository.ReportFilter) ([]byte, error) {
	if !actor.IsManager() {
		return nil, apperrors.NewForbidden("report export is manager-only")
	}
	reports, err := s.reports.ListReports(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	names := make(map[string]string)
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"date", "staff", "content", "completed_tasks"})
	for i := range reports {
		report := reports[i]
		name, ok := names[report.StaffID]
		if !ok {
			name = report.StaffID
			if member, err := s.staff.GetByID(ctx, report.StaffID); err == nil {
				name = member.Name
			}
			names[report.StaffID] = name
		}
		_ = w.Write([]string{
			report.Date,
			name,
			report.Content,
			strings.Join(report.CompletedTaskIDs, ";"),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

// ListTemplates returns checklist templates.
func (s *ReportService) ListTemplates(ctx context.Context, activeOnly bool) ([]domain.DailyTaskTemplate, error) {
	templates, err := s.reports.ListTemplates(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return templates, nil
}

// ActivateTemplate turns a checklist template into a live task assigned
// to the actor: IN_PROGRESS immediately, due at end of day.
func (s *ReportService) ActivateTemplate(ctx context.Context, actor *domain.StaffMember, templateID string) (*domain.Task, error) {
	if actor.IsManager() {
		return nil, apperrors.NewForbidden("checklist tasks belong to department staff")
	}
	tpl, err := s.reports.GetTemplate(ctx, templateID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("template", map[string]any{"template_id": templateID})
		}
		return nil, apperrors.MapError(err)
	}
	if !tpl.Active {
		return nil, apperrors.NewValidationError("template is inactive", map[string]any{"template_id": templateID})
	}

	now := s.now()
	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())

	task := &domain.Task{
		Title:       tpl.Title,
		Purpose:     fmt.Sprintf("Daily checklist: %s", tpl.Category),
		AssigneeID:  actor.ID,
		Role:        actor.Role,
		Status:      domain.TaskStatusInProgress,
		Priority:    domain.TaskPriorityMedium,
		Progress:    0,
		Deadline:    endOfDay,
		CreatedByID: actor.ID,
	}
	detail := fmt.Sprintf("Activated by %s", actor.Name)
	initial := &domain.UpdateLog{
		Field:    domain.LogFieldSystem,
		OldValue: "None",
		NewValue: "Created",
		Details:  &detail,
	}

	if err := s.tasks.Create(ctx, task, initial); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("checklist template activated",
		zap.String("template_id", tpl.ID),
		zap.String("task_id", task.ID),
		zap.String("staff_id", actor.ID))
	return task, nil
}
