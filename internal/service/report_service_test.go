package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtcstudio/taskboard/internal/domain"
	"github.com/dtcstudio/taskboard/internal/repository"
	"github.com/dtcstudio/taskboard/internal/repository/memory"
	apperrors "github.com/dtcstudio/taskboard/pkg/util/errorutil"
)

type reportFixture struct {
	service  *ReportService
	reports  *memory.ReportRepo
	tasks    *memory.TaskRepo
	staff    *memory.StaffRepo
	manager  *domain.StaffMember
	designer *domain.StaffMember
	now      time.Time
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()

	now := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	reports := memory.NewReportRepo()
	tasks := memory.NewTaskRepo()
	tasks.NowFunc = func() time.Time { return now }
	staff := memory.NewStaffRepo()

	ctx := context.Background()
	manager := &domain.StaffMember{Name: "Mara", Email: "mara@example.com", Role: domain.StaffRoleManager, Active: true}
	designer := &domain.StaffMember{Name: "Dana", Email: "dana@example.com", Role: domain.StaffRoleDesigner, Active: true}
	require.NoError(t, staff.Create(ctx, manager))
	require.NoError(t, staff.Create(ctx, designer))

	svc := NewReportService(ReportDependencies{
		ReportRepo: reports,
		TaskRepo:   tasks,
		StaffRepo:  staff,
		Now:        func() time.Time { return now },
	})
	return &reportFixture{
		service:  svc,
		reports:  reports,
		tasks:    tasks,
		staff:    staff,
		manager:  manager,
		designer: designer,
		now:      now,
	}
}

func TestSubmitReportOncePerDay(t *testing.T) {
	f := newReportFixture(t)

	report, err := f.service.SubmitReport(context.Background(), f.designer, ReportInput{
		Content: "Finished the landing page mockup",
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-02", report.Date)

	_, err = f.service.SubmitReport(context.Background(), f.designer, ReportInput{
		Content: "Second attempt",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
}

func TestSubmitReportManagerForbidden(t *testing.T) {
	f := newReportFixture(t)

	_, err := f.service.SubmitReport(context.Background(), f.manager, ReportInput{Content: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestListReportsScopedToSelf(t *testing.T) {
	f := newReportFixture(t)
	_, err := f.service.SubmitReport(context.Background(), f.designer, ReportInput{Content: "mine"})
	require.NoError(t, err)

	other := &domain.StaffMember{Name: "Sven", Email: "sven@example.com", Role: domain.StaffRoleSeller, Active: true}
	require.NoError(t, f.staff.Create(context.Background(), other))
	_, err = f.service.SubmitReport(context.Background(), other, ReportInput{Content: "theirs"})
	require.NoError(t, err)

	mine, err := f.service.ListReports(context.Background(), f.designer, repository.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, f.designer.ID, mine[0].StaffID)

	all, err := f.service.ListReports(context.Background(), f.manager, repository.ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestExportCSVManagerOnly(t *testing.T) {
	f := newReportFixture(t)
	_, err := f.service.SubmitReport(context.Background(), f.designer, ReportInput{
		Content:          "Finished mockups",
		CompletedTaskIDs: []string{"task-1", "task-2"},
	})
	require.NoError(t, err)

	_, err = f.service.ExportCSV(context.Background(), f.designer, repository.ReportFilter{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	data, err := f.service.ExportCSV(context.Background(), f.manager, repository.ReportFilter{})
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.HasPrefix(out, "date,staff,content,completed_tasks"))
	assert.Contains(t, out, "2025-06-02,Dana,Finished mockups,task-1;task-2")
}

func TestActivateTemplateCreatesChecklistTask(t *testing.T) {
	f := newReportFixture(t)
	f.reports.Templates = []domain.DailyTaskTemplate{
		{ID: "tpl-1", Title: "Reply to pending emails", Category: "Inbox", Active: true},
		{ID: "tpl-2", Title: "Retired item", Category: "Misc", Active: false},
	}

	task, err := f.service.ActivateTemplate(context.Background(), f.designer, "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, task.Status)
	assert.Equal(t, f.designer.ID, task.AssigneeID)
	assert.Equal(t, domain.StaffRoleDesigner, task.Role)
	assert.Equal(t, time.Date(2025, 6, 2, 23, 59, 59, 0, time.UTC), task.Deadline)

	logs, err := f.tasks.ListByTask(context.Background(), task.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.LogFieldSystem, logs[0].Field)
	require.NotNil(t, logs[0].Details)
	assert.Equal(t, "Activated by Dana", *logs[0].Details)

	_, err = f.service.ActivateTemplate(context.Background(), f.designer, "tpl-2")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.service.ActivateTemplate(context.Background(), f.manager, "tpl-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}
