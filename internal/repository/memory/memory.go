// Package memory provides in-memory repository implementations with the
// same not-found and version-conflict semantics as the pgx-backed ones.
// They back the service tests and local development without Postgres.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dtcstudio/taskboard/internal/domain"
	"github.com/dtcstudio/taskboard/internal/repository"
)

// TaskRepo implements repository.TaskRepository and
// repository.UpdateLogRepository over process memory.
type TaskRepo struct {
	mu      sync.Mutex
	seq     int
	tasks   map[string]domain.Task
	logs    map[string][]domain.UpdateLog
	NowFunc func() time.Time
}

// NewTaskRepo builds an empty store.
func NewTaskRepo() *TaskRepo {
	return &TaskRepo{
		tasks:   make(map[string]domain.Task),
		logs:    make(map[string][]domain.UpdateLog),
		NowFunc: time.Now,
	}
}

func (r *TaskRepo) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

func (r *TaskRepo) Create(_ context.Context, task *domain.Task, initial *domain.UpdateLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.NowFunc()
	task.ID = r.nextID("task")
	task.Version = 1
	task.CreatedAt = now
	task.UpdatedAt = now
	r.tasks[task.ID] = *task

	if initial != nil {
		initial.ID = r.nextID("log")
		initial.TaskID = task.ID
		initial.Timestamp = now
		r.logs[task.ID] = append(r.logs[task.ID], *initial)
	}
	return nil
}

func (r *TaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := task
	return &copied, nil
}

func (r *TaskRepo) ListWithFilter(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.Task
	for _, task := range r.tasks {
		if filter.AssigneeID != nil && task.AssigneeID != *filter.AssigneeID {
			continue
		}
		if filter.Role != nil && task.Role != *filter.Role {
			continue
		}
		if filter.VisibleTo != nil && !filter.VisibleTo.IsManager() {
			if task.AssigneeID != filter.VisibleTo.ID && task.Role != filter.VisibleTo.Role {
				continue
			}
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, task.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, task.Priority) {
			continue
		}
		result = append(result, task)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Status != result[j].Status {
			return strings.Compare(string(result[i].Status), string(result[j].Status)) < 0
		}
		return result[i].Deadline.Before(result[j].Deadline)
	})
	return result, nil
}

func (r *TaskRepo) ListOverdueCandidates(_ context.Context, now time.Time) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.Task
	for _, task := range r.tasks {
		if task.OverdueEligible(now) {
			result = append(result, task)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *TaskRepo) ListDueBetween(_ context.Context, from, to time.Time) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.Task
	for _, task := range r.tasks {
		if task.Status == domain.TaskStatusDone || task.Status == domain.TaskStatusOverdue {
			continue
		}
		if task.Deadline.Before(from) || task.Deadline.After(to) {
			continue
		}
		result = append(result, task)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *TaskRepo) UpdateWithLogs(_ context.Context, task *domain.Task, logs []domain.UpdateLog, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.tasks[task.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if current.Version != expectedVersion {
		return repository.ErrVersionConflict
	}

	now := r.NowFunc()
	task.Version = current.Version + 1
	task.UpdatedAt = now
	r.tasks[task.ID] = *task

	for i := range logs {
		logs[i].ID = r.nextID("log")
		logs[i].TaskID = task.ID
		if logs[i].Timestamp.IsZero() {
			logs[i].Timestamp = now
		}
		r.logs[task.ID] = append(r.logs[task.ID], logs[i])
	}
	return nil
}

func (r *TaskRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tasks, id)
	delete(r.logs, id)
	return nil
}

func (r *TaskRepo) Append(_ context.Context, entry *domain.UpdateLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[entry.TaskID]; !ok {
		return pgx.ErrNoRows
	}
	entry.ID = r.nextID("log")
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.NowFunc()
	}
	r.logs[entry.TaskID] = append(r.logs[entry.TaskID], *entry)
	return nil
}

func (r *TaskRepo) ListByTask(_ context.Context, taskID string) ([]domain.UpdateLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]domain.UpdateLog, len(r.logs[taskID]))
	copy(entries, r.logs[taskID])
	return entries, nil
}

func containsStatus(list []domain.TaskStatus, s domain.TaskStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TaskPriority, p domain.TaskPriority) bool {
	for _, candidate := range list {
		if candidate == p {
			return true
		}
	}
	return false
}

// StaffRepo implements repository.StaffRepository.
type StaffRepo struct {
	mu    sync.Mutex
	seq   int
	staff map[string]domain.StaffMember
}

// NewStaffRepo builds an empty store.
func NewStaffRepo() *StaffRepo {
	return &StaffRepo{staff: make(map[string]domain.StaffMember)}
}

func (r *StaffRepo) Create(_ context.Context, staff *domain.StaffMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	staff.ID = fmt.Sprintf("staff-%d", r.seq)
	now := time.Now()
	staff.CreatedAt = now
	staff.UpdatedAt = now
	r.staff[staff.ID] = *staff
	return nil
}

func (r *StaffRepo) Update(_ context.Context, staff *domain.StaffMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.staff[staff.ID]; !ok {
		return pgx.ErrNoRows
	}
	staff.UpdatedAt = time.Now()
	r.staff[staff.ID] = *staff
	return nil
}

func (r *StaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	staff, ok := r.staff[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := staff
	return &copied, nil
}

func (r *StaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, staff := range r.staff {
		if strings.EqualFold(staff.Email, email) {
			copied := staff
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *StaffRepo) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.StaffMember
	for _, staff := range r.staff {
		if filter.Role != nil && staff.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && staff.Active != *filter.Active {
			continue
		}
		result = append(result, staff)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// NotificationRepo implements repository.NotificationRepository.
type NotificationRepo struct {
	mu            sync.Mutex
	seq           int
	Notifications []domain.Notification
	NowFunc       func() time.Time
}

// NewNotificationRepo builds an empty store.
func NewNotificationRepo() *NotificationRepo {
	return &NotificationRepo{NowFunc: time.Now}
}

func (r *NotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	n.ID = fmt.Sprintf("notif-%d", r.seq)
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.NowFunc()
	}
	r.Notifications = append(r.Notifications, *n)
	return nil
}

func (r *NotificationRepo) ListByStaff(_ context.Context, staffID string, limit, offset int) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.Notification
	for i := len(r.Notifications) - 1; i >= 0; i-- {
		if r.Notifications[i].StaffID == staffID {
			result = append(result, r.Notifications[i])
		}
	}
	if offset > 0 && offset < len(result) {
		result = result[offset:]
	}
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (r *NotificationRepo) MarkRead(_ context.Context, staffID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.Notifications {
		if r.Notifications[i].ID == id && r.Notifications[i].StaffID == staffID {
			now := time.Now()
			r.Notifications[i].ReadAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *NotificationRepo) SentSince(_ context.Context, taskID string, kind domain.NotificationKind, since time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.Notifications {
		if n.TaskID != nil && *n.TaskID == taskID && n.Kind == kind && !n.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

// ReportRepo implements repository.ReportRepository.
type ReportRepo struct {
	mu        sync.Mutex
	seq       int
	reports   []domain.DailyReport
	Templates []domain.DailyTaskTemplate
}

// NewReportRepo builds an empty store.
func NewReportRepo() *ReportRepo {
	return &ReportRepo{}
}

func (r *ReportRepo) CreateReport(_ context.Context, report *domain.DailyReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.reports {
		if existing.StaffID == report.StaffID && existing.Date == report.Date {
			return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	r.seq++
	report.ID = fmt.Sprintf("report-%d", r.seq)
	report.CreatedAt = time.Now()
	r.reports = append(r.reports, *report)
	return nil
}

func (r *ReportRepo) GetReport(_ context.Context, staffID, date string) (*domain.DailyReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, report := range r.reports {
		if report.StaffID == staffID && report.Date == date {
			copied := report
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *ReportRepo) ListReports(_ context.Context, filter repository.ReportFilter) ([]domain.DailyReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.DailyReport
	for _, report := range r.reports {
		if filter.StaffID != nil && report.StaffID != *filter.StaffID {
			continue
		}
		if filter.DateFrom != nil && report.Date < *filter.DateFrom {
			continue
		}
		if filter.DateTo != nil && report.Date > *filter.DateTo {
			continue
		}
		result = append(result, report)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date > result[j].Date })
	return result, nil
}

func (r *ReportRepo) ListTemplates(_ context.Context, activeOnly bool) ([]domain.DailyTaskTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.DailyTaskTemplate
	for _, tpl := range r.Templates {
		if activeOnly && !tpl.Active {
			continue
		}
		result = append(result, tpl)
	}
	return result, nil
}

func (r *ReportRepo) GetTemplate(_ context.Context, id string) (*domain.DailyTaskTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tpl := range r.Templates {
		if tpl.ID == id {
			copied := tpl
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}
