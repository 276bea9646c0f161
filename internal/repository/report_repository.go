package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dtcstudio/taskboard/internal/domain"
)

// ReportFilter captures daily report listing parameters.
type ReportFilter struct {
	StaffID  *string
	DateFrom *string // YYYY-MM-DD, inclusive
	DateTo   *string
	Limit    int
	Offset   int
}

// ReportRepository persists daily reports and checklist templates.
type ReportRepository interface {
	CreateReport(ctx context.Context, report *domain.DailyReport) error
	GetReport(ctx context.Context, staffID, date string) (*domain.DailyReport, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]domain.DailyReport, error)
	ListTemplates(ctx context.Context, activeOnly bool) ([]domain.DailyTaskTemplate, error)
	GetTemplate(ctx context.Context, id string) (*domain.DailyTaskTemplate, error)
}

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository builds repository.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

func (r *reportRepository) CreateReport(ctx context.Context, report *domain.DailyReport) error {
	const query = `
        INSERT INTO daily_reports (staff_id, report_date, content, completed_task_ids)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		report.StaffID,
		report.Date,
		report.Content,
		report.CompletedTaskIDs,
	).Scan(&report.ID, &report.CreatedAt)
}

func (r *reportRepository) GetReport(ctx context.Context, staffID, date string) (*domain.DailyReport, error) {
	const query = `
        SELECT id, staff_id, to_char(report_date, 'YYYY-MM-DD'), content, completed_task_ids, created_at
        FROM daily_reports WHERE staff_id=$1 AND report_date=$2`
	var report domain.DailyReport
	if err := r.pool.QueryRow(ctx, query, staffID, date).Scan(
		&report.ID,
		&report.StaffID,
		&report.Date,
		&report.Content,
		&report.CompletedTaskIDs,
		&report.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) ListReports(ctx context.Context, filter ReportFilter) ([]domain.DailyReport, error) {
	base := `SELECT id, staff_id, to_char(report_date, 'YYYY-MM-DD'), content, completed_task_ids, created_at
             FROM daily_reports`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.StaffID != nil {
		args = append(args, *filter.StaffID)
		clauses = append(clauses, fmt.Sprintf("staff_id=$%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		clauses = append(clauses, fmt.Sprintf("report_date >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		clauses = append(clauses, fmt.Sprintf("report_date <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY report_date DESC, created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DailyReport
	for rows.Next() {
		var report domain.DailyReport
		if err := rows.Scan(
			&report.ID,
			&report.StaffID,
			&report.Date,
			&report.Content,
			&report.CompletedTaskIDs,
			&report.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, report)
	}
	return result, rows.Err()
}

func (r *reportRepository) ListTemplates(ctx context.Context, activeOnly bool) ([]domain.DailyTaskTemplate, error) {
	query := `SELECT id, title, category, active_flag, created_at FROM daily_task_templates`
	if activeOnly {
		query += ` WHERE active_flag`
	}
	query += ` ORDER BY category ASC, title ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DailyTaskTemplate
	for rows.Next() {
		var tpl domain.DailyTaskTemplate
		if err := rows.Scan(&tpl.ID, &tpl.Title, &tpl.Category, &tpl.Active, &tpl.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, tpl)
	}
	return result, rows.Err()
}

func (r *reportRepository) GetTemplate(ctx context.Context, id string) (*domain.DailyTaskTemplate, error) {
	const query = `SELECT id, title, category, active_flag, created_at FROM daily_task_templates WHERE id=$1`
	var tpl domain.DailyTaskTemplate
	if err := r.pool.QueryRow(ctx, query, id).Scan(&tpl.ID, &tpl.Title, &tpl.Category, &tpl.Active, &tpl.CreatedAt); err != nil {
		return nil, err
	}
	return &tpl, nil
}
