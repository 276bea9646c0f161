package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dtcstudio/taskboard/internal/domain"
)

// TaskFilter captures listing parameters.
type TaskFilter struct {
	AssigneeID *string
	Role       *domain.StaffRole
	Statuses   []domain.TaskStatus
	Priorities []domain.TaskPriority
	// VisibleTo widens AssigneeID scoping for non-managers: tasks assigned
	// to the staff member OR classified under their department role.
	VisibleTo *domain.StaffMember
	Limit     int
	Offset    int
}

// TaskRepository encapsulates task persistence. UpdateWithLogs is the
// single mutation path for existing tasks: field changes and their audit
// entries commit in one transaction or not at all.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task, initial *domain.UpdateLog) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	ListWithFilter(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	ListOverdueCandidates(ctx context.Context, now time.Time) ([]domain.Task, error)
	ListDueBetween(ctx context.Context, from, to time.Time) ([]domain.Task, error)
	UpdateWithLogs(ctx context.Context, task *domain.Task, logs []domain.UpdateLog, expectedVersion int64) error
	Delete(ctx context.Context, id string) error
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `id, title, purpose, description, assignee_staff_id, role, status, priority,
               progress, deadline, blocker_reason, blocker_related_to, created_by_id, version,
               created_at, updated_at`

func (r *taskRepository) Create(ctx context.Context, task *domain.Task, initial *domain.UpdateLog) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO tasks (title, purpose, description, assignee_staff_id, role, status, priority, progress, deadline, blocker_reason, blocker_related_to, created_by_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, version, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		task.Title,
		task.Purpose,
		task.Description,
		task.AssigneeID,
		task.Role,
		task.Status,
		task.Priority,
		task.Progress,
		task.Deadline,
		task.BlockerReason,
		task.BlockerRelatedTo,
		task.CreatedByID,
	).Scan(&task.ID, &task.Version, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return err
	}

	if initial != nil {
		initial.TaskID = task.ID
		if err := insertLog(ctx, tx, initial); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id=$1`, taskColumns)
	var task domain.Task
	if err := scanTask(r.pool.QueryRow(ctx, query, id), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) ListWithFilter(ctx context.Context, filter TaskFilter) ([]domain.Task, error) {
	base := fmt.Sprintf(`SELECT %s FROM tasks`, taskColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_staff_id=$%d", len(args)))
	}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.VisibleTo != nil && !filter.VisibleTo.IsManager() {
		args = append(args, filter.VisibleTo.ID)
		idArg := len(args)
		args = append(args, filter.VisibleTo.Role)
		clauses = append(clauses, fmt.Sprintf("(assignee_staff_id=$%d OR role=$%d)", idArg, len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY status ASC, deadline ASC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *taskRepository) ListOverdueCandidates(ctx context.Context, now time.Time) ([]domain.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE deadline < $1 AND status NOT IN ($2,$3)`, taskColumns)
	rows, err := r.pool.Query(ctx, query, now, domain.TaskStatusDone, domain.TaskStatusOverdue)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *taskRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]domain.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE deadline >= $1 AND deadline <= $2 AND status NOT IN ($3,$4)`, taskColumns)
	rows, err := r.pool.Query(ctx, query, from, to, domain.TaskStatusDone, domain.TaskStatusOverdue)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *taskRepository) UpdateWithLogs(ctx context.Context, task *domain.Task, logs []domain.UpdateLog, expectedVersion int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE tasks SET title=$1, purpose=$2, description=$3, assignee_staff_id=$4, role=$5,
            status=$6, priority=$7, progress=$8, deadline=$9, blocker_reason=$10,
            blocker_related_to=$11, version=version+1, updated_at=NOW()
        WHERE id=$12 AND version=$13
        RETURNING version, updated_at`
	if err := tx.QueryRow(ctx, query,
		task.Title,
		task.Purpose,
		task.Description,
		task.AssigneeID,
		task.Role,
		task.Status,
		task.Priority,
		task.Progress,
		task.Deadline,
		task.BlockerReason,
		task.BlockerRelatedTo,
		task.ID,
		expectedVersion,
	).Scan(&task.Version, &task.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return r.classifyUpdateMiss(ctx, task.ID)
		}
		return err
	}

	for i := range logs {
		logs[i].TaskID = task.ID
		if err := insertLog(ctx, tx, &logs[i]); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// classifyUpdateMiss distinguishes a stale version from a deleted task.
func (r *taskRepository) classifyUpdateMiss(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrVersionConflict
	}
	return pgx.ErrNoRows
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func insertLog(ctx context.Context, tx pgx.Tx, entry *domain.UpdateLog) error {
	const query = `
        INSERT INTO update_logs (task_id, field, old_value, new_value, details, actor_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return tx.QueryRow(ctx, query,
		entry.TaskID,
		entry.Field,
		entry.OldValue,
		entry.NewValue,
		entry.Details,
		entry.ActorID,
	).Scan(&entry.ID, &entry.Timestamp)
}

func scanTask(row pgx.Row, task *domain.Task) error {
	return row.Scan(
		&task.ID,
		&task.Title,
		&task.Purpose,
		&task.Description,
		&task.AssigneeID,
		&task.Role,
		&task.Status,
		&task.Priority,
		&task.Progress,
		&task.Deadline,
		&task.BlockerReason,
		&task.BlockerRelatedTo,
		&task.CreatedByID,
		&task.Version,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
}

func scanTasks(rows pgx.Rows) ([]domain.Task, error) {
	var result []domain.Task
	for rows.Next() {
		var task domain.Task
		if err := scanTask(rows, &task); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}
