package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dtcstudio/taskboard/internal/domain"
)

// UpdateLogRepository stores audit entries. Append is for entries created
// outside a task field mutation (comments); transitions write their log
// rows through TaskRepository.UpdateWithLogs.
type UpdateLogRepository interface {
	Append(ctx context.Context, entry *domain.UpdateLog) error
	ListByTask(ctx context.Context, taskID string) ([]domain.UpdateLog, error)
}

type updateLogRepository struct {
	pool *pgxpool.Pool
}

// NewUpdateLogRepository builds repository.
func NewUpdateLogRepository(pool *pgxpool.Pool) UpdateLogRepository {
	return &updateLogRepository{pool: pool}
}

func (r *updateLogRepository) Append(ctx context.Context, entry *domain.UpdateLog) error {
	const query = `
        INSERT INTO update_logs (task_id, field, old_value, new_value, details, actor_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TaskID,
		entry.Field,
		entry.OldValue,
		entry.NewValue,
		entry.Details,
		entry.ActorID,
	).Scan(&entry.ID, &entry.Timestamp)
}

func (r *updateLogRepository) ListByTask(ctx context.Context, taskID string) ([]domain.UpdateLog, error) {
	const query = `
        SELECT id, task_id, field, old_value, new_value, details, actor_id, created_at
        FROM update_logs WHERE task_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.UpdateLog
	for rows.Next() {
		var entry domain.UpdateLog
		if err := rows.Scan(
			&entry.ID,
			&entry.TaskID,
			&entry.Field,
			&entry.OldValue,
			&entry.NewValue,
			&entry.Details,
			&entry.ActorID,
			&entry.Timestamp,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
