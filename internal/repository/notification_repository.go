package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dtcstudio/taskboard/internal/domain"
)

// NotificationRepository records notification deliveries.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByStaff(ctx context.Context, staffID string, limit, offset int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, staffID, id string) error
	// SentSince backs the once-per-hour dedupe when Redis is unavailable.
	SentSince(ctx context.Context, taskID string, kind domain.NotificationKind, since time.Time) (bool, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (staff_id, task_id, kind, message, delivered)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		n.StaffID,
		n.TaskID,
		n.Kind,
		n.Message,
		n.Delivered,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *notificationRepository) ListByStaff(ctx context.Context, staffID string, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, staff_id, task_id, kind, message, delivered, read_at, created_at
        FROM notifications WHERE staff_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, staffID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.StaffID,
			&n.TaskID,
			&n.Kind,
			&n.Message,
			&n.Delivered,
			&n.ReadAt,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, staffID, id string) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read_at=NOW() WHERE id=$1 AND staff_id=$2 AND read_at IS NULL`,
		id, staffID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) SentSince(ctx context.Context, taskID string, kind domain.NotificationKind, since time.Time) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM notifications
            WHERE task_id=$1 AND kind=$2 AND created_at >= $3
        )`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, taskID, kind, since).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
