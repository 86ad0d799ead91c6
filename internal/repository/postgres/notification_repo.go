package postgres

import (
	"context"
	"errors"

	"github.com/dstanic/civium/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_id, type, target_id, target_type, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		n.ID, n.RecipientID, n.Type, n.Target.ID, n.Target.Type, n.Read, n.CreatedAt,
	)
	return err
}

func (r *NotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	query := `
		SELECT id, recipient_id, type, target_id, target_type, read, created_at
		FROM notifications
		WHERE id = $1`
	var n domain.Notification
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&n.ID, &n.RecipientID, &n.Type, &n.Target.ID, &n.Target.Type, &n.Read, &n.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &n, err
}

func (r *NotificationRepo) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]domain.Notification, error) {
	query := `
		SELECT id, recipient_id, type, target_id, target_type, read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID, &n.RecipientID, &n.Type, &n.Target.ID, &n.Target.Type, &n.Read, &n.CreatedAt,
		); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	query := `
		UPDATE notifications SET read = true
		WHERE id = $1
		RETURNING id, recipient_id, type, target_id, target_type, read, created_at`
	var n domain.Notification
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&n.ID, &n.RecipientID, &n.Type, &n.Target.ID, &n.Target.Type, &n.Read, &n.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &n, err
}
