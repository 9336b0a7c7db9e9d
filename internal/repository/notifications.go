package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tourguard-backend/internal/models"

	"go.uber.org/zap"
)

// ErrNotificationNotFound is returned when no notification matches the given id.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationsRepository persists SMS delivery records in Postgres.
type NotificationsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationsRepository creates a notifications repository.
func NewNotificationsRepository(db *sql.DB, logger *zap.Logger) *NotificationsRepository {
	return &NotificationsRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a delivery record. Records start as pending and are updated
// in place once the attempt resolves; they are never deleted.
func (r *NotificationsRepository) Create(ctx context.Context, n *models.Notification) error {
	if n == nil {
		return fmt.Errorf("notification is required")
	}
	if n.TourID == "" {
		return fmt.Errorf("tour_id is required")
	}

	query := `
		INSERT INTO sms_notifications (
			id,
			tour_id,
			recipient_phone,
			message,
			status,
			reason,
			created_at,
			sent_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := r.db.ExecContext(ctx,
		query,
		n.ID,
		n.TourID,
		n.RecipientPhone,
		n.Message,
		n.Status,
		n.Reason,
		n.CreatedAt,
		n.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// MarkSent records a successful delivery.
func (r *NotificationsRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return r.updateStatus(ctx, id, models.NotificationSent, "", &sentAt)
}

// MarkFailed records a failed delivery with an explanatory reason.
func (r *NotificationsRepository) MarkFailed(ctx context.Context, id, reason string) error {
	return r.updateStatus(ctx, id, models.NotificationFailed, reason, nil)
}

func (r *NotificationsRepository) updateStatus(ctx context.Context, id string, status models.NotificationStatus, reason string, sentAt *time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sms_notifications SET status = $2, reason = $3, sent_at = $4 WHERE id = $1`,
		id, status, reason, sentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// ListByTour returns all delivery records for a tour, oldest first.
func (r *NotificationsRepository) ListByTour(ctx context.Context, tourID string) ([]*models.Notification, error) {
	if tourID == "" {
		return nil, fmt.Errorf("tour_id is required")
	}

	query := `
		SELECT id, tour_id, recipient_phone, message, status, reason, created_at, sent_at
		FROM sms_notifications
		WHERE tour_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tourID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(
			&n.ID,
			&n.TourID,
			&n.RecipientPhone,
			&n.Message,
			&n.Status,
			&n.Reason,
			&n.CreatedAt,
			&n.SentAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return notifications, nil
}
