// internal/repository/postgres/notification_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fleetrent-service/internal/domain/notification"
	xerrors "fleetrent-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

type NotificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, identity_id, target_roles, title, message, type, link, metadata, is_read, created_at, read_at`

// visibleTo restricts a query to the recipient's inbox: rows addressed to the
// identity plus rows shared with any of its roles. Placeholders start at pos.
func visibleTo(to notification.Recipient, pos int) (string, []any) {
	clause := fmt.Sprintf("(identity_id = $%d OR target_roles && $%d)", pos, pos+1)
	return clause, []any{to.IdentityID, pq.Array(to.Roles)}
}

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var n notification.Notification
	var metadataJSON []byte

	err := row.Scan(
		&n.ID, &n.IdentityID, &n.TargetRoles, &n.Title, &n.Message, &n.Type,
		&n.Link, &metadataJSON, &n.IsRead, &n.CreatedAt, &n.ReadAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &n.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &n, nil
}

// Create creates a new notification
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	query := `
		INSERT INTO notifications (identity_id, target_roles, title, message, type, link, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	var metadataJSON []byte
	var err error
	if n.Metadata != nil {
		metadataJSON, err = json.Marshal(n.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	err = r.db.conn(ctx).QueryRow(
		ctx, query,
		n.IdentityID, pq.Array([]string(n.TargetRoles)), n.Title, n.Message, n.Type, n.Link, metadataJSON,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// List returns the recipient's inbox, newest first
func (r *NotificationRepository) List(ctx context.Context, to notification.Recipient, filters *notification.ListFilters) ([]notification.Notification, int64, error) {
	clause, args := visibleTo(to, 1)
	conditions := []string{clause}
	argPos := len(args) + 1

	if filters.IsRead != nil {
		conditions = append(conditions, fmt.Sprintf("is_read = $%d", argPos))
		args = append(args, *filters.IsRead)
		argPos++
	}

	if filters.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argPos))
		args = append(args, *filters.Type)
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM notifications WHERE %s", whereClause)
	var total int64
	if err := r.db.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	offset := (filters.Page - 1) * filters.PageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM notifications
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, notificationColumns, whereClause, argPos, argPos+1)
	args = append(args, filters.PageSize, offset)

	rows, err := r.db.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []notification.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}

	return notifications, total, rows.Err()
}

func (r *NotificationRepository) CountUnread(ctx context.Context, to notification.Recipient) (int64, error) {
	clause, args := visibleTo(to, 1)
	query := `SELECT COUNT(*) FROM notifications WHERE is_read = false AND ` + clause

	var count int64
	if err := r.db.conn(ctx).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get unread count: %w", err)
	}
	return count, nil
}

// MarkAsRead is idempotent; it fails only when the notification is not in
// the recipient's inbox.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id int64, to notification.Recipient) error {
	clause, args := visibleTo(to, 3)
	query := `
		UPDATE notifications
		SET is_read = true, read_at = COALESCE(read_at, $1)
		WHERE id = $2 AND ` + clause

	result, err := r.db.conn(ctx).Exec(ctx, query, append([]any{time.Now().UTC(), id}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, to notification.Recipient) (int64, error) {
	clause, args := visibleTo(to, 2)
	query := `
		UPDATE notifications
		SET is_read = true, read_at = $1
		WHERE is_read = false AND ` + clause

	result, err := r.db.conn(ctx).Exec(ctx, query, append([]any{time.Now().UTC()}, args...)...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all as read: %w", err)
	}
	return result.RowsAffected(), nil
}

// Delete removes a notification from the recipient's inbox. Role-shared
// notifications disappear for the whole team.
func (r *NotificationRepository) Delete(ctx context.Context, id int64, to notification.Recipient) error {
	clause, args := visibleTo(to, 2)
	query := `DELETE FROM notifications WHERE id = $1 AND ` + clause

	result, err := r.db.conn(ctx).Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
