// internal/service/notification/service.go
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fleetrent-service/internal/domain/notification"
	"fleetrent-service/internal/domain/websocket"

	"go.uber.org/zap"
)

const defaultNotifyTimeout = 5 * time.Second

// Pusher delivers live events to connected clients. Implementations must not block.
type Pusher interface {
	PushNotification(identityID *int64, roles []string, data *websocket.NotificationData) bool
	PushNotificationCount(identityID int64, count int64) bool
}

// NotificationService stores inbox entries and pushes them live. Notify is
// fire-and-forget: failures are logged and never reach the caller.
type NotificationService struct {
	repo    notification.Repository
	hub     Pusher
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewNotificationService builds the service. hub may be nil.
func NewNotificationService(repo notification.Repository, hub Pusher, logger *zap.Logger, timeout time.Duration) *NotificationService {
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	return &NotificationService{
		repo:    repo,
		hub:     hub,
		logger:  logger,
		timeout: timeout,
	}
}

// Notify hands msg to a background goroutine and returns immediately.
// The caller's cancellation does not abort delivery.
func (s *NotificationService) Notify(ctx context.Context, msg notification.Message) {
	if !msg.HasTarget() {
		s.logger.Warn("notification without recipient dropped", zap.String("type", string(msg.Type)))
		return
	}

	base := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("notification delivery panicked",
					zap.Any("panic", r),
					zap.String("type", string(msg.Type)),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(base, s.timeout)
		defer cancel()

		if _, err := s.CreateAndPush(ctx, msg); err != nil {
			s.logger.Warn("notification delivery failed",
				zap.String("type", string(msg.Type)),
				zap.Strings("roles", msg.TargetRoles),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until every Notify issued so far has finished.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

// CreateAndPush stores the notification and pushes it via WebSocket
func (s *NotificationService) CreateAndPush(ctx context.Context, msg notification.Message) (*notification.Notification, error) {
	n := &notification.Notification{
		IdentityID:  msg.IdentityID,
		TargetRoles: msg.TargetRoles,
		Title:       msg.Title,
		Message:     msg.Body,
		Type:        msg.Type,
		Metadata:    msg.Metadata,
	}
	if msg.Link != "" {
		link := msg.Link
		n.Link = &link
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	s.pushToWebSocket(n)
	return n, nil
}

// ========== Inbox ==========

// List returns the recipient's inbox, newest first
func (s *NotificationService) List(ctx context.Context, to notification.Recipient, filters *notification.ListFilters) (*notification.ListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}

	items, total, err := s.repo.List(ctx, to, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}

	unread, err := s.repo.CountUnread(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize > 0 {
		totalPages++
	}

	return &notification.ListResponse{
		Notifications: items,
		Unread:        unread,
		Total:         total,
		Page:          filters.Page,
		PageSize:      filters.PageSize,
		TotalPages:    totalPages,
	}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, to notification.Recipient) (int64, error) {
	return s.repo.CountUnread(ctx, to)
}

// MarkAsRead marks one notification read and pushes the new unread count
func (s *NotificationService) MarkAsRead(ctx context.Context, id int64, to notification.Recipient) (int64, error) {
	if err := s.repo.MarkAsRead(ctx, id, to); err != nil {
		return 0, fmt.Errorf("failed to mark as read: %w", err)
	}
	return s.pushCount(ctx, to), nil
}

// MarkAllAsRead marks the whole inbox read
func (s *NotificationService) MarkAllAsRead(ctx context.Context, to notification.Recipient) (int64, error) {
	updated, err := s.repo.MarkAllAsRead(ctx, to)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all as read: %w", err)
	}
	s.pushCount(ctx, to)
	return updated, nil
}

func (s *NotificationService) Delete(ctx context.Context, id int64, to notification.Recipient) error {
	if err := s.repo.Delete(ctx, id, to); err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	s.pushCount(ctx, to)
	return nil
}

func (s *NotificationService) pushCount(ctx context.Context, to notification.Recipient) int64 {
	count, err := s.repo.CountUnread(ctx, to)
	if err != nil {
		s.logger.Warn("failed to get unread count", zap.Int64("identity_id", to.IdentityID), zap.Error(err))
		return 0
	}
	if s.hub != nil {
		s.hub.PushNotificationCount(to.IdentityID, count)
	}
	return count
}

func (s *NotificationService) pushToWebSocket(n *notification.Notification) {
	if s.hub == nil {
		return
	}

	data := &websocket.NotificationData{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		Metadata:  n.Metadata,
		CreatedAt: n.CreatedAt,
	}
	if n.Link != nil {
		data.Link = *n.Link
	}

	if !s.hub.PushNotification(n.IdentityID, n.TargetRoles, data) {
		s.logger.Debug("live push skipped", zap.Int64("notification_id", n.ID))
	}
}
