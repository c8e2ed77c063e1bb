// internal/websocket/handler/notification.go
package handler

import (
	"context"
	"fmt"

	"fleetrent-service/internal/domain/notification"
	wstypes "fleetrent-service/internal/domain/websocket"
	ws "fleetrent-service/internal/websocket"
)

// Inbox is the notification service as seen by websocket clients.
type Inbox interface {
	List(ctx context.Context, to notification.Recipient, filters *notification.ListFilters) (*notification.ListResponse, error)
	UnreadCount(ctx context.Context, to notification.Recipient) (int64, error)
	MarkAsRead(ctx context.Context, id int64, to notification.Recipient) (int64, error)
	MarkAllAsRead(ctx context.Context, to notification.Recipient) (int64, error)
}

type NotificationHandler struct {
	inbox Inbox
}

func NewNotificationHandler(inbox Inbox) *NotificationHandler {
	return &NotificationHandler{inbox: inbox}
}

// SupportedEvents returns events this handler supports
func (h *NotificationHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{
		wstypes.EventTypeNotificationRead,
		wstypes.EventTypeNotificationReadAll,
		wstypes.EventTypeNotificationList,
		wstypes.EventTypeNotificationCount,
	}
}

// HandleMessage processes notification-related messages
func (h *NotificationHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	to := recipient(client)

	switch msg.Type {
	case wstypes.EventTypeNotificationRead:
		return h.handleMarkAsRead(ctx, client, to, msg)
	case wstypes.EventTypeNotificationReadAll:
		return h.handleMarkAllAsRead(ctx, client, to)
	case wstypes.EventTypeNotificationList:
		return h.handleList(ctx, client, to, msg)
	case wstypes.EventTypeNotificationCount:
		return h.handleCount(ctx, client, to)
	default:
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}
}

func recipient(client *ws.Client) notification.Recipient {
	return notification.Recipient{IdentityID: client.GetIdentityID(), Roles: client.GetRoles()}
}

func (h *NotificationHandler) handleMarkAsRead(ctx context.Context, client *ws.Client, to notification.Recipient, msg *wstypes.WSMessage) error {
	var req wstypes.NotificationReadData
	if err := ws.DecodeData(msg.Data, &req); err != nil || req.NotificationID <= 0 {
		client.SendError("invalid_request", "Invalid mark as read request", "notification_id is required")
		return nil
	}

	unread, err := h.inbox.MarkAsRead(ctx, req.NotificationID, to)
	if err != nil {
		return err
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeNotificationRead, map[string]interface{}{
		"notification_id": req.NotificationID,
		"success":         true,
		"unread_count":    unread,
	}))
	return nil
}

func (h *NotificationHandler) handleMarkAllAsRead(ctx context.Context, client *ws.Client, to notification.Recipient) error {
	updated, err := h.inbox.MarkAllAsRead(ctx, to)
	if err != nil {
		return err
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeNotificationReadAll, map[string]interface{}{
		"success":      true,
		"updated":      updated,
		"unread_count": 0,
	}))
	return nil
}

func (h *NotificationHandler) handleList(ctx context.Context, client *ws.Client, to notification.Recipient, msg *wstypes.WSMessage) error {
	var req struct {
		Limit  int                            `json:"limit"`
		IsRead *bool                          `json:"is_read"`
		Type   *notification.NotificationType `json:"type"`
	}
	if msg.Data != nil {
		if err := ws.DecodeData(msg.Data, &req); err != nil {
			client.SendError("invalid_request", "Invalid list request", err.Error())
			return nil
		}
	}
	if req.Limit <= 0 || req.Limit > 50 {
		req.Limit = 10
	}

	list, err := h.inbox.List(ctx, to, &notification.ListFilters{
		IsRead:   req.IsRead,
		Type:     req.Type,
		Page:     1,
		PageSize: req.Limit,
	})
	if err != nil {
		return err
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeNotificationList, map[string]interface{}{
		"notifications": list.Notifications,
		"count":         len(list.Notifications),
		"unread_count":  list.Unread,
	}))
	return nil
}

func (h *NotificationHandler) handleCount(ctx context.Context, client *ws.Client, to notification.Recipient) error {
	count, err := h.inbox.UnreadCount(ctx, to)
	if err != nil {
		return err
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeNotificationCount, map[string]interface{}{
		"unread_count": count,
	}))
	return nil
}
