// internal/domain/notification/entity.go
package notification

import (
	"context"
	"time"

	"github.com/lib/pq"
)

type NotificationType string

const (
	TypeReservationCreated   NotificationType = "reservation_created"
	TypeReservationConfirmed NotificationType = "reservation_confirmed"
	TypeReservationRejected  NotificationType = "reservation_rejected"
	TypeReservationCancelled NotificationType = "reservation_cancelled"
	TypeReservationCompleted NotificationType = "reservation_completed"
	TypePaymentPaid          NotificationType = "payment_paid"
	TypePaymentFailed        NotificationType = "payment_failed"
	TypePaymentRefunded      NotificationType = "payment_refunded"
	TypeSystem               NotificationType = "system"
)

// Notification is one inbox entry. It targets a single identity, a set of
// roles, or both.
type Notification struct {
	ID          int64                  `json:"id" db:"id"`
	IdentityID  *int64                 `json:"identity_id,omitempty" db:"identity_id"`
	TargetRoles pq.StringArray         `json:"target_roles,omitempty" db:"target_roles"`
	Title       string                 `json:"title" db:"title"`
	Message     string                 `json:"message" db:"message"`
	Type        NotificationType       `json:"type" db:"type"`
	Link        *string                `json:"link,omitempty" db:"link"`
	Metadata    map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	IsRead      bool                   `json:"is_read" db:"is_read"`
	CreatedAt   time.Time              `json:"created_at" db:"created_at"`
	ReadAt      *time.Time             `json:"read_at,omitempty" db:"read_at"`
}

// Message is what the engine hands to the notifier. Delivery is best effort.
type Message struct {
	IdentityID  *int64
	TargetRoles []string
	Title       string
	Body        string
	Type        NotificationType
	Link        string
	Metadata    map[string]interface{}
}

// ToIdentity addresses a message to one user.
func (m Message) ToIdentity(id int64) Message {
	m.IdentityID = &id
	return m
}

// ToRoles addresses a message to everyone holding one of the roles.
func (m Message) ToRoles(roles ...string) Message {
	m.TargetRoles = append(append([]string(nil), m.TargetRoles...), roles...)
	return m
}

// HasTarget reports whether the message would reach anyone.
func (m Message) HasTarget() bool {
	return m.IdentityID != nil || len(m.TargetRoles) > 0
}

// Notifier accepts messages without blocking the caller and never reports
// delivery failure back to it.
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// Recipient identifies an inbox: a user plus the roles whose shared
// notifications they see. Role-targeted notifications form a team inbox; a
// read mark by one member applies to the whole team.
type Recipient struct {
	IdentityID int64
	Roles      []string
}

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context, to Recipient, filters *ListFilters) ([]Notification, int64, error)
	CountUnread(ctx context.Context, to Recipient) (int64, error)
	MarkAsRead(ctx context.Context, id int64, to Recipient) error
	MarkAllAsRead(ctx context.Context, to Recipient) (int64, error)
	Delete(ctx context.Context, id int64, to Recipient) error
}

// DTOs

type ListFilters struct {
	IsRead   *bool             `form:"is_read"`
	Type     *NotificationType `form:"type"`
	Page     int               `form:"page"`
	PageSize int               `form:"page_size" binding:"omitempty,max=100"`
}

type ListResponse struct {
	Notifications []Notification `json:"notifications"`
	Unread        int64          `json:"unread"`
	Total         int64          `json:"total"`
	Page          int            `json:"page"`
	PageSize      int            `json:"page_size"`
	TotalPages    int            `json:"total_pages"`
}
