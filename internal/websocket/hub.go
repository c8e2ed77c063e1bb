// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	wstypes "fleetrent-service/internal/domain/websocket"
	"fleetrent-service/internal/pkg/jwt"

	"go.uber.org/zap"
)

type Hub struct {
	// Registered clients by identity ID
	clients map[int64]map[*Client]bool
	mu      sync.RWMutex

	Register   chan *Client
	unregister chan *Client

	broadcast chan *BroadcastMessage

	handlerRegistry *HandlerRegistry

	jwtVerifier *jwt.Verifier
	logger      *zap.Logger
}

// BroadcastMessage goes to every listed identity and every client holding
// one of the roles. A client matching both receives it once.
type BroadcastMessage struct {
	IdentityIDs []int64
	Roles       []string
	Message     *wstypes.WSMessage
}

func NewHub(jwtVerifier *jwt.Verifier, logger *zap.Logger) *Hub {
	return &Hub{
		clients:         make(map[int64]map[*Client]bool),
		Register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan *BroadcastMessage, 256),
		handlerRegistry: NewHandlerRegistry(),
		jwtVerifier:     jwtVerifier,
		logger:          logger,
	}
}

// AuthenticateClient validates the access token of a connecting client
func (h *Hub) AuthenticateClient(ctx context.Context, token string) (*ClientAuth, error) {
	claims, err := h.jwtVerifier.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}

	return &ClientAuth{
		IdentityID: claims.IdentityID,
		SessionID:  claims.ID,
		Roles:      claims.Roles,
		Device:     claims.Device,
	}, nil
}

// RegisterHandler registers a message handler
func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlerRegistry.Register(handler)
}

// HandleClientMessage dispatches a client message to its registered handler.
// It reports whether a handler took the message.
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	handler, exists := h.handlerRegistry.GetHandler(msg.Type)
	if !exists {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.clients[client.identityID] == nil {
		h.clients[client.identityID] = make(map[*Client]bool)
	}
	h.clients[client.identityID][client] = true
	total := h.totalClients()
	h.mu.Unlock()

	h.logger.Info("websocket client connected",
		zap.Int64("identity_id", client.identityID),
		zap.String("session_id", client.sessionID),
		zap.Int("total", total),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"identity_id": client.identityID,
		"session_id":  client.sessionID,
		"roles":       client.roles,
		"device":      client.device,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.identityID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.identityID)
			}

			h.logger.Info("websocket client disconnected",
				zap.Int64("identity_id", client.identityID),
				zap.String("session_id", client.sessionID),
				zap.Int("total", h.totalClients()),
			)
		}
	}
}

// deliver fans a message out to its recipients.
func (h *Hub) deliver(msg *BroadcastMessage) {
	for _, client := range h.recipients(msg) {
		client.SendMessage(msg.Message)
	}
}

func (h *Hub) recipients(msg *BroadcastMessage) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[*Client]bool)
	var out []*Client
	for _, identityID := range msg.IdentityIDs {
		for client := range h.clients[identityID] {
			if !seen[client] {
				seen[client] = true
				out = append(out, client)
			}
		}
	}
	if len(msg.Roles) > 0 {
		for _, clients := range h.clients {
			for client := range clients {
				if !seen[client] && client.HasAnyRole(msg.Roles...) {
					seen[client] = true
					out = append(out, client)
				}
			}
		}
	}
	return out
}

// enqueue never blocks; when the queue is full the push is dropped.
func (h *Hub) enqueue(msg *BroadcastMessage) bool {
	select {
	case h.broadcast <- msg:
		return true
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message",
			zap.String("type", string(msg.Message.Type)))
		return false
	}
}

// Public methods for broadcasting

func (h *Hub) PushNotification(identityID *int64, roles []string, data *wstypes.NotificationData) bool {
	msg := &BroadcastMessage{
		Roles:   roles,
		Message: wstypes.NewMessage(wstypes.EventTypeNotification, data),
	}
	if identityID != nil {
		msg.IdentityIDs = []int64{*identityID}
	}
	return h.enqueue(msg)
}

func (h *Hub) PushNotificationCount(identityID int64, count int64) bool {
	return h.enqueue(&BroadcastMessage{
		IdentityIDs: []int64{identityID},
		Message: wstypes.NewMessage(wstypes.EventTypeNotificationCount, map[string]interface{}{
			"unread_count": count,
		}),
	})
}

// Stats is a point-in-time view of who is connected.
type Stats struct {
	Connections int            `json:"connections"`
	Identities  int            `json:"identities"`
	ByRole      map[string]int `json:"by_role"`
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := Stats{Identities: len(h.clients), ByRole: make(map[string]int)}
	for _, clients := range h.clients {
		for client := range clients {
			s.Connections++
			for _, role := range client.roles {
				s.ByRole[role]++
			}
		}
	}
	return s
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
	}
	h.clients = make(map[int64]map[*Client]bool)
}
