package notifications

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/charlesng35/estatecrm/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 10

	defaultBufferSize = 32
)

// Event names pushed to subscribers.
const (
	EventCreated  = "notification.created"
	EventRead     = "notification.read"
	EventReadAll  = "notification.read_all"
	EventArchived = "notification.archived"
	EventPinned   = "notification.pinned"
	EventDeleted  = "notification.deleted"
)

// Event represents a payload delivered to notification subscribers.
type Event struct {
	Event          string `json:"event"`
	Notification   any    `json:"notification,omitempty"`
	NotificationID string `json:"notification_id,omitempty"`
}

// Publisher is the narrow view of the hub used by services.
type Publisher interface {
	Broadcast(userID string, event Event)
	BroadcastMany(userIDs []string, event Event)
}

type subscriber struct {
	userID string
	send   chan Event
	once   sync.Once
	hub    *Hub
}

// Hub fan-outs notification events to connected subscribers. Delivery is best effort:
// a subscriber whose buffer is full is disconnected rather than blocking publishers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscriber]struct{}
	upgrader    websocket.Upgrader
	log         *zap.Logger
}

// NewHub constructs a notification hub instance.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     sameOriginOrLoopback,
		},
		log: logger.WithModule("notifications.hub"),
	}
}

// Subscribe registers an in-process listener for userID. The returned cancel function
// detaches the listener and closes the channel.
func (h *Hub) Subscribe(userID string) (<-chan Event, func()) {
	sub := h.register(userID)
	return sub.send, sub.close
}

// Connected reports how many subscribers are attached for userID.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}

// Connections reports how many subscribers are attached across all users.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}

// Serve upgrades the HTTP connection to a WebSocket and streams events for userID until
// the client disconnects.
func (h *Hub) Serve(userID string, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	sub := h.register(userID)
	go h.writeLoop(conn, sub)
	h.readLoop(conn, sub)
}

// Broadcast delivers an event to all subscribers for the provided user ID.
func (h *Hub) Broadcast(userID string, event Event) {
	if userID == "" {
		return
	}

	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subscribers[userID]))
	for sub := range h.subscribers[userID] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		h.enqueue(sub, event)
	}
}

// BroadcastMany delivers an event to each supplied user ID.
func (h *Hub) BroadcastMany(userIDs []string, event Event) {
	for _, userID := range userIDs {
		h.Broadcast(userID, event)
	}
}

func (h *Hub) register(userID string) *subscriber {
	sub := &subscriber{
		userID: userID,
		send:   make(chan Event, defaultBufferSize),
		hub:    h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[*subscriber]struct{})
	}
	h.subscribers[userID][sub] = struct{}{}
	return sub
}

func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs := h.subscribers[sub.userID]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subscribers, sub.userID)
		}
	}
}

func (h *Hub) enqueue(sub *subscriber, event Event) {
	defer func() {
		// The subscriber may have been closed between the snapshot and the send.
		_ = recover()
	}()

	select {
	case sub.send <- event:
	default:
		h.log.Warn("dropping slow subscriber", zap.String("user_id", sub.userID))
		sub.close()
	}
}

func (s *subscriber) close() {
	s.once.Do(func() {
		s.hub.unregister(s)
		close(s.send)
	})
}

func (h *Hub) readLoop(conn *websocket.Conn, sub *subscriber) {
	defer func() {
		sub.close()
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("unexpected websocket close", zap.String("user_id", sub.userID), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func sameOriginOrLoopback(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originHost := hostWithoutPort(origin)
	return originHost == hostWithoutPort(r.Host) || isLoopback(originHost)
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimPrefix(host, "https://")
	if idx := strings.IndexByte(host, '/'); idx >= 0 {
		host = host[:idx]
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
