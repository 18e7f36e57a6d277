// Package notify is the user-facing notification channel: every
// mutation outcome surfaces here as a transient message, mirrored to
// the structured log.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Level is the notification severity.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is one transient user-facing message.
type Notification struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Action  string    `json:"action,omitempty"`
	At      time.Time `json:"at"`
}

// Hub fans notifications out to subscribers without blocking the
// publisher; slow subscribers lose messages.
type Hub struct {
	logger *zap.Logger

	mu      sync.Mutex
	subs    map[int]chan Notification
	nextSub int
	dropped uint64
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger: logger,
		subs:   make(map[int]chan Notification),
	}
}

// Success publishes a success notification for an action.
func (h *Hub) Success(action, message string) {
	h.publish(Notification{
		Level:   LevelSuccess,
		Title:   "Success",
		Message: message,
		Action:  action,
	})
}

// Error publishes an error notification for an action.
func (h *Hub) Error(action, message string) {
	h.publish(Notification{
		Level:   LevelError,
		Title:   "Error",
		Message: message,
		Action:  action,
	})
}

// Subscribe registers a listener.
func (h *Hub) Subscribe() (int, <-chan Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSub
	h.nextSub++
	ch := make(chan Notification, 32)
	h.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *Hub) publish(n Notification) {
	n.ID = uuid.NewString()
	n.At = time.Now().UTC()

	switch n.Level {
	case LevelError:
		h.logger.Warn("notification",
			zap.String("action", n.Action),
			zap.String("message", n.Message),
		)
	default:
		h.logger.Info("notification",
			zap.String("action", n.Action),
			zap.String("message", n.Message),
		)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- n:
		default:
			h.dropped++
		}
	}
}
