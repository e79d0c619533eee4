package gateway

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MahdiFarnaghi/intelli-geo/internal/logging"
)

// Event names pushed over the WebSocket feed.
const (
	EventTurnCompleted       = "turn.completed"
	EventTurnFailed          = "turn.failed"
	EventEnvironmentUpdated  = "environment.updated"
	EventConversationDeleted = "conversation.deleted"
)

// Event is one feed message.
type Event struct {
	Seq     int64       `json:"seq"`
	Type    string      `json:"type"`
	Ts      int64       `json:"ts"`
	Payload interface{} `json:"payload,omitempty"`
}

// eventHub fans events out to all connected feed clients. Slow or broken
// clients are dropped rather than blocking the turn that emitted the event.
type eventHub struct {
	log *logging.Logger
	seq atomic.Int64

	mu    sync.Mutex
	conns map[*websocket.Conn]*sync.Mutex // per-conn write lock
}

func newEventHub(log *logging.Logger) *eventHub {
	return &eventHub{
		log:   log.Sub("events"),
		conns: make(map[*websocket.Conn]*sync.Mutex),
	}
}

func (h *eventHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = &sync.Mutex{}
	h.mu.Unlock()
	h.log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("feed client connected")

	// Drain incoming frames so pings and close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(conn)
				return
			}
		}
	}()
}

func (h *eventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.conns[conn]
	delete(h.conns, conn)
	h.mu.Unlock()
	if ok {
		conn.Close()
		h.log.Debug().Msg("feed client disconnected")
	}
}

func (h *eventHub) broadcast(eventType string, payload interface{}) {
	event := Event{
		Seq:     h.seq.Add(1),
		Type:    eventType,
		Ts:      time.Now().UnixMilli(),
		Payload: payload,
	}

	h.mu.Lock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.conns))
	for c, l := range h.conns {
		conns[c] = l
	}
	h.mu.Unlock()

	for conn, lock := range conns {
		lock.Lock()
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		err := conn.WriteJSON(event)
		lock.Unlock()
		if err != nil {
			h.log.Warn().Err(err).Msg("dropping slow feed client")
			h.remove(conn)
		}
	}
}

func (h *eventHub) closeAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[*websocket.Conn]*sync.Mutex)
	h.mu.Unlock()

	for _, c := range conns {
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down"))
		c.Close()
	}
}
