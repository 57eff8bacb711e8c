// Package ws fans newly created messages out to websocket subscribers.
// One stream per rendezvous: both participants (or a superuser) can
// hold a connection open and see messages as they are written.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 54 * time.Second

	// subscriberBuffer is per-connection. A subscriber that can't
	// drain this many pending messages is dropped rather than allowed
	// to block the publisher.
	subscriberBuffer = 16
)

type Subscriber struct {
	C chan []byte
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[*Subscriber]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[uuid.UUID]map[*Subscriber]struct{}),
		logger: logger,
	}
}

func (h *Hub) Subscribe(rdvID uuid.UUID) *Subscriber {
	sub := &Subscriber{C: make(chan []byte, subscriberBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[rdvID] == nil {
		h.subs[rdvID] = make(map[*Subscriber]struct{})
	}
	h.subs[rdvID][sub] = struct{}{}
	return sub
}

func (h *Hub) Unsubscribe(rdvID uuid.UUID, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[rdvID]; ok {
		if _, ok := set[sub]; ok {
			delete(set, sub)
			close(sub.C)
		}
		if len(set) == 0 {
			delete(h.subs, rdvID)
		}
	}
}

// Publish sends payload (as JSON) to every subscriber of the
// rendezvous. Subscribers with a full buffer miss the message; the
// write path never blocks on a slow reader.
func (h *Hub) Publish(rdvID uuid.UUID, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal stream payload", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[rdvID] {
		select {
		case sub.C <- data:
		default:
			h.logger.Warn("dropping stream message for slow subscriber",
				zap.String("rdv_id", rdvID.String()))
		}
	}
}

// Stream pumps a subscription over an upgraded websocket connection
// until the client goes away. It owns the connection from here on.
func (h *Hub) Stream(conn *websocket.Conn, rdvID uuid.UUID) {
	sub := h.Subscribe(rdvID)
	defer h.Unsubscribe(rdvID, sub)
	defer conn.Close()

	// The read side only exists to notice the client closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-sub.C:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
