// Package eventhub broadcasts confirmed ledger events to every websocket
// subscriber of the gateway's /events feed. The feed is one-way: clients
// only listen, and slow clients are dropped rather than allowed to stall
// the broadcast.
package eventhub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"

	"github.com/Lwan2205/chat-dapp/internal/ledger"
	"github.com/Lwan2205/chat-dapp/internal/securelog"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

type frame struct {
	Kind ledger.Kind     `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type Hub struct {
	register   chan *subscriber
	unregister chan *subscriber
	broadcast  chan []byte
	clients    map[*subscriber]struct{}
	count      atomic.Int64
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		broadcast:  make(chan []byte, 256),
		clients:    make(map[*subscriber]struct{}),
	}
}

// Emit implements the chain engine's event sink. Marshalling failures
// are logged and the event is dropped; the ledger state is already
// committed at this point.
func (h *Hub) Emit(kind ledger.Kind, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		securelog.Error("eventhub.emit", err)
		return
	}
	msg, err := json.Marshal(frame{Kind: kind, Data: raw})
	if err != nil {
		securelog.Error("eventhub.emit", err)
		return
	}
	h.broadcast <- msg
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for s := range h.clients {
				s.close(websocket.StatusGoingAway, "server shutdown")
			}
			return
		case s := <-h.register:
			h.clients[s] = struct{}{}
			h.count.Add(1)
		case s := <-h.unregister:
			if _, ok := h.clients[s]; !ok {
				continue
			}
			delete(h.clients, s)
			h.count.Add(-1)
			s.close(websocket.StatusNormalClosure, "bye")
		case msg := <-h.broadcast:
			for s := range h.clients {
				if !s.trySend(msg) {
					// Buffer full: the subscriber is too far behind to
					// ever catch up on an ordered feed.
					delete(h.clients, s)
					h.count.Add(-1)
					s.close(websocket.StatusPolicyViolation, "subscriber too slow")
				}
			}
		}
	}
}

func (h *Hub) SubscriberCount() int64 {
	return h.count.Load()
}

func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	s := &subscriber{
		conn:   conn,
		hub:    h,
		ctx:    ctx,
		cancel: cancel,
		send:   make(chan []byte, sendBuffer),
	}

	h.register <- s

	go s.writeLoop()
	s.readLoop()
}

type subscriber struct {
	conn      *websocket.Conn
	hub       *Hub
	ctx       context.Context
	cancel    context.CancelFunc
	send      chan []byte
	closeOnce sync.Once
}

func (s *subscriber) trySend(msg []byte) bool {
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// readLoop discards inbound frames; its only job is noticing the peer
// going away.
func (s *subscriber) readLoop() {
	defer func() {
		s.hub.unregister <- s
	}()

	for {
		if _, _, err := s.conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *subscriber) writeLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-s.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
			err := s.conn.Write(ctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				s.hub.unregister <- s
				return
			}
		}
	}
}

func (s *subscriber) close(status websocket.StatusCode, reason string) {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.send)
		_ = s.conn.Close(status, reason)
	})
}
