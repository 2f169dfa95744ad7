package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"nhooyr.io/websocket"
)

// Stream is one websocket subscription to the gateway's event feed.
type Stream struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
}

// Dial opens the event feed. The gateway pushes every contract event;
// filtering by address happens in the listeners.
func Dial(ctx context.Context, gatewayURL string) (*Stream, error) {
	wsURL := strings.Replace(gatewayURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = wsURL + "/events"

	streamCtx, cancel := context.WithCancel(ctx)
	conn, _, err := websocket.Dial(streamCtx, wsURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("events: dial feed: %w", err)
	}

	return &Stream{conn: conn, ctx: streamCtx, cancel: cancel}, nil
}

// ReadLoop decodes frames until the stream closes and sends them on ch.
// Frames that fail to decode as JSON are skipped. The channel is closed
// when the loop exits.
func (s *Stream) ReadLoop(ch chan<- Frame) {
	defer close(ch)
	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			return
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		select {
		case ch <- frame:
		case <-s.ctx.Done():
			return
		}
	}
}

// Close shuts the subscription down. Safe to call more than once.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	_ = s.conn.Close(websocket.StatusNormalClosure, "bye")
}
