package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// ChannelWebSocket is the channel name of the browser tutor chat.
const ChannelWebSocket = "websocket"

// Frame types.
const (
	FrameMessage = "message"
	FrameReply   = "reply"
	FrameTyping  = "typing"
	FrameError   = "error"
)

// ErrNotConnected is returned when a learner has no open socket.
var ErrNotConnected = errors.New("learner is not connected")

// Frame is the JSON envelope exchanged with the browser.
type Frame struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	QuestionID string `json:"questionId,omitempty"`
	ReplyTo    string `json:"replyTo,omitempty"`
}

// WebSocketChannel carries chat over browser WebSockets. A learner may have
// several tabs open; replies go to all of them.
type WebSocketChannel struct {
	originPatterns []string
	writeTimeout   time.Duration
	onConnect      func(delta int)

	mu      sync.RWMutex
	conns   map[string]map[*websocket.Conn]struct{}
	handler Handler
}

// WebSocketOption configures a WebSocketChannel.
type WebSocketOption func(*WebSocketChannel)

// WithOriginPatterns allows cross-origin upgrades from the given host patterns.
func WithOriginPatterns(patterns ...string) WebSocketOption {
	return func(c *WebSocketChannel) {
		c.originPatterns = patterns
	}
}

// WithConnectionHook is called with +1 and -1 as sockets open and close.
func WithConnectionHook(fn func(delta int)) WebSocketOption {
	return func(c *WebSocketChannel) {
		c.onConnect = fn
	}
}

// NewWebSocketChannel creates a channel with no open connections.
func NewWebSocketChannel(opts ...WebSocketOption) *WebSocketChannel {
	c := &WebSocketChannel{
		writeTimeout: 10 * time.Second,
		conns:        make(map[string]map[*websocket.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *WebSocketChannel) Start(_ context.Context, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
	return nil
}

// Stop closes every open socket.
func (c *WebSocketChannel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for learnerID, set := range c.conns {
		for conn := range set {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		delete(c.conns, learnerID)
	}
	return nil
}

func (c *WebSocketChannel) SendMessage(ctx context.Context, learnerID string, msg OutboundMessage) error {
	return c.broadcast(ctx, learnerID, Frame{Type: FrameReply, Text: msg.Text})
}

func (c *WebSocketChannel) SendTyping(ctx context.Context, learnerID string) error {
	return c.broadcast(ctx, learnerID, Frame{Type: FrameTyping})
}

// Connected reports how many sockets the learner has open.
func (c *WebSocketChannel) Connected(learnerID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns[learnerID])
}

func (c *WebSocketChannel) broadcast(ctx context.Context, learnerID string, f Frame) error {
	c.mu.RLock()
	targets := make([]*websocket.Conn, 0, len(c.conns[learnerID]))
	for conn := range c.conns[learnerID] {
		targets = append(targets, conn)
	}
	c.mu.RUnlock()

	if len(targets) == 0 {
		return ErrNotConnected
	}

	var errs []error
	for _, conn := range targets {
		wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
		if err := wsjson.Write(wctx, conn, f); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}
	if len(errs) == len(targets) {
		return fmt.Errorf("writing to %s: %w", learnerID, errors.Join(errs...))
	}
	return nil
}

// Serve upgrades the request and reads frames for learnerID until the
// socket closes. Messages are handled one at a time under a context that
// ends with the connection. The caller resolves the learner identity.
func (c *WebSocketChannel) Serve(w http.ResponseWriter, r *http.Request, learnerID string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: c.originPatterns,
	})
	if err != nil {
		slog.Warn("websocket accept failed", "learner_id", learnerID, "error", err)
		return
	}
	defer conn.CloseNow()

	c.add(learnerID, conn)
	defer c.remove(learnerID, conn)

	// The reader cancels ctx when the socket drops, ending any handler
	// still at work on an earlier frame.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	frames := make(chan Frame)
	go func() {
		defer close(frames)
		defer cancel()
		for {
			var f Frame
			if err := wsjson.Read(ctx, conn, &f); err != nil {
				status := websocket.CloseStatus(err)
				if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
					slog.Debug("websocket read ended", "learner_id", learnerID, "error", err)
				}
				return
			}
			select {
			case frames <- f:
			case <-ctx.Done():
				return
			}
		}
	}()

	for f := range frames {
		if f.Type != FrameMessage || strings.TrimSpace(f.Text) == "" {
			_ = wsjson.Write(ctx, conn, Frame{Type: FrameError, Text: "expected a non-empty message frame"})
			continue
		}

		c.mu.RLock()
		handler := c.handler
		c.mu.RUnlock()
		if handler == nil {
			_ = wsjson.Write(ctx, conn, Frame{Type: FrameError, Text: "chat is not available"})
			continue
		}
		handler(ctx, InboundMessage{
			Channel:     ChannelWebSocket,
			LearnerID:   learnerID,
			QuestionID:  f.QuestionID,
			Text:        f.Text,
			ReplyToText: f.ReplyTo,
		})
	}
}

func (c *WebSocketChannel) add(learnerID string, conn *websocket.Conn) {
	c.mu.Lock()
	set, ok := c.conns[learnerID]
	if !ok {
		set = make(map[*websocket.Conn]struct{})
		c.conns[learnerID] = set
	}
	set[conn] = struct{}{}
	c.mu.Unlock()

	if c.onConnect != nil {
		c.onConnect(1)
	}
	slog.Debug("websocket connected", "learner_id", learnerID)
}

func (c *WebSocketChannel) remove(learnerID string, conn *websocket.Conn) {
	c.mu.Lock()
	if set, ok := c.conns[learnerID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(c.conns, learnerID)
		}
	}
	c.mu.Unlock()

	if c.onConnect != nil {
		c.onConnect(-1)
	}
}
