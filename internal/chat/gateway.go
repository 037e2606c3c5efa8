// Package chat provides a unified interface for messaging channels.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// InboundMessage is a message received from any channel.
type InboundMessage struct {
	Channel     string `json:"channel"`
	LearnerID   string `json:"learner_id"`
	QuestionID  string `json:"question_id,omitempty"`
	Text        string `json:"text"`
	ReplyToText string `json:"reply_to_text,omitempty"` // text of the message being replied to (if any)
}

// OutboundMessage is a message to send via any channel.
type OutboundMessage struct {
	Channel   string `json:"channel"`
	LearnerID string `json:"learner_id"`
	Text      string `json:"text"`
}

// Handler processes one inbound message. ctx ends when the message's
// connection goes away.
type Handler func(ctx context.Context, msg InboundMessage)

// Channel is the interface each messaging transport must implement.
type Channel interface {
	SendMessage(ctx context.Context, learnerID string, msg OutboundMessage) error
	SendTyping(ctx context.Context, learnerID string) error
	Start(ctx context.Context, handler Handler) error
	Stop() error
}

// Gateway routes messages to/from registered channels.
type Gateway struct {
	channels map[string]Channel
	mu       sync.RWMutex
}

// NewGateway creates a new chat gateway.
func NewGateway() *Gateway {
	return &Gateway{
		channels: make(map[string]Channel),
	}
}

// Register adds a channel to the gateway.
func (g *Gateway) Register(name string, ch Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[name] = ch
	slog.Info("chat channel registered", "channel", name)
}

// HasChannel returns true if the named channel is registered.
func (g *Gateway) HasChannel(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.channels[name]
	return ok
}

// Send dispatches a message to the appropriate channel.
func (g *Gateway) Send(ctx context.Context, msg OutboundMessage) error {
	g.mu.RLock()
	ch, ok := g.channels[msg.Channel]
	g.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown channel: %s", msg.Channel)
	}

	return ch.SendMessage(ctx, msg.LearnerID, msg)
}

// SendTyping sends a typing indicator to the learner on the given channel.
func (g *Gateway) SendTyping(ctx context.Context, channel, learnerID string) error {
	g.mu.RLock()
	ch, ok := g.channels[channel]
	g.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown channel: %s", channel)
	}

	return ch.SendTyping(ctx, learnerID)
}

// StartAll starts all registered channels with the given message handler.
func (g *Gateway) StartAll(ctx context.Context, handler Handler) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for name, ch := range g.channels {
		slog.Info("starting channel", "channel", name)
		if err := ch.Start(ctx, handler); err != nil {
			return fmt.Errorf("starting channel %s: %w", name, err)
		}
	}
	return nil
}

// StopAll stops every channel and returns the first error.
func (g *Gateway) StopAll() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var first error
	for name, ch := range g.channels {
		if err := ch.Stop(); err != nil && first == nil {
			first = fmt.Errorf("stopping channel %s: %w", name, err)
		}
	}
	return first
}

// MockChannel is a test double for Channel.
type MockChannel struct {
	mu           sync.Mutex
	SentMessages []OutboundMessage
	Typing       int
	Handler      Handler
}

func (m *MockChannel) SendMessage(_ context.Context, _ string, msg OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = append(m.SentMessages, msg)
	return nil
}

func (m *MockChannel) SendTyping(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Typing++
	return nil
}

func (m *MockChannel) Start(_ context.Context, handler Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Handler = handler
	return nil
}

func (m *MockChannel) Stop() error {
	return nil
}
