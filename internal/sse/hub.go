package sse

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/velabs/studioforge-backend/internal/logger"
)

type SSEEvent string

const (
	SSEEventPipelineUpdate  SSEEvent = "PipelineUpdate"
	SSEEventRenderProgress  SSEEvent = "RenderProgress"
	SSEEventRenderCompleted SSEEvent = "RenderCompleted"
	SSEEventRenderFailed    SSEEvent = "RenderFailed"
)

// StudioChannel is the per-studio room every pipeline and render event is
// published to.
func StudioChannel(studioID uuid.UUID) string {
	return "studio:" + studioID.String()
}

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
}

type SSEHub struct {
	mu            sync.RWMutex
	logger        *logger.Logger
	subscriptions map[string]map[*SSEClient]bool
}

func NewSSEHub(log *logger.Logger) *SSEHub {
	return &SSEHub{
		logger:        log.With("component", "SSEHub"),
		subscriptions: make(map[string]map[*SSEClient]bool),
	}
}

func (hub *SSEHub) NewSSEClient(userID uuid.UUID) *SSEClient {
	return &SSEClient{
		ID:       uuid.New(),
		UserID:   userID,
		Channels: make(map[string]bool),
		Outbound: make(chan SSEMessage, 16),
	}
}

func (hub *SSEHub) AddChannel(client *SSEClient, channel string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}

	client.Channels[channel] = true

	clients, exists := hub.subscriptions[channel]
	if !exists {
		clients = make(map[*SSEClient]bool)
		hub.subscriptions[channel] = clients
	}
	clients[client] = true

	hub.logger.Debug("SSE client subscribed", "clientID", client.ID, "channel", channel)
}

func (hub *SSEHub) RemoveChannel(client *SSEClient, channel string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	delete(client.Channels, channel)

	if subMap, ok := hub.subscriptions[channel]; ok {
		delete(subMap, client)
		if len(subMap) == 0 {
			delete(hub.subscriptions, channel)
		}
	}
	hub.logger.Debug("SSE client unsubscribed from channel", "clientID", client.ID, "channel", channel)
}

// CloseClient removes the client from every channel and closes its outbound
// stream.
func (hub *SSEHub) CloseClient(client *SSEClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for ch := range client.Channels {
		if subMap, ok := hub.subscriptions[ch]; ok {
			delete(subMap, client)
			if len(subMap) == 0 {
				delete(hub.subscriptions, ch)
			}
		}
	}
	client.Channels = make(map[string]bool)
	close(client.Outbound)
	hub.logger.Debug("SSE client closed", "clientID", client.ID)
}

// Broadcast is fire-and-forget: a client whose buffer is full misses the
// message. Persisted state is always the source of truth, notifications are
// only a hint to refresh.
func (hub *SSEHub) Broadcast(msg SSEMessage) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	clients, ok := hub.subscriptions[msg.Channel]
	if !ok {
		return
	}
	for client := range clients {
		select {
		case client.Outbound <- msg:
		default:
			hub.logger.Warn("SSE client buffer full, dropping message", "clientID", client.ID, "channel", msg.Channel, "event", msg.Event)
		}
	}
}
