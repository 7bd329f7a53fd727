package sse

import (
	"testing"

	"github.com/google/uuid"

	"github.com/velabs/studioforge-backend/internal/logger"
)

func testHub(t *testing.T) *SSEHub {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	return NewSSEHub(log)
}

func TestBroadcast_DeliversToSubscribedChannel(t *testing.T) {
	hub := testHub(t)
	studioID := uuid.New()
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, StudioChannel(studioID))

	hub.Broadcast(SSEMessage{
		Channel: StudioChannel(studioID),
		Event:   SSEEventPipelineUpdate,
		Data:    map[string]any{"status": "VALIDATING"},
	})

	select {
	case msg := <-client.Outbound:
		if msg.Event != SSEEventPipelineUpdate {
			t.Fatalf("expected event %s, got %s", SSEEventPipelineUpdate, msg.Event)
		}
	default:
		t.Fatal("expected a buffered message on the client")
	}
}

func TestBroadcast_OtherStudioDoesNotReceive(t *testing.T) {
	hub := testHub(t)
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, StudioChannel(uuid.New()))

	hub.Broadcast(SSEMessage{Channel: StudioChannel(uuid.New()), Event: SSEEventRenderProgress})

	select {
	case msg := <-client.Outbound:
		t.Fatalf("client must not receive another studio's event, got %v", msg)
	default:
	}
}

func TestBroadcast_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := testHub(t)
	studioID := uuid.New()
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, StudioChannel(studioID))

	// Overfill the outbound buffer; Broadcast must never block.
	for i := 0; i < cap(client.Outbound)+5; i++ {
		hub.Broadcast(SSEMessage{Channel: StudioChannel(studioID), Event: SSEEventRenderProgress})
	}
	if len(client.Outbound) != cap(client.Outbound) {
		t.Fatalf("expected buffer to hold %d messages, got %d", cap(client.Outbound), len(client.Outbound))
	}
}

func TestCloseClient_ClosesOutboundAndUnsubscribes(t *testing.T) {
	hub := testHub(t)
	studioID := uuid.New()
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, StudioChannel(studioID))

	hub.CloseClient(client)

	if _, open := <-client.Outbound; open {
		t.Fatal("expected outbound channel closed")
	}
	// A broadcast after close must not panic on the closed channel.
	hub.Broadcast(SSEMessage{Channel: StudioChannel(studioID), Event: SSEEventRenderCompleted})
}

func TestRemoveChannel(t *testing.T) {
	hub := testHub(t)
	studioID := uuid.New()
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, StudioChannel(studioID))
	hub.RemoveChannel(client, StudioChannel(studioID))

	hub.Broadcast(SSEMessage{Channel: StudioChannel(studioID), Event: SSEEventPipelineUpdate})
	select {
	case msg := <-client.Outbound:
		t.Fatalf("unsubscribed client must not receive events, got %v", msg)
	default:
	}
}
