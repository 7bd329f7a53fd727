package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/middleware"
	"github.com/velabs/studioforge-backend/internal/sse"
)

type SSEHandler struct {
	log *logger.Logger
	hub *sse.SSEHub
}

func NewSSEHandler(log *logger.Logger, hub *sse.SSEHub) *SSEHandler {
	return &SSEHandler{
		log: log.With("handler", "SSEHandler"),
		hub: hub,
	}
}

// GET /api/events
// Streams the caller's studio room. One subscription per connection; clients
// reconnect to resubscribe.
func (h *SSEHandler) Stream(c *gin.Context) {
	studioID := middleware.StudioID(c)
	client := h.hub.NewSSEClient(middleware.UserID(c))
	h.hub.AddChannel(client, sse.StudioChannel(studioID))
	defer h.hub.CloseClient(client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-client.Outbound:
			if !ok {
				return
			}
			payload, err := json.Marshal(msg.Data)
			if err != nil {
				h.log.Warn("Failed to marshal SSE payload", "event", msg.Event, "error", err)
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", msg.Event, payload)
			c.Writer.Flush()
		}
	}
}
