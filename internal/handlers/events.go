package handlers

import (
	"github.com/gofrs/uuid/v5"
	"github.com/m1z23r/drift/pkg/drift"

	"github.com/objectql/objectui-history/internal/hub"
)

type EventsHandler struct {
	hub *hub.Hub
}

func NewEventsHandler(h *hub.Hub) *EventsHandler {
	return &EventsHandler{hub: h}
}

// Connect opens a server-sent-events stream delivering change notifications
// for one record.
func (h *EventsHandler) Connect(c *drift.Context) {
	rec, ok := recordID(c)
	if !ok {
		return
	}

	sseCtx := c.SSE()

	clientID := uuid.Must(uuid.NewV4()).String()
	client := &hub.Client{
		ID:      clientID,
		Records: map[uuid.UUID]bool{rec: true},
		Send:    make(chan []byte, 256),
	}

	h.hub.Register(client)
	defer h.hub.Unregister(client)

	if err := sseCtx.SendJSON(map[string]string{
		"type":      "connected",
		"client_id": clientID,
	}, "system", ""); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		<-c.Request.Context().Done()
		close(done)
	}()

	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			if err := sseCtx.Send(string(msg), "message", ""); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// Subscribe adds another record to an existing stream's subscriptions.
func (h *EventsHandler) Subscribe(c *drift.Context) {
	rec, ok := recordID(c)
	if !ok {
		return
	}
	clientID := c.Param("clientId")
	if clientID == "" {
		c.BadRequest("client_id is required")
		return
	}
	h.hub.Subscribe(clientID, rec)
	_ = c.JSON(200, map[string]string{"message": "subscribed"})
}

// Unsubscribe removes a record from a stream's subscriptions.
func (h *EventsHandler) Unsubscribe(c *drift.Context) {
	rec, ok := recordID(c)
	if !ok {
		return
	}
	clientID := c.Param("clientId")
	if clientID == "" {
		c.BadRequest("client_id is required")
		return
	}
	h.hub.Unsubscribe(clientID, rec)
	_ = c.JSON(200, map[string]string{"message": "unsubscribed"})
}
