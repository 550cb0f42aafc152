// Package hub fans change notifications out to presentation-layer subscribers.
// Clients subscribe per record and receive JSON events for every mutation the
// history engine applies.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/objectql/objectui-history/internal/model"
)

// Event is the envelope written to subscribers.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// VersionRecordedEvent announces a new version entry on a record.
type VersionRecordedEvent struct {
	RecordID uuid.UUID `json:"record_id"`
	EntryID  uuid.UUID `json:"entry_id"`
	Version  int64     `json:"version"`
	AuthorID uuid.UUID `json:"author_id"`
}

// ConflictDetectedEvent announces a newly queued conflict.
type ConflictDetectedEvent struct {
	RecordID   uuid.UUID `json:"record_id"`
	ConflictID uuid.UUID `json:"conflict_id"`
	Field      string    `json:"field"`
}

// ConflictResolvedEvent announces one or more conflicts collapsing into a new
// version entry.
type ConflictResolvedEvent struct {
	RecordID uuid.UUID `json:"record_id"`
	Resolved int       `json:"resolved"`
	EntryID  uuid.UUID `json:"entry_id"`
	Version  int64     `json:"version"`
}

// HistoryClearedEvent announces a session reset on a record.
type HistoryClearedEvent struct {
	RecordID uuid.UUID `json:"record_id"`
}

// Client is one connected subscriber.
type Client struct {
	ID      string
	Records map[uuid.UUID]bool
	Send    chan []byte
}

// RecordMessage pairs an event with the record it concerns.
type RecordMessage struct {
	RecordID uuid.UUID
	Event    Event
}

// Hub routes record-scoped events to subscribed clients.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *RecordMessage
	mu         sync.RWMutex
}

// NewHub constructs an idle hub; call Run in a goroutine to start routing.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *RecordMessage, 256),
	}
}

// Run processes registrations and broadcasts until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Event)
			for _, client := range h.clients {
				if client.Records[msg.RecordID] {
					select {
					case client.Send <- data:
					default:
						// client buffer full, skip
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a subscriber.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a subscriber and closes its channel.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds a record to an existing client's subscriptions.
func (h *Hub) Subscribe(clientID string, recordID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		client.Records[recordID] = true
	}
}

// Unsubscribe removes a record from a client's subscriptions.
func (h *Hub) Unsubscribe(clientID string, recordID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		delete(client.Records, recordID)
	}
}

// VersionRecorded broadcasts a version_recorded event.
func (h *Hub) VersionRecorded(recordID uuid.UUID, e model.VersionEntry) {
	h.broadcast <- &RecordMessage{
		RecordID: recordID,
		Event: Event{
			Type: "version_recorded",
			Data: VersionRecordedEvent{
				RecordID: recordID,
				EntryID:  e.ID,
				Version:  e.Version,
				AuthorID: e.AuthorID,
			},
		},
	}
}

// ConflictDetected broadcasts a conflict_detected event.
func (h *Hub) ConflictDetected(recordID uuid.UUID, c model.ConflictInfo) {
	h.broadcast <- &RecordMessage{
		RecordID: recordID,
		Event: Event{
			Type: "conflict_detected",
			Data: ConflictDetectedEvent{
				RecordID:   recordID,
				ConflictID: c.ID,
				Field:      c.Field,
			},
		},
	}
}

// ConflictResolved broadcasts a conflict_resolved event.
func (h *Hub) ConflictResolved(recordID uuid.UUID, resolved int, e model.VersionEntry) {
	h.broadcast <- &RecordMessage{
		RecordID: recordID,
		Event: Event{
			Type: "conflict_resolved",
			Data: ConflictResolvedEvent{
				RecordID: recordID,
				Resolved: resolved,
				EntryID:  e.ID,
				Version:  e.Version,
			},
		},
	}
}

// HistoryCleared broadcasts a history_cleared event.
func (h *Hub) HistoryCleared(recordID uuid.UUID) {
	h.broadcast <- &RecordMessage{
		RecordID: recordID,
		Event: Event{
			Type: "history_cleared",
			Data: HistoryClearedEvent{RecordID: recordID},
		},
	}
}
