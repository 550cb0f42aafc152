package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectql/objectui-history/internal/model"
)

func newClient(id string, records ...uuid.UUID) *Client {
	subs := make(map[uuid.UUID]bool, len(records))
	for _, r := range records {
		subs[r] = true
	}
	return &Client{ID: id, Records: subs, Send: make(chan []byte, 256)}
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.Send:
		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatalf("no event received")
		return Event{}
	}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	h := NewHub()
	go h.Run()

	record := uuid.Must(uuid.NewV4())
	subscribed := newClient("client-1", record)
	other := newClient("client-2", uuid.Must(uuid.NewV4()))

	h.Register(subscribed)
	h.Register(other)
	time.Sleep(10 * time.Millisecond)

	entry := model.VersionEntry{ID: uuid.Must(uuid.NewV4()), Version: 7, AuthorID: uuid.Must(uuid.NewV4())}
	h.VersionRecorded(record, entry)

	ev := receive(t, subscribed)
	assert.Equal(t, "version_recorded", ev.Type)

	data, ok := ev.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, entry.ID.String(), data["entry_id"])
	assert.Equal(t, float64(7), data["version"])

	select {
	case <-other.Send:
		t.Fatalf("unsubscribed client must not receive record events")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_ConflictEvents(t *testing.T) {
	h := NewHub()
	go h.Run()

	record := uuid.Must(uuid.NewV4())
	client := newClient("client-1", record)
	h.Register(client)
	time.Sleep(10 * time.Millisecond)

	conflict := model.ConflictInfo{ID: uuid.Must(uuid.NewV4()), Field: "title"}
	h.ConflictDetected(record, conflict)
	ev := receive(t, client)
	assert.Equal(t, "conflict_detected", ev.Type)

	entry := model.VersionEntry{ID: uuid.Must(uuid.NewV4()), Version: 2}
	h.ConflictResolved(record, 3, entry)
	ev = receive(t, client)
	assert.Equal(t, "conflict_resolved", ev.Type)
	data, ok := ev.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), data["resolved"])

	h.HistoryCleared(record)
	ev = receive(t, client)
	assert.Equal(t, "history_cleared", ev.Type)
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	h := NewHub()
	go h.Run()

	record := uuid.Must(uuid.NewV4())
	client := newClient("client-1")
	h.Register(client)
	time.Sleep(10 * time.Millisecond)

	h.Subscribe("client-1", record)
	h.HistoryCleared(record)
	ev := receive(t, client)
	assert.Equal(t, "history_cleared", ev.Type)

	h.Unsubscribe("client-1", record)
	h.HistoryCleared(record)
	select {
	case <-client.Send:
		t.Fatalf("unsubscribed client must not receive events")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	h := NewHub()
	go h.Run()

	client := newClient("client-1")
	h.Register(client)
	time.Sleep(10 * time.Millisecond)

	h.Unregister(client)
	time.Sleep(10 * time.Millisecond)

	_, open := <-client.Send
	assert.False(t, open)
}
