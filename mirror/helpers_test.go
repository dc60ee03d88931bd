package mirror

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix/id"
)

const (
	roomA  = id.RoomID("!A:example.org")
	alice  = id.UserID("@alice:example.org")
	bob    = id.UserID("@bob:example.org")
	carol  = id.UserID("@carol:example.org")
	nobody = id.UserID("@nobody:example.org")
)

// recorder collects every notification of every room it is attached to.
type recorder struct {
	notes []Notification
}

func (r *recorder) add(n Notification) {
	r.notes = append(r.notes, n)
}

func (r *recorder) names() []string {
	names := make([]string, 0, len(r.notes))
	for _, n := range r.notes {
		names = append(names, n.Name())
	}

	return names
}

func (r *recorder) reset() {
	r.notes = nil
}

// newTestClient returns a client whose rooms report to the returned recorder.
func newTestClient() (*Client, *recorder) {
	c := New(nil)
	rec := &recorder{}

	c.Rooms.On(func(n Notification) {
		if d, ok := n.(*RoomDiscoveredEvent); ok {
			d.Room.On(rec.add)
		}
	})

	return c, rec
}

func parseSync(t *testing.T, data string) *SyncResponse {
	t.Helper()

	var resp SyncResponse
	require.NoError(t, json.Unmarshal([]byte(data), &resp))

	return &resp
}

func stateKey(s string) *string {
	return &s
}

func stateEv(eventID, evType string, sender id.UserID, key string, content map[string]interface{}) *Event {
	return &Event{
		ID:       id.EventID(eventID),
		Type:     evType,
		Sender:   sender,
		StateKey: stateKey(key),
		Content:  content,
	}
}

func memberEv(eventID string, sender, target id.UserID, membership string) *Event {
	return stateEv(eventID, "m.room.member", sender, string(target), map[string]interface{}{
		"membership": membership,
	})
}

func powerEv(eventID string, content map[string]interface{}) *Event {
	return stateEv(eventID, "m.room.power_levels", alice, "", content)
}

func joinState(c *Client, roomID id.RoomID, events ...*Event) *Room {
	room := c.Rooms.Resolve(roomID)
	room.ProcessJoin(&RoomPayload{State: &EventList{Events: events}})

	return room
}
