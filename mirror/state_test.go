package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

func TestStateFields(t *testing.T) {
	c, rec := newTestClient()

	room := joinState(c, roomA,
		stateEv("$1", "m.room.create", alice, "", map[string]interface{}{"creator": string(alice)}),
		stateEv("$2", "m.room.canonical_alias", alice, "", map[string]interface{}{"alias": "#a:example.org"}),
		stateEv("$3", "m.room.aliases", alice, "example.org", map[string]interface{}{"aliases": []interface{}{"#a:example.org", "#b:example.org"}}),
		stateEv("$4", "m.room.name", alice, "", map[string]interface{}{"name": "Room A"}),
		stateEv("$5", "m.room.topic", alice, "", map[string]interface{}{"topic": "things"}),
		stateEv("$6", "m.room.guest_access", alice, "", map[string]interface{}{"guest_access": "can_join"}),
		stateEv("$7", "m.room.history_visibility", alice, "", map[string]interface{}{"history_visibility": "shared"}),
		stateEv("$8", "m.room.join_rules", alice, "", map[string]interface{}{"join_rule": "invite"}),
	)

	assert.Equal(t, []string{
		"creator", "canonicalAlias", "aliases", "name", "topic",
		"guestAccess", "historyVisibility", "joinRule",
	}, rec.names())

	assert.Same(t, c.Users.Get(alice), room.Creator())
	assert.Equal(t, id.RoomAlias("#a:example.org"), room.CanonicalAlias())
	assert.Equal(t, []id.RoomAlias{"#a:example.org", "#b:example.org"}, room.Aliases())
	assert.Equal(t, "Room A", room.Name())
	assert.Equal(t, "things", room.Topic())
	assert.True(t, room.GuestAccess())
	assert.Equal(t, "shared", room.HistoryVisibility())
	assert.Equal(t, "invite", room.JoinRule())

	name, ok := rec.notes[3].(*NameEvent)
	require.True(t, ok)
	assert.Equal(t, "Room A", name.Text)
	assert.Same(t, room, name.Room)
}

func TestStateLastWriteWins(t *testing.T) {
	c, rec := newTestClient()

	room := joinState(c, roomA,
		stateEv("$1", "m.room.topic", alice, "", map[string]interface{}{"topic": "old"}),
		stateEv("$2", "m.room.guest_access", alice, "", map[string]interface{}{"guest_access": "can_join"}),
	)
	joinState(c, roomA,
		stateEv("$3", "m.room.topic", alice, "", map[string]interface{}{"topic": "new"}),
		stateEv("$4", "m.room.guest_access", alice, "", map[string]interface{}{"guest_access": "forbidden"}),
	)

	assert.Equal(t, "new", room.Topic())
	assert.False(t, room.GuestAccess())

	last, ok := rec.notes[len(rec.notes)-1].(*GuestAccessEvent)
	require.True(t, ok)
	assert.False(t, last.Allowed)
}

func TestStateCreateWithoutCreatorUsesSender(t *testing.T) {
	c, _ := newTestClient()

	room := joinState(c, roomA, stateEv("$1", "m.room.create", bob, "", map[string]interface{}{"room_version": "11"}))

	assert.Same(t, c.Users.Get(bob), room.Creator())
}

func TestStateIdempotent(t *testing.T) {
	c, rec := newTestClient()

	events := []*Event{
		stateEv("$1", "m.room.name", alice, "", map[string]interface{}{"name": "Room A"}),
		memberEv("$2", alice, alice, "join"),
	}

	room := joinState(c, roomA, events...)
	first := rec.names()

	rec.reset()
	joinState(c, roomA, events...)

	assert.Equal(t, []string{"name", "join"}, first)
	assert.Empty(t, rec.notes, "redelivered events must not notify again")
	assert.Len(t, room.Members(), 1)
}

func TestStateUnknownEventIgnored(t *testing.T) {
	c, rec := newTestClient()

	joinState(c, roomA,
		stateEv("$x", "org.example.custom", alice, "", map[string]interface{}{"anything": true}),
		stateEv("$y", "m.room.message", alice, "", map[string]interface{}{"body": "not state"}),
	)

	assert.Empty(t, rec.notes)

	for _, eventID := range []string{"$x", "$y"} {
		done, err := c.Dedup.IsProcessed(eventID)
		require.NoError(t, err)
		assert.True(t, done, eventID)
	}
}

func TestStateMalformedEventsSkipped(t *testing.T) {
	c, rec := newTestClient()

	room := joinState(c, roomA,
		// no event id
		stateEv("", "m.room.name", alice, "", map[string]interface{}{"name": "ignored"}),
		// invalid member
		memberEv("$1", alice, "bob", "join"),
		// membership of the wrong type
		stateEv("$2", "m.room.member", alice, string(alice), map[string]interface{}{"membership": 12}),
		// missing membership
		stateEv("$3", "m.room.member", alice, string(alice), map[string]interface{}{}),
		// invalid creator
		stateEv("$4", "m.room.create", "", "", map[string]interface{}{}),
	)

	assert.Empty(t, rec.notes)
	assert.Empty(t, room.Name())
	assert.Empty(t, room.Members())
	assert.Nil(t, room.Creator())

	done, _ := c.Dedup.IsProcessed("$1")
	assert.True(t, done, "malformed events are still marked")
}

func TestMembershipTransitions(t *testing.T) {
	c, rec := newTestClient()

	room := joinState(c, roomA,
		memberEv("$1", alice, alice, "join"),
		memberEv("$2", bob, bob, "join"),
		memberEv("$3", alice, alice, "leave"),
		memberEv("$4", alice, bob, "invite"),
		memberEv("$5", alice, carol, "ban"),
		memberEv("$6", carol, carol, "join"),
		memberEv("$7", alice, nobody, "invite"),
	)

	assert.Equal(t, []string{"join", "join", "leave", "ban", "join", "invite"}, rec.names())

	var members []id.UserID
	for _, u := range room.Members() {
		members = append(members, u.ID())
	}

	assert.Equal(t, []id.UserID{bob, carol}, members)
	assert.True(t, room.IsMember(c.Users.Get(bob)))
	assert.False(t, room.IsMember(c.Users.Get(alice)))
	assert.False(t, room.IsMember(nil))

	for userID, want := range map[id.UserID]event.Membership{
		alice:  event.MembershipLeave,
		bob:    event.MembershipJoin,
		carol:  event.MembershipJoin,
		nobody: event.MembershipInvite,
	} {
		got, ok := c.Users.Get(userID).MembershipIn(room)
		assert.True(t, ok, userID)
		assert.Equal(t, want, got, userID)
	}

	membership, ok := rec.notes[3].(*MembershipEvent)
	require.True(t, ok)
	assert.Same(t, c.Users.Get(carol), membership.User)
	assert.Same(t, room, membership.Room)
}

func TestInviteDoesNotRegressJoin(t *testing.T) {
	c, rec := newTestClient()

	var userNotes []string
	c.Users.On(func(n Notification) {
		if d, ok := n.(*UserDiscoveredEvent); ok {
			d.User.On(func(n Notification) { userNotes = append(userNotes, n.Name()) })
		}
	})

	room := joinState(c, roomA,
		memberEv("$1", alice, alice, "join"),
		memberEv("$2", bob, alice, "invite"),
	)

	assert.Equal(t, []string{"join"}, rec.names())
	assert.Equal(t, []string{"membership"}, userNotes)

	membership, _ := c.Users.Get(alice).MembershipIn(room)
	assert.Equal(t, event.MembershipJoin, membership)
	assert.True(t, room.IsMember(c.Users.Get(alice)))
}

func TestMemberProfileUpdates(t *testing.T) {
	c, _ := newTestClient()

	var notes []Notification
	c.Users.On(func(n Notification) {
		if d, ok := n.(*UserDiscoveredEvent); ok {
			d.User.On(func(n Notification) { notes = append(notes, n) })
		}
	})

	joinState(c, roomA,
		stateEv("$1", "m.room.member", alice, string(alice), map[string]interface{}{
			"membership":  "join",
			"displayname": "Alice",
			"avatar_url":  "mxc://example.org/a",
		}),
	)

	u := c.Users.Get(alice)
	assert.Equal(t, "Alice", u.DisplayName())
	assert.Equal(t, "mxc://example.org/a", u.AvatarURL())

	require.Len(t, notes, 3)
	assert.Equal(t, "Alice", notes[0].(*DisplayNameEvent).Text)
	assert.Equal(t, "mxc://example.org/a", notes[1].(*AvatarEvent).URL)
	assert.Equal(t, event.MembershipJoin, notes[2].(*UserMembershipEvent).Membership)
}

func TestProcessInvite(t *testing.T) {
	c, rec := newTestClient()
	room := c.Rooms.Resolve(roomA)

	room.ProcessInvite(&InvitePayload{InviteState: &EventList{Events: []*Event{
		stateEv("", "m.room.name", alice, "", map[string]interface{}{"name": "preview"}),
		memberEv("", alice, alice, "join"),
		memberEv("", alice, bob, "invite"),
	}}})

	require.Equal(t, []string{"invited"}, rec.names())

	invited := rec.notes[0].(*InvitedEvent)
	assert.Same(t, c.Users.Get(alice), invited.Sender)
	assert.Same(t, c.Users.Get(bob), invited.Invitee)
	assert.Same(t, room, invited.Room)
	assert.Empty(t, room.Name(), "invite preview is not room state")
	assert.Empty(t, room.Members())

	membership, ok := c.Users.Get(bob).MembershipIn(room)
	assert.True(t, ok)
	assert.Equal(t, event.MembershipInvite, membership)
}

func TestProcessInviteForJoinedMember(t *testing.T) {
	c, rec := newTestClient()

	room := joinState(c, roomA, memberEv("$1", bob, bob, "join"))
	rec.reset()

	room.ProcessInvite(&InvitePayload{InviteState: &EventList{Events: []*Event{
		memberEv("$2", alice, bob, "invite"),
	}}})
	room.ProcessInvite(nil)
	room.ProcessInvite(&InvitePayload{})

	assert.Empty(t, rec.notes)
}

func TestProcessInviteDeduplicatesByID(t *testing.T) {
	c, rec := newTestClient()
	room := c.Rooms.Resolve(roomA)

	payload := &InvitePayload{InviteState: &EventList{Events: []*Event{memberEv("$inv", alice, bob, "invite")}}}
	room.ProcessInvite(payload)
	room.ProcessInvite(payload)

	assert.Equal(t, []string{"invited"}, rec.names())
}

func TestProcessInviteRedelivered(t *testing.T) {
	c, rec := newTestClient()

	delta := `{"next_batch": "s1", "rooms": {"invite": {"!A:example.org": {"invite_state": {"events": [
		{"type": "m.room.member", "sender": "@alice:example.org", "state_key": "@bob:example.org",
		 "content": {"membership": "invite"}}
	]}}}}}`

	c.Syncer.Process(parseSync(t, delta))
	require.Equal(t, []string{"invited"}, rec.names())

	var userNotes []Notification
	c.Users.Get(bob).On(func(n Notification) { userNotes = append(userNotes, n) })

	c.Syncer.Process(parseSync(t, delta))

	assert.Equal(t, []string{"invited"}, rec.names())
	assert.Empty(t, userNotes)
}

func TestProcessInviteFromAnotherSender(t *testing.T) {
	c, rec := newTestClient()
	room := c.Rooms.Resolve(roomA)

	room.ProcessInvite(&InvitePayload{InviteState: &EventList{Events: []*Event{memberEv("", alice, bob, "invite")}}})
	room.ProcessInvite(&InvitePayload{InviteState: &EventList{Events: []*Event{memberEv("", carol, bob, "invite")}}})

	require.Equal(t, []string{"invited", "invited"}, rec.names())
	assert.Same(t, c.Users.Get(carol), rec.notes[1].(*InvitedEvent).Sender)
}

func TestProcessInviteAfterLeave(t *testing.T) {
	c, rec := newTestClient()

	invite := &InvitePayload{InviteState: &EventList{Events: []*Event{memberEv("", alice, bob, "invite")}}}

	room := c.Rooms.Resolve(roomA)
	room.ProcessInvite(invite)

	joinState(c, roomA, memberEv("$leave", bob, bob, "leave"))
	room.ProcessInvite(invite)

	assert.Equal(t, []string{"invited", "leave", "invited"}, rec.names())
}
