package mirror

import (
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Membership is a user's relationship to one room.
type Membership struct {
	Type      event.Membership
	Power     int
	InvitedBy id.UserID
}

// User is the single long-lived instance for a user ID. Rooms are referenced
// by ID so users and rooms never own each other.
type User struct {
	Emitter

	id          id.UserID
	displayName string
	avatarURL   string
	memberships map[id.RoomID]*Membership
}

func newUser(userID id.UserID) *User {
	return &User{
		id:          userID,
		memberships: make(map[id.RoomID]*Membership),
	}
}

func (u *User) ID() id.UserID {
	return u.id
}

func (u *User) DisplayName() string {
	return u.displayName
}

func (u *User) AvatarURL() string {
	return u.avatarURL
}

// PowerIn returns the user's power level in room, 0 when none was recorded.
func (u *User) PowerIn(room *Room) int {
	if u == nil || room == nil {
		return 0
	}

	if m, ok := u.memberships[room.id]; ok {
		return m.Power
	}

	return 0
}

// MembershipIn returns the recorded membership type for room.
func (u *User) MembershipIn(room *Room) (event.Membership, bool) {
	m, ok := u.memberships[room.id]
	if !ok || m.Type == "" {
		return "", false
	}

	return m.Type, true
}

func (u *User) String() string {
	return u.id.String()
}

func (u *User) membership(roomID id.RoomID) *Membership {
	m, ok := u.memberships[roomID]
	if !ok {
		m = &Membership{}
		u.memberships[roomID] = m
	}

	return m
}

func (u *User) setMembership(room *Room, membership event.Membership) {
	m := u.membership(room.id)
	m.Type = membership
	m.InvitedBy = ""
	u.emit(&UserMembershipEvent{User: u, Room: room, Membership: membership})
}

func (u *User) setInvite(room *Room, sender id.UserID) {
	m := u.membership(room.id)
	m.Type = event.MembershipInvite
	m.InvitedBy = sender
	u.emit(&UserMembershipEvent{User: u, Room: room, Membership: event.MembershipInvite})
}

// invitedBy returns who invited the user to room, empty unless the current
// membership is an invite.
func (u *User) invitedBy(room *Room) id.UserID {
	if m, ok := u.memberships[room.id]; ok && m.Type == event.MembershipInvite {
		return m.InvitedBy
	}

	return ""
}

func (u *User) setPower(room *Room, level int) {
	u.membership(room.id).Power = level
	u.emit(&PowerLevelEvent{User: u, Room: room, Level: level})
}

// updateProfile applies displayname and avatar_url from member event
// content. Profiles are global, the last member event wins.
func (u *User) updateProfile(content map[string]interface{}) {
	if name, ok := content["displayname"]; ok {
		u.displayName, _ = name.(string)
		u.emit(&DisplayNameEvent{User: u, Text: u.displayName})
	}

	if url, ok := content["avatar_url"]; ok {
		u.avatarURL, _ = url.(string)
		u.emit(&AvatarEvent{User: u, URL: u.avatarURL})
	}
}
