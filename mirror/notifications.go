package mirror

import (
	"sync"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Notification is a change reported to listeners. Name returns the
// notification name (e.g. "join", "message", "syncError").
type Notification interface {
	Name() string
}

// Listener receives notifications synchronously on the sync goroutine.
// Listeners must not block and must not call Syncer.Stop directly.
type Listener func(Notification)

// Emitter delivers notifications to its listeners in registration order.
type Emitter struct {
	mu        sync.RWMutex
	listeners []Listener
}

// On registers l.
func (e *Emitter) On(l Listener) {
	e.mu.Lock()
	e.listeners = append(e.listeners, l)
	e.mu.Unlock()
}

func (e *Emitter) emit(n Notification) {
	e.mu.RLock()
	listeners := e.listeners
	e.mu.RUnlock()

	for _, l := range listeners {
		l(n)
	}
}

type RoomDiscoveredEvent struct {
	Room *Room
}

type UserDiscoveredEvent struct {
	User *User
}

type CreatorEvent struct {
	Room    *Room
	Creator *User
}

type CanonicalAliasEvent struct {
	Room  *Room
	Alias id.RoomAlias
}

type AliasesEvent struct {
	Room    *Room
	Aliases []id.RoomAlias
}

type NameEvent struct {
	Room *Room
	Text string
}

type TopicEvent struct {
	Room *Room
	Text string
}

type GuestAccessEvent struct {
	Room    *Room
	Allowed bool
}

type HistoryVisibilityEvent struct {
	Room       *Room
	Visibility string
}

type JoinRuleEvent struct {
	Room     *Room
	JoinRule string
}

type PermissionsEvent struct {
	Room        *Room
	Permissions *Permissions
}

// MembershipEvent is emitted by a room when a member event changes a user's
// membership. Its name is the membership value itself.
type MembershipEvent struct {
	Room       *Room
	User       *User
	Membership event.Membership
}

type InvitedEvent struct {
	Room    *Room
	Sender  *User
	Invitee *User
}

type MessageEvent struct {
	Room    *Room
	Message *Message
}

// UserMembershipEvent is the user-side counterpart of MembershipEvent.
type UserMembershipEvent struct {
	User       *User
	Room       *Room
	Membership event.Membership
}

type PowerLevelEvent struct {
	User  *User
	Room  *Room
	Level int
}

type DisplayNameEvent struct {
	User *User
	Text string
}

type AvatarEvent struct {
	User *User
	URL  string
}

type SyncErrorEvent struct {
	Err error
}

type SyncEvent struct {
	NextBatch string
}

func (*RoomDiscoveredEvent) Name() string    { return "entityDiscovered" }
func (*UserDiscoveredEvent) Name() string    { return "entityDiscovered" }
func (*CreatorEvent) Name() string           { return "creator" }
func (*CanonicalAliasEvent) Name() string    { return "canonicalAlias" }
func (*AliasesEvent) Name() string           { return "aliases" }
func (*NameEvent) Name() string              { return "name" }
func (*TopicEvent) Name() string             { return "topic" }
func (*GuestAccessEvent) Name() string       { return "guestAccess" }
func (*HistoryVisibilityEvent) Name() string { return "historyVisibility" }
func (*JoinRuleEvent) Name() string          { return "joinRule" }
func (*PermissionsEvent) Name() string       { return "permissions" }
func (e *MembershipEvent) Name() string      { return string(e.Membership) }
func (*InvitedEvent) Name() string           { return "invited" }
func (*MessageEvent) Name() string           { return "message" }
func (*UserMembershipEvent) Name() string    { return "membership" }
func (*PowerLevelEvent) Name() string        { return "powerLevel" }
func (*DisplayNameEvent) Name() string       { return "displayName" }
func (*AvatarEvent) Name() string            { return "avatar" }
func (*SyncErrorEvent) Name() string         { return "syncError" }
func (*SyncEvent) Name() string              { return "sync" }
