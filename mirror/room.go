package mirror

import (
	"sort"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Room mirrors the state of one room. A new room is valid but empty; its
// fields fill in as state events arrive.
type Room struct {
	Emitter

	id    id.RoomID
	users *Users
	dedup *Dedup

	canonicalAlias    id.RoomAlias
	aliases           []id.RoomAlias
	name              string
	topic             string
	creator           id.UserID
	guestAccess       bool
	historyVisibility string
	joinRule          string

	members     map[id.UserID]struct{}
	permissions *Permissions
}

func newRoom(roomID id.RoomID, users *Users, dedup *Dedup) *Room {
	r := &Room{
		id:      roomID,
		users:   users,
		dedup:   dedup,
		members: make(map[id.UserID]struct{}),
	}
	r.permissions = newPermissions(r)

	return r
}

func (r *Room) ID() id.RoomID {
	return r.id
}

func (r *Room) CanonicalAlias() id.RoomAlias {
	return r.canonicalAlias
}

func (r *Room) Aliases() []id.RoomAlias {
	return append([]id.RoomAlias(nil), r.aliases...)
}

func (r *Room) Name() string {
	return r.name
}

func (r *Room) Topic() string {
	return r.topic
}

// Creator returns the user who created the room, nil until the create event
// has been seen.
func (r *Room) Creator() *User {
	if r.creator == "" {
		return nil
	}

	return r.users.Get(r.creator)
}

func (r *Room) GuestAccess() bool {
	return r.guestAccess
}

func (r *Room) HistoryVisibility() string {
	return r.historyVisibility
}

func (r *Room) JoinRule() string {
	return r.joinRule
}

func (r *Room) Permissions() *Permissions {
	return r.permissions
}

// IsMember reports whether user currently has join membership.
func (r *Room) IsMember(user *User) bool {
	if user == nil {
		return false
	}

	_, ok := r.members[user.id]

	return ok
}

// Members returns the joined users ordered by ID.
func (r *Room) Members() []*User {
	ids := make([]id.UserID, 0, len(r.members))
	for userID := range r.members {
		ids = append(ids, userID)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	members := make([]*User, 0, len(ids))
	for _, userID := range ids {
		members = append(members, r.users.Get(userID))
	}

	return members
}

// String returns the room name, else its canonical alias, else its ID.
func (r *Room) String() string {
	switch {
	case r.name != "":
		return r.name
	case r.canonicalAlias != "":
		return r.canonicalAlias.String()
	default:
		return r.id.String()
	}
}

// ProcessJoin folds a joined room's payload: state first, then timeline, so
// timeline events see the state delivered with them.
func (r *Room) ProcessJoin(p *RoomPayload) {
	if p == nil {
		return
	}

	if p.State != nil {
		r.applyState(p.State.Events)
	}

	if p.Timeline != nil {
		r.applyTimeline(p.Timeline.Events)
	}
}

// ProcessLeave folds the last snapshot of a room the user left. It has the
// same shape as a join payload.
func (r *Room) ProcessLeave(p *RoomPayload) {
	r.ProcessJoin(p)
}

// ProcessInvite handles the stripped invite state of a room the user was
// invited to. Only invite member events are looked at; this preview is not
// folded into room state.
func (r *Room) ProcessInvite(p *InvitePayload) {
	if p == nil || p.InviteState == nil {
		return
	}

	for _, ev := range p.InviteState.Events {
		r.processInviteEvent(ev)
	}
}

func (r *Room) processInviteEvent(ev *Event) {
	if ev == nil || kindOf(ev.Type) != KindMember {
		return
	}

	// stripped state usually has no event id, those are handled every time
	if ev.ID != "" {
		if done, _ := r.dedup.IsProcessed(ev); done {
			eventsDuplicate.Inc()
			return
		}

		defer r.dedup.Mark(ev) //nolint:errcheck
	}

	var content memberContent
	if err := decodeContent(ev, &content); err != nil {
		logger.Debugf("skipping malformed invite event in %s: %s", r.id, err)
		return
	}

	if event.Membership(content.Membership) != event.MembershipInvite {
		return
	}

	if ev.StateKey == nil || !validUserID(id.UserID(*ev.StateKey)) || !validUserID(ev.Sender) {
		logger.Debugf("skipping invite event with invalid users in %s", r.id)
		return
	}

	sender := r.users.Resolve(ev.Sender)
	invitee := r.users.Resolve(id.UserID(*ev.StateKey))

	if r.IsMember(invitee) {
		return
	}

	// redelivered stripped state carries no id to dedup on
	if ev.ID == "" && invitee.invitedBy(r) == sender.id {
		eventsDuplicate.Inc()
		return
	}

	invitee.updateProfile(ev.Content)
	invitee.setInvite(r, sender.id)

	eventsProcessed.WithLabelValues("invite").Inc()
	r.emit(&InvitedEvent{Room: r, Sender: sender, Invitee: invitee})
}
