package mirror

import (
	"errors"
	"fmt"
	"sort"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

var errMalformed = errors.New("malformed event")

// applyState folds state events into the room in the order received.
func (r *Room) applyState(events []*Event) {
	for _, ev := range events {
		r.applyStateEvent(ev)
	}
}

func (r *Room) applyStateEvent(ev *Event) {
	done, err := r.dedup.IsProcessed(ev)
	if err != nil {
		logger.Debugf("skipping state event in %s: %s", r.id, err)
		return
	}

	if done {
		eventsDuplicate.Inc()
		return
	}

	if logger.Logger.IsLevelEnabled(logrus.TraceLevel) {
		logger.Tracef("state event %s", spew.Sdump(ev))
	}

	kind := kindOf(ev.Type)

	switch kind {
	case KindCreate:
		err = r.handleCreate(ev)
	case KindCanonicalAlias:
		err = r.handleCanonicalAlias(ev)
	case KindAliases:
		err = r.handleAliases(ev)
	case KindName:
		err = r.handleName(ev)
	case KindTopic:
		err = r.handleTopic(ev)
	case KindGuestAccess:
		err = r.handleGuestAccess(ev)
	case KindHistoryVisibility:
		err = r.handleHistoryVisibility(ev)
	case KindJoinRules:
		err = r.handleJoinRules(ev)
	case KindPowerLevels:
		err = r.handlePowerLevels(ev)
	case KindMember:
		err = r.handleMember(ev)
	case KindMessage, KindUnknown:
		// not state we track
	}

	if err != nil {
		logger.Debugf("skipping %s event %s in %s: %s", ev.Type, ev.ID, r.id, err)
	}

	r.dedup.Mark(ev) //nolint:errcheck
	eventsProcessed.WithLabelValues(kind.String()).Inc()
}

func (r *Room) handleCreate(ev *Event) error {
	var content createContent
	if err := decodeContent(ev, &content); err != nil {
		return err
	}

	// newer room versions drop content.creator, the sender is the creator
	creator := id.UserID(content.Creator)
	if creator == "" {
		creator = ev.Sender
	}

	if !validUserID(creator) {
		return fmt.Errorf("%w: creator %q", errMalformed, creator)
	}

	user := r.users.Resolve(creator)
	r.creator = user.id
	r.emit(&CreatorEvent{Room: r, Creator: user})

	return nil
}

func (r *Room) handleCanonicalAlias(ev *Event) error {
	var content canonicalAliasContent
	if err := decodeContent(ev, &content); err != nil {
		return err
	}

	r.canonicalAlias = id.RoomAlias(content.Alias)
	r.emit(&CanonicalAliasEvent{Room: r, Alias: r.canonicalAlias})

	return nil
}

func (r *Room) handleAliases(ev *Event) error {
	var content aliasesContent
	if err := decodeContent(ev, &content); err != nil {
		return err
	}

	aliases := make([]id.RoomAlias, 0, len(content.Aliases))
	for _, alias := range content.Aliases {
		aliases = append(aliases, id.RoomAlias(alias))
	}

	r.aliases = aliases
	r.emit(&AliasesEvent{Room: r, Aliases: r.Aliases()})

	return nil
}

func (r *Room) handleName(ev *Event) error {
	var content nameContent
	if err := decodeContent(ev, &content); err != nil {
		return err
	}

	r.name = content.Name
	r.emit(&NameEvent{Room: r, Text: r.name})

	return nil
}

func (r *Room) handleTopic(ev *Event) error {
	var content topicContent
	if err := decodeContent(ev, &content); err != nil {
		return err
	}

	r.topic = content.Topic
	r.emit(&TopicEvent{Room: r, Text: r.topic})

	return nil
}

func (r *Room) handleGuestAccess(ev *Event) error {
	var content guestAccessContent
	if err := decodeContent(ev, &content); err != nil {
		return err
	}

	r.guestAccess = content.GuestAccess == "can_join"
	r.emit(&GuestAccessEvent{Room: r, Allowed: r.guestAccess})

	return nil
}

func (r *Room) handleHistoryVisibility(ev *Event) error {
	var content historyVisibilityContent
	if err := decodeContent(ev, &content); err != nil {
		return err
	}

	r.historyVisibility = content.HistoryVisibility
	r.emit(&HistoryVisibilityEvent{Room: r, Visibility: r.historyVisibility})

	return nil
}

func (r *Room) handleJoinRules(ev *Event) error {
	var content joinRulesContent
	if err := decodeContent(ev, &content); err != nil {
		return err
	}

	r.joinRule = content.JoinRule
	r.emit(&JoinRuleEvent{Room: r, JoinRule: r.joinRule})

	return nil
}

func (r *Room) handlePowerLevels(ev *Event) error {
	var content powerLevelsContent
	if err := decodeWeakContent(ev, &content); err != nil {
		return err
	}

	r.permissions.update(&content)
	r.emit(&PermissionsEvent{Room: r, Permissions: r.permissions})

	userIDs := make([]string, 0, len(content.Users))
	for userID := range content.Users {
		userIDs = append(userIDs, userID)
	}

	sort.Strings(userIDs)

	for _, userID := range userIDs {
		if !validUserID(id.UserID(userID)) {
			logger.Debugf("ignoring power level for invalid user %q in %s", userID, r.id)
			continue
		}

		r.users.Resolve(id.UserID(userID)).setPower(r, content.Users[userID])
	}

	return nil
}

// handleMember applies a membership change to the user named by the state
// key. An invite never downgrades a joined member.
func (r *Room) handleMember(ev *Event) error {
	var content memberContent
	if err := decodeContent(ev, &content); err != nil {
		return err
	}

	if content.Membership == "" {
		return fmt.Errorf("%w: no membership", errMalformed)
	}

	target := ev.Sender
	if ev.StateKey != nil && *ev.StateKey != "" {
		target = id.UserID(*ev.StateKey)
	}

	if !validUserID(target) || !validUserID(ev.Sender) {
		return fmt.Errorf("%w: member %q sender %q", errMalformed, target, ev.Sender)
	}

	r.users.Resolve(ev.Sender)
	user := r.users.Resolve(target)
	user.updateProfile(ev.Content)

	membership := event.Membership(content.Membership)
	if membership == event.MembershipInvite && r.IsMember(user) {
		return nil
	}

	if membership == event.MembershipInvite {
		user.setInvite(r, ev.Sender)
	} else {
		user.setMembership(r, membership)
	}

	if membership == event.MembershipJoin {
		r.members[user.id] = struct{}{}
	} else {
		delete(r.members, user.id)
	}

	r.emit(&MembershipEvent{Room: r, User: user, Membership: membership})

	return nil
}
