package mirror

import (
	"github.com/mitchellh/mapstructure"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Event is a single protocol event as it appears inside a sync response.
type Event struct {
	ID        id.EventID             `json:"event_id,omitempty"`
	Type      string                 `json:"type"`
	Sender    id.UserID              `json:"sender"`
	StateKey  *string                `json:"state_key,omitempty"`
	Timestamp int64                  `json:"origin_server_ts,omitempty"`
	Content   map[string]interface{} `json:"content"`
}

// IsState reports whether the event carries a state key.
func (ev *Event) IsState() bool {
	return ev.StateKey != nil
}

// EventList is the `{ "events": [...] }` wrapper used by every payload section.
type EventList struct {
	Events []*Event `json:"events"`
}

// RoomPayload is the per-room section of the join and leave categories.
// A nil section means the server did not send it.
type RoomPayload struct {
	State    *EventList `json:"state,omitempty"`
	Timeline *EventList `json:"timeline,omitempty"`
}

// InvitePayload is the per-room section of the invite category.
type InvitePayload struct {
	InviteState *EventList `json:"invite_state,omitempty"`
}

type SyncRooms struct {
	Join   map[id.RoomID]*RoomPayload   `json:"join,omitempty"`
	Invite map[id.RoomID]*InvitePayload `json:"invite,omitempty"`
	Leave  map[id.RoomID]*RoomPayload   `json:"leave,omitempty"`
}

// SyncResponse is one delta returned by the transport.
type SyncResponse struct {
	NextBatch string    `json:"next_batch"`
	Rooms     SyncRooms `json:"rooms"`
}

// Kind enumerates the event types the mirror folds into state. Everything
// else maps to KindUnknown and is ignored.
type Kind int

const (
	KindUnknown Kind = iota
	KindCreate
	KindCanonicalAlias
	KindAliases
	KindName
	KindTopic
	KindGuestAccess
	KindHistoryVisibility
	KindJoinRules
	KindPowerLevels
	KindMember
	KindMessage
)

var kindNames = [...]string{
	KindUnknown:           "unknown",
	KindCreate:            "create",
	KindCanonicalAlias:    "canonical_alias",
	KindAliases:           "aliases",
	KindName:              "name",
	KindTopic:             "topic",
	KindGuestAccess:       "guest_access",
	KindHistoryVisibility: "history_visibility",
	KindJoinRules:         "join_rules",
	KindPowerLevels:       "power_levels",
	KindMember:            "member",
	KindMessage:           "message",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}

	return kindNames[k]
}

func kindOf(eventType string) Kind {
	switch eventType {
	case event.StateCreate.Type:
		return KindCreate
	case event.StateCanonicalAlias.Type:
		return KindCanonicalAlias
	case event.StateAliases.Type:
		return KindAliases
	case event.StateRoomName.Type:
		return KindName
	case event.StateTopic.Type:
		return KindTopic
	case event.StateGuestAccess.Type:
		return KindGuestAccess
	case event.StateHistoryVisibility.Type:
		return KindHistoryVisibility
	case event.StateJoinRules.Type:
		return KindJoinRules
	case event.StatePowerLevels.Type:
		return KindPowerLevels
	case event.StateMember.Type:
		return KindMember
	case event.EventMessage.Type:
		return KindMessage
	default:
		return KindUnknown
	}
}

type createContent struct {
	Creator string `mapstructure:"creator"`
}

type canonicalAliasContent struct {
	Alias string `mapstructure:"alias"`
}

type aliasesContent struct {
	Aliases []string `mapstructure:"aliases"`
}

type nameContent struct {
	Name string `mapstructure:"name"`
}

type topicContent struct {
	Topic string `mapstructure:"topic"`
}

type guestAccessContent struct {
	GuestAccess string `mapstructure:"guest_access"`
}

type historyVisibilityContent struct {
	HistoryVisibility string `mapstructure:"history_visibility"`
}

type joinRulesContent struct {
	JoinRule string `mapstructure:"join_rule"`
}

type memberContent struct {
	Membership  string `mapstructure:"membership"`
	Displayname string `mapstructure:"displayname"`
	AvatarURL   string `mapstructure:"avatar_url"`
}

type powerLevelsContent struct {
	Ban    *int           `mapstructure:"ban"`
	Kick   *int           `mapstructure:"kick"`
	Invite *int           `mapstructure:"invite"`
	Redact *int           `mapstructure:"redact"`
	Events map[string]int `mapstructure:"events"`
	Users  map[string]int `mapstructure:"users"`
}

type messageContent struct {
	MsgType       string `mapstructure:"msgtype"`
	Body          string `mapstructure:"body"`
	Format        string `mapstructure:"format"`
	FormattedBody string `mapstructure:"formatted_body"`
}

func decodeContent(ev *Event, out interface{}) error {
	return mapstructure.Decode(ev.Content, out)
}

// decodeWeakContent also accepts numbers sent as strings, as older room
// versions allow in power levels.
func decodeWeakContent(ev *Event, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}

	return dec.Decode(ev.Content)
}
