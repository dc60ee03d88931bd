package mirror

// Action is a room operation gated by a power level threshold.
type Action string

const (
	ActionBan    Action = "ban"
	ActionKick   Action = "kick"
	ActionInvite Action = "invite"
	ActionRedact Action = "redact"
)

// Permissions holds a room's power level thresholds. An action or event type
// without a threshold is denied to everyone.
type Permissions struct {
	room    *Room
	actions map[Action]int
	events  map[string]int
}

func newPermissions(room *Room) *Permissions {
	return &Permissions{
		room:    room,
		actions: make(map[Action]int),
		events:  make(map[string]int),
	}
}

// update replaces both tables with the content of a power levels event.
func (p *Permissions) update(content *powerLevelsContent) {
	actions := make(map[Action]int)

	for action, level := range map[Action]*int{
		ActionBan:    content.Ban,
		ActionKick:   content.Kick,
		ActionInvite: content.Invite,
		ActionRedact: content.Redact,
	} {
		if level != nil {
			actions[action] = *level
		}
	}

	events := make(map[string]int, len(content.Events))
	for eventType, level := range content.Events {
		events[eventType] = level
	}

	p.actions = actions
	p.events = events
}

// Can reports whether user's power in the room reaches the threshold for
// action.
func (p *Permissions) Can(user *User, action Action) bool {
	threshold, ok := p.actions[action]
	if !ok {
		return false
	}

	return user.PowerIn(p.room) >= threshold
}

// CanSet reports whether user may send state events of eventType
// (e.g. "m.room.name").
func (p *Permissions) CanSet(user *User, eventType string) bool {
	threshold, ok := p.events[eventType]
	if !ok {
		return false
	}

	return user.PowerIn(p.room) >= threshold
}

// Threshold returns the level required for action.
func (p *Permissions) Threshold(action Action) (int, bool) {
	level, ok := p.actions[action]
	return level, ok
}

// EventThreshold returns the level required to send eventType.
func (p *Permissions) EventThreshold(eventType string) (int, bool) {
	level, ok := p.events[eventType]
	return level, ok
}
