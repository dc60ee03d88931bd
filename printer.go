package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/42wim/matrixmirror/mirror"
	strip "github.com/grokify/html-strip-tags-go"
	"github.com/muesli/reflow/wordwrap"
)

// printer writes one line per interesting notification.
type printer struct {
	sync.Mutex
	w    io.Writer
	wrap int
}

func newPrinter(w io.Writer, wrap int) *printer {
	return &printer{w: w, wrap: wrap}
}

// attach subscribes to every room and user the mirror discovers and to the
// syncer itself.
func (p *printer) attach(m *mirror.Client) {
	m.Rooms.On(func(n mirror.Notification) {
		if e, ok := n.(*mirror.RoomDiscoveredEvent); ok {
			e.Room.On(p.handle)
		}
	})

	m.Users.On(func(n mirror.Notification) {
		if e, ok := n.(*mirror.UserDiscoveredEvent); ok {
			e.User.On(p.handle)
		}
	})

	m.Syncer.On(p.handle)
}

//nolint:cyclop
func (p *printer) handle(n mirror.Notification) {
	var line string

	switch e := n.(type) {
	case *mirror.MessageEvent:
		line = formatMessage(e.Room, e.Message)
	case *mirror.MembershipEvent:
		line = fmt.Sprintf("%s: %s %s", e.Room, userName(e.User), e.Membership)
	case *mirror.InvitedEvent:
		line = fmt.Sprintf("%s: %s invited %s", e.Room, userName(e.Sender), userName(e.Invitee))
	case *mirror.CreatorEvent:
		line = fmt.Sprintf("%s: created by %s", e.Room, userName(e.Creator))
	case *mirror.NameEvent:
		line = fmt.Sprintf("%s: name set to %q", e.Room.ID(), e.Text)
	case *mirror.TopicEvent:
		line = fmt.Sprintf("%s: topic set to %q", e.Room, e.Text)
	case *mirror.CanonicalAliasEvent:
		line = fmt.Sprintf("%s: alias set to %s", e.Room.ID(), e.Alias)
	case *mirror.JoinRuleEvent:
		line = fmt.Sprintf("%s: join rule %s", e.Room, e.JoinRule)
	case *mirror.DisplayNameEvent:
		if e.Text == "" {
			return
		}

		line = fmt.Sprintf("%s is now known as %q", e.User.ID(), e.Text)
	case *mirror.SyncErrorEvent:
		logger.Warnf("sync failed: %s", e.Err)
		return
	case *mirror.SyncEvent:
		logger.Debugf("synced up to %s", e.NextBatch)
		return
	default:
		logger.Tracef("%s notification", n.Name())
		return
	}

	p.print(line)
}

func (p *printer) print(line string) {
	if p.wrap > 0 {
		line = wordwrap.String(line, p.wrap)
	}

	p.Lock()
	defer p.Unlock()

	fmt.Fprintln(p.w, line)
}

func formatMessage(room *mirror.Room, msg *mirror.Message) string {
	body := msg.Body
	if body == "" && msg.FormattedBody != "" {
		body = strip.StripTags(msg.FormattedBody)
	}

	stamp := msg.Time().Format("15:04")
	sender := userName(msg.Sender)

	switch msg.Type {
	case mirror.MessageEmote:
		return fmt.Sprintf("[%s] %s: * %s %s", stamp, room, sender, body)
	case mirror.MessageNotice:
		return fmt.Sprintf("[%s] %s: -%s- %s", stamp, room, sender, body)
	default:
		return fmt.Sprintf("[%s] %s: <%s> %s", stamp, room, sender, body)
	}
}

func userName(u *mirror.User) string {
	if u == nil {
		return "?"
	}

	if name := u.DisplayName(); name != "" {
		return name
	}

	return u.ID().String()
}
