package mirror

import (
	"time"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageEmote  MessageType = "emote"
	MessageNotice MessageType = "notice"
	MessageHTML   MessageType = "html"
)

const formatHTML = "org.matrix.custom.html"

var messageTypes = map[event.MessageType]MessageType{
	event.MsgText:   MessageText,
	event.MsgEmote:  MessageEmote,
	event.MsgNotice: MessageNotice,
}

// Message is a decoded room message. It is not retained by the mirror.
type Message struct {
	ID     id.EventID
	Sender *User
	// Timestamp is the origin server time in milliseconds.
	Timestamp int64
	// Type is empty for message types the mirror does not know.
	Type          MessageType
	Body          string
	FormattedBody string
	Raw           map[string]interface{}
}

func newMessage(sender *User, ev *Event, content *messageContent) *Message {
	msg := &Message{
		ID:        ev.ID,
		Sender:    sender,
		Timestamp: ev.Timestamp,
		Type:      messageTypes[event.MessageType(content.MsgType)],
		Body:      content.Body,
		Raw:       ev.Content,
	}

	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	// formatted_body is passed through as is, Body already is the plain
	// text fallback sent by the client
	if content.Format == formatHTML {
		msg.Type = MessageHTML
		msg.FormattedBody = content.FormattedBody
	}

	return msg
}

func (m *Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}
