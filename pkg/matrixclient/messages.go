package matrixclient

import (
	strip "github.com/grokify/html-strip-tags-go"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

const formatHTML = "org.matrix.custom.html"

func (c *Client) SendText(roomID id.RoomID, text string) (id.EventID, error) {
	return c.send(roomID, &event.MessageEventContent{MsgType: event.MsgText, Body: text})
}

func (c *Client) SendNotice(roomID id.RoomID, text string) (id.EventID, error) {
	return c.send(roomID, &event.MessageEventContent{MsgType: event.MsgNotice, Body: text})
}

func (c *Client) SendEmote(roomID id.RoomID, text string) (id.EventID, error) {
	return c.send(roomID, &event.MessageEventContent{MsgType: event.MsgEmote, Body: text})
}

// SendHTML sends an html formatted text message. plain is the fallback body
// for clients without html support; when empty the tags are stripped from
// html instead.
func (c *Client) SendHTML(roomID id.RoomID, html, plain string) (id.EventID, error) {
	if plain == "" {
		plain = strip.StripTags(html)
	}

	return c.send(roomID, &event.MessageEventContent{
		MsgType:       event.MsgText,
		Body:          plain,
		Format:        formatHTML,
		FormattedBody: html,
	})
}

func (c *Client) send(roomID id.RoomID, content *event.MessageEventContent) (id.EventID, error) {
	logger.Debugf("sending %s to %s: %q", content.MsgType, roomID, content.Body)

	resp, err := c.mc.SendMessageEvent(roomID, event.EventMessage, content)
	if err != nil {
		return "", classify(err)
	}

	logger.Tracef("sent %s to %s", resp.EventID, roomID)

	return resp.EventID, nil
}
