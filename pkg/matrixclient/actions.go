package matrixclient

import (
	"errors"
	"fmt"

	"github.com/42wim/matrixmirror/mirror"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

// ErrNotPermitted is returned by RoomActions when the mirrored power levels
// already show the request would be refused.
var ErrNotPermitted = errors.New("not permitted")

// Join joins a room by ID or alias and returns its ID.
func (c *Client) Join(roomIDOrAlias string) (id.RoomID, error) {
	resp, err := c.mc.JoinRoom(roomIDOrAlias, "", nil)
	if err != nil {
		return "", classify(err)
	}

	return resp.RoomID, nil
}

func (c *Client) Leave(roomID id.RoomID) error {
	_, err := c.mc.LeaveRoom(roomID)
	return classify(err)
}

func (c *Client) Invite(roomID id.RoomID, userID id.UserID) error {
	_, err := c.mc.InviteUser(roomID, &mautrix.ReqInviteUser{UserID: userID})
	return classify(err)
}

func (c *Client) Kick(roomID id.RoomID, userID id.UserID, reason string) error {
	_, err := c.mc.KickUser(roomID, &mautrix.ReqKickUser{UserID: userID, Reason: reason})
	return classify(err)
}

func (c *Client) Ban(roomID id.RoomID, userID id.UserID, reason string) error {
	_, err := c.mc.BanUser(roomID, &mautrix.ReqBanUser{UserID: userID, Reason: reason})
	return classify(err)
}

func (c *Client) Unban(roomID id.RoomID, userID id.UserID) error {
	_, err := c.mc.UnbanUser(roomID, &mautrix.ReqUnbanUser{UserID: userID})
	return classify(err)
}

// RoomActions performs moderation requests after checking them against the
// mirror. Rooms the mirror has no power levels for are left to the server.
// The mirror is read without locking: call it from a listener or while the
// syncer is stopped.
type RoomActions struct {
	client *Client
	mirror *mirror.Client
}

func NewRoomActions(client *Client, m *mirror.Client) *RoomActions {
	return &RoomActions{client: client, mirror: m}
}

func (a *RoomActions) Invite(roomID id.RoomID, userID id.UserID) error {
	if err := a.check(roomID, mirror.ActionInvite); err != nil {
		return err
	}

	return a.client.Invite(roomID, userID)
}

func (a *RoomActions) Kick(roomID id.RoomID, userID id.UserID, reason string) error {
	if err := a.check(roomID, mirror.ActionKick); err != nil {
		return err
	}

	return a.client.Kick(roomID, userID, reason)
}

func (a *RoomActions) Ban(roomID id.RoomID, userID id.UserID, reason string) error {
	if err := a.check(roomID, mirror.ActionBan); err != nil {
		return err
	}

	return a.client.Ban(roomID, userID, reason)
}

// Unban needs the ban level, there is no separate threshold for it.
func (a *RoomActions) Unban(roomID id.RoomID, userID id.UserID) error {
	if err := a.check(roomID, mirror.ActionBan); err != nil {
		return err
	}

	return a.client.Unban(roomID, userID)
}

func (a *RoomActions) check(roomID id.RoomID, action mirror.Action) error {
	room := a.mirror.Rooms.Get(roomID)
	if room == nil {
		return nil
	}

	if _, ok := room.Permissions().Threshold(action); !ok {
		return nil
	}

	if !room.Permissions().Can(a.mirror.Users.Get(a.client.UserID()), action) {
		logger.Debugf("refusing %s in %s for %s", action, roomID, a.client.UserID())
		return fmt.Errorf("%s in %s: %w", action, room, ErrNotPermitted)
	}

	return nil
}
