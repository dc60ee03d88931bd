// Package matrixclient connects the mirror to a homeserver through mautrix:
// it performs the /sync long-poll and the outbound room operations.
package matrixclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/42wim/matrixmirror/mirror"
	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

var logger = logrus.WithFields(logrus.Fields{"prefix": "matrixclient"})

func SetLogger(l *logrus.Entry) {
	logger = l
}

type Config struct {
	Server string
	UserID string
	// Token is used as is, Login and Password are only needed without one.
	Token    string
	Login    string
	Password string
}

type Client struct {
	mc *mautrix.Client
}

// New connects to the homeserver, logging in with a password when no access
// token was configured.
func New(cfg Config) (*Client, error) {
	mc, err := mautrix.NewClient(cfg.Server, id.UserID(cfg.UserID), cfg.Token)
	if err != nil {
		return nil, err
	}

	mc.Client = &http.Client{Transport: &rateLimitTransport{next: http.DefaultTransport}}

	if cfg.Token == "" {
		if cfg.Login == "" || cfg.Password == "" {
			return nil, fmt.Errorf("matrix: need a token or a login and password")
		}

		logger.Debugf("logging in as %s on %s", cfg.Login, cfg.Server)

		_, err = mc.Login(&mautrix.ReqLogin{
			Type: "m.login.password",
			Identifier: mautrix.UserIdentifier{
				Type: "m.id.user",
				User: cfg.Login,
			},
			Password:         cfg.Password,
			StoreCredentials: true,
		})
		if err != nil {
			return nil, fmt.Errorf("matrix login: %w", classify(err))
		}
	}

	logger.Infof("connected to %s as %s", cfg.Server, mc.UserID)

	return &Client{mc: mc}, nil
}

// UserID is the account the client acts as.
func (c *Client) UserID() id.UserID {
	return c.mc.UserID
}

func (c *Client) Mautrix() *mautrix.Client {
	return c.mc
}

// Sync performs one /sync request. mautrix cannot cancel a request in
// flight, so a cancelled ctx returns at once and the request is left to
// finish on its own.
func (c *Client) Sync(ctx context.Context, req mirror.SyncRequest) (*mirror.SyncResponse, error) {
	type result struct {
		resp *mautrix.RespSync
		err  error
	}

	done := make(chan result, 1)

	go func() {
		resp, err := c.mc.SyncRequest(int(req.Timeout/time.Millisecond), req.Since, "", req.FullState, "")
		done <- result{resp, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, classify(r.err)
		}

		if logger.Logger.IsLevelEnabled(logrus.TraceLevel) {
			logger.Tracef("sync response %s", spew.Sdump(r.resp))
		}

		return convertSync(r.resp), nil
	}
}

func convertSync(resp *mautrix.RespSync) *mirror.SyncResponse {
	out := &mirror.SyncResponse{
		NextBatch: resp.NextBatch,
		Rooms: mirror.SyncRooms{
			Join:   make(map[id.RoomID]*mirror.RoomPayload, len(resp.Rooms.Join)),
			Invite: make(map[id.RoomID]*mirror.InvitePayload, len(resp.Rooms.Invite)),
			Leave:  make(map[id.RoomID]*mirror.RoomPayload, len(resp.Rooms.Leave)),
		},
	}

	for roomID, room := range resp.Rooms.Join {
		out.Rooms.Join[roomID] = &mirror.RoomPayload{
			State:    convertEvents(room.State.Events),
			Timeline: convertEvents(room.Timeline.Events),
		}
	}

	for roomID, room := range resp.Rooms.Invite {
		out.Rooms.Invite[roomID] = &mirror.InvitePayload{
			InviteState: convertEvents(room.State.Events),
		}
	}

	for roomID, room := range resp.Rooms.Leave {
		out.Rooms.Leave[roomID] = &mirror.RoomPayload{
			State:    convertEvents(room.State.Events),
			Timeline: convertEvents(room.Timeline.Events),
		}
	}

	return out
}

func convertEvents(events []*event.Event) *mirror.EventList {
	list := &mirror.EventList{Events: make([]*mirror.Event, 0, len(events))}

	for _, ev := range events {
		if ev == nil {
			continue
		}

		list.Events = append(list.Events, &mirror.Event{
			ID:        ev.ID,
			Type:      ev.Type.Type,
			Sender:    ev.Sender,
			StateKey:  ev.StateKey,
			Timestamp: ev.Timestamp,
			Content:   ev.Content.Raw,
		})
	}

	return list
}
