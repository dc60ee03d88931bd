package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/42wim/matrixmirror/mirror"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger = logrus.WithFields(logrus.Fields{"prefix": "main"})
}

func printed(t *testing.T, wrap int, data string) []string {
	t.Helper()

	var resp mirror.SyncResponse
	require.NoError(t, json.Unmarshal([]byte(data), &resp))

	var out bytes.Buffer

	m := mirror.New(nil)
	newPrinter(&out, wrap).attach(m)
	m.Syncer.Process(&resp)

	return strings.Split(strings.TrimSpace(out.String()), "\n")
}

func TestPrinter(t *testing.T) {
	lines := printed(t, 0, `{
		"next_batch": "s1",
		"rooms": {"join": {"!A:example.org": {
			"state": {"events": [
				{"event_id": "$1", "type": "m.room.create", "sender": "@alice:example.org", "state_key": "", "content": {}},
				{"event_id": "$2", "type": "m.room.name", "sender": "@alice:example.org", "state_key": "", "content": {"name": "Lobby"}},
				{"event_id": "$3", "type": "m.room.member", "sender": "@alice:example.org", "state_key": "@alice:example.org",
				 "content": {"membership": "join", "displayname": "Alice"}}
			]},
			"timeline": {"events": [
				{"event_id": "$4", "type": "m.room.message", "sender": "@alice:example.org", "origin_server_ts": 1500000000000,
				 "content": {"msgtype": "m.text", "body": "hello"}},
				{"event_id": "$5", "type": "m.room.message", "sender": "@alice:example.org", "origin_server_ts": 1500000000000,
				 "content": {"msgtype": "m.emote", "body": "waves"}},
				{"event_id": "$6", "type": "m.room.message", "sender": "@alice:example.org", "origin_server_ts": 1500000000000,
				 "content": {"msgtype": "m.text", "body": "", "format": "org.matrix.custom.html", "formatted_body": "<b>loud</b>"}}
			]}
		}}}
	}`)

	require.Len(t, lines, 7)
	assert.Equal(t, "!A:example.org: created by @alice:example.org", lines[0])
	assert.Equal(t, `!A:example.org: name set to "Lobby"`, lines[1])
	assert.Equal(t, `@alice:example.org is now known as "Alice"`, lines[2])
	assert.Equal(t, "Lobby: Alice join", lines[3])
	assert.True(t, strings.HasSuffix(lines[4], "] Lobby: <Alice> hello"), lines[4])
	assert.True(t, strings.HasSuffix(lines[5], "] Lobby: * Alice waves"), lines[5])
	assert.True(t, strings.HasSuffix(lines[6], "] Lobby: <Alice> loud"), lines[6])
}

func TestPrinterWraps(t *testing.T) {
	lines := printed(t, 20, `{
		"next_batch": "s1",
		"rooms": {"join": {"!A:example.org": {"state": {"events": [
			{"event_id": "$1", "type": "m.room.topic", "sender": "@alice:example.org", "state_key": "",
			 "content": {"topic": "a rather long topic that needs wrapping"}}
		]}}}}
	}`)

	assert.Greater(t, len(lines), 1)
}

func TestPrinterIgnoresQuietNotifications(t *testing.T) {
	var out bytes.Buffer

	p := newPrinter(&out, 0)
	p.handle(&mirror.SyncEvent{NextBatch: "s1"})
	p.handle(&mirror.SyncErrorEvent{Err: errors.New("down")})
	p.handle(&mirror.HistoryVisibilityEvent{Visibility: "shared"})

	assert.Empty(t, out.String())
}
