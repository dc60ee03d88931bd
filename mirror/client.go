// Package mirror keeps a local, queryable copy of the rooms and users a Matrix
// account can see, built from the deltas of the /sync long-poll.
//
// A Client wires the pieces together: the Dedup set of processed events, the
// Users and Rooms directories and the Syncer poll loop. Listeners registered
// with On on any of them receive notifications synchronously on the sync
// goroutine.
package mirror

import (
	"time"
)

type Client struct {
	Dedup  *Dedup
	Users  *Users
	Rooms  *Rooms
	Syncer *Syncer
}

type options struct {
	dedupSize  int
	timeout    time.Duration
	errorDelay time.Duration
	store      CursorStore
}

type Option func(*options)

// WithDedupSize bounds the processed event set; n <= 0 keeps every id.
func WithDedupSize(n int) Option {
	return func(o *options) { o.dedupSize = n }
}

func WithSyncTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithErrorDelay sets the pause between a failed sync and the next one.
func WithErrorDelay(d time.Duration) Option {
	return func(o *options) { o.errorDelay = d }
}

func WithCursorStore(store CursorStore) Option {
	return func(o *options) { o.store = store }
}

func New(transport Transport, opts ...Option) *Client {
	o := options{
		dedupSize:  DefaultDedupSize,
		timeout:    DefaultSyncTimeout,
		errorDelay: DefaultErrorDelay,
	}

	for _, opt := range opts {
		opt(&o)
	}

	dedup := NewDedup(o.dedupSize)
	users := NewUsers()
	rooms := NewRooms(users, dedup)

	syncer := NewSyncer(transport, rooms)
	syncer.timeout = o.timeout
	syncer.errorDelay = o.errorDelay
	syncer.store = o.store

	return &Client{
		Dedup:  dedup,
		Users:  users,
		Rooms:  rooms,
		Syncer: syncer,
	}
}

func (c *Client) Start() {
	c.Syncer.Start()
}

func (c *Client) Stop() {
	c.Syncer.Stop()
}
