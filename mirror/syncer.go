package mirror

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultSyncTimeout is the server-side long-poll hold time.
const DefaultSyncTimeout = 30 * time.Second

// DefaultErrorDelay is the pause after a failed sync before polling again.
const DefaultErrorDelay = 5 * time.Second

// SyncRequest is one long-poll request. An empty Since asks for a full
// snapshot.
type SyncRequest struct {
	Since     string
	Timeout   time.Duration
	FullState bool
}

// Transport performs sync requests against the homeserver. Failures are
// reported and the next poll is attempted, whatever the error.
type Transport interface {
	Sync(ctx context.Context, req SyncRequest) (*SyncResponse, error)
}

// CursorStore persists the sync cursor between runs.
type CursorStore interface {
	LoadCursor() (string, error)
	SaveCursor(cursor string) error
}

// retryDelayer is implemented by transport errors that carry a server
// supplied wait time.
type retryDelayer interface {
	RetryDelay() time.Duration
}

// Syncer owns the poll loop. Its goroutine is the only writer of room and
// user state.
type Syncer struct {
	Emitter

	transport  Transport
	rooms      *Rooms
	store      CursorStore
	timeout    time.Duration
	errorDelay time.Duration

	mu        sync.Mutex
	cursor    string
	fullState bool
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewSyncer(transport Transport, rooms *Rooms) *Syncer {
	return &Syncer{
		transport:  transport,
		rooms:      rooms,
		timeout:    DefaultSyncTimeout,
		errorDelay: DefaultErrorDelay,
	}
}

// Start begins polling in a new goroutine. It does nothing when the syncer is
// already polling.
func (s *Syncer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return
	}

	if s.store != nil && s.cursor == "" {
		cursor, err := s.store.LoadCursor()
		if err != nil {
			logger.Errorf("loading sync cursor failed, starting from a full snapshot: %s", err)
		} else if cursor != "" {
			logger.Infof("resuming sync from %s", cursor)
			// the mirror is in memory only, ask for the full state once
			s.cursor = cursor
			s.fullState = true
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	logger.Debug("starting sync loop")

	go s.loop(ctx, s.done)
}

// Stop asks the loop to exit and waits until it has. An in-flight request
// may have to finish first, so this can take up to one poll. It does nothing
// when the syncer is idle. Must not be called from a listener.
func (s *Syncer) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if done == nil {
		return
	}

	cancel()
	<-done

	s.mu.Lock()
	if s.done == done {
		s.cancel = nil
		s.done = nil
	}
	s.mu.Unlock()

	logger.Debug("sync loop stopped")
}

// Polling reports whether the loop is running.
func (s *Syncer) Polling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.done != nil
}

// Cursor returns the last continuation token received.
func (s *Syncer) Cursor() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cursor
}

func (s *Syncer) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		err := s.poll(ctx)
		if err == nil {
			continue
		}

		if ctx.Err() != nil {
			return
		}

		logger.Errorf("sync failed: %s", err)
		s.emit(&SyncErrorEvent{Err: err})

		if !s.pause(ctx, s.delayFor(err)) {
			return
		}
	}
}

func (s *Syncer) poll(ctx context.Context) error {
	s.mu.Lock()
	req := SyncRequest{
		Since:     s.cursor,
		Timeout:   s.timeout,
		FullState: s.fullState,
	}
	s.mu.Unlock()

	start := time.Now()

	resp, err := s.transport.Sync(ctx, req)
	if err != nil {
		if ctx.Err() == nil {
			syncRequests.WithLabelValues("error").Inc()
		}

		return err
	}

	syncRequests.WithLabelValues("ok").Inc()
	syncDuration.Observe(time.Since(start).Seconds())

	s.Process(resp)

	return nil
}

// Process folds one sync response into the mirror and advances the cursor.
func (s *Syncer) Process(resp *SyncResponse) {
	s.mu.Lock()
	s.cursor = resp.NextBatch
	s.fullState = false
	s.mu.Unlock()

	logger.Tracef("processing sync %s", resp.NextBatch)

	s.rooms.Process(&resp.Rooms)

	if s.store != nil {
		if err := s.store.SaveCursor(resp.NextBatch); err != nil {
			logger.Errorf("saving sync cursor failed: %s", err)
		}
	}

	s.emit(&SyncEvent{NextBatch: resp.NextBatch})
}

func (s *Syncer) delayFor(err error) time.Duration {
	delay := s.errorDelay

	var rd retryDelayer
	if errors.As(err, &rd) && rd.RetryDelay() > delay {
		delay = rd.RetryDelay()
	}

	return delay
}

// pause waits for d, returning false when ctx is cancelled first.
func (s *Syncer) pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
