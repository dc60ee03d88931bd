package mirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/tidwall/gjson"
	"maunium.net/go/mautrix/id"
)

// ErrInvalidEvent is returned when no event identifier can be extracted.
var ErrInvalidEvent = errors.New("invalid event")

// DefaultDedupSize is the number of event identifiers remembered by a Dedup
// created through New without WithDedupSize.
const DefaultDedupSize = 50000

// Dedup remembers which events have already been folded into state.
//
// With a positive size the set is an LRU and the oldest identifiers are
// evicted once it is full; a size of zero or less keeps every identifier
// forever.
type Dedup struct {
	mu    sync.Mutex
	cache *lru.Cache
	seen  map[id.EventID]struct{}
}

func NewDedup(size int) *Dedup {
	d := &Dedup{}

	if size > 0 {
		// only fails on a non-positive size
		d.cache, _ = lru.New(size)
	} else {
		d.seen = make(map[id.EventID]struct{})
	}

	return d
}

// Mark records ev as processed. ev may be an identifier (string or
// id.EventID), an *Event, a decoded JSON object or raw JSON bytes.
func (d *Dedup) Mark(ev interface{}) error {
	eventID, err := EventID(ev)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cache != nil {
		d.cache.Add(eventID, struct{}{})
		return nil
	}

	d.seen[eventID] = struct{}{}

	return nil
}

// IsProcessed reports whether ev has been marked before.
func (d *Dedup) IsProcessed(ev interface{}) (bool, error) {
	eventID, err := EventID(ev)
	if err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cache != nil {
		return d.cache.Contains(eventID), nil
	}

	_, ok := d.seen[eventID]

	return ok, nil
}

// Len returns the number of identifiers currently remembered.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cache != nil {
		return d.cache.Len()
	}

	return len(d.seen)
}

// EventID extracts the event identifier from ev.
func EventID(ev interface{}) (id.EventID, error) {
	switch e := ev.(type) {
	case id.EventID:
		return nonEmpty(string(e))
	case string:
		return nonEmpty(e)
	case *Event:
		if e == nil {
			return "", fmt.Errorf("%w: nil event", ErrInvalidEvent)
		}

		return nonEmpty(string(e.ID))
	case map[string]interface{}:
		s, ok := e["event_id"].(string)
		if !ok {
			return "", fmt.Errorf("%w: no event_id field", ErrInvalidEvent)
		}

		return nonEmpty(s)
	case json.RawMessage:
		return idFromJSON(e)
	case []byte:
		return idFromJSON(e)
	default:
		return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidEvent, ev)
	}
}

func idFromJSON(data []byte) (id.EventID, error) {
	res := gjson.GetBytes(data, "event_id")
	if res.Type != gjson.String {
		return "", fmt.Errorf("%w: no event_id field", ErrInvalidEvent)
	}

	return nonEmpty(res.Str)
}

func nonEmpty(s string) (id.EventID, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty event id", ErrInvalidEvent)
	}

	return id.EventID(s), nil
}
