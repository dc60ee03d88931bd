package mirror

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"maunium.net/go/mautrix/id"
)

// ErrInvalidID is the panic value (wrapped) for malformed identifiers passed
// to Resolve.
var ErrInvalidID = errors.New("invalid identifier")

// Rooms is the directory of every room the mirror has seen.
type Rooms struct {
	Emitter

	users *Users
	dedup *Dedup
	rooms map[id.RoomID]*Room
	order []id.RoomID
}

func NewRooms(users *Users, dedup *Dedup) *Rooms {
	return &Rooms{
		users: users,
		dedup: dedup,
		rooms: make(map[id.RoomID]*Room),
	}
}

// Resolve returns the room for roomID, creating and announcing it on first
// reference. It panics when roomID is not a valid room ID.
func (rs *Rooms) Resolve(roomID id.RoomID) *Room {
	if r, ok := rs.rooms[roomID]; ok {
		return r
	}

	if !validRoomID(roomID) {
		panic(fmt.Errorf("%w: room %q", ErrInvalidID, roomID))
	}

	r := newRoom(roomID, rs.users, rs.dedup)
	rs.rooms[roomID] = r
	rs.order = append(rs.order, roomID)

	logger.Debugf("discovered room %s", roomID)
	rs.emit(&RoomDiscoveredEvent{Room: r})

	return r
}

// Get returns the room for roomID without creating it.
func (rs *Rooms) Get(roomID id.RoomID) *Room {
	return rs.rooms[roomID]
}

// Lookup finds a room by ID ("!..."), by canonical alias ("#...") or by name.
// Alias and name matches return the first room seen.
func (rs *Rooms) Lookup(key string) *Room {
	if strings.HasPrefix(key, "!") {
		return rs.rooms[id.RoomID(key)]
	}

	if strings.HasPrefix(key, "#") {
		for _, roomID := range rs.order {
			if r := rs.rooms[roomID]; r.canonicalAlias == id.RoomAlias(key) {
				return r
			}
		}
	}

	for _, roomID := range rs.order {
		if r := rs.rooms[roomID]; r.name == key {
			return r
		}
	}

	return nil
}

// All returns the rooms in discovery order.
func (rs *Rooms) All() []*Room {
	all := make([]*Room, 0, len(rs.order))
	for _, roomID := range rs.order {
		all = append(all, rs.rooms[roomID])
	}

	return all
}

func (rs *Rooms) Len() int {
	return len(rs.rooms)
}

// Process dispatches the room categories of one sync response: join, then
// invite, then leave, each in room ID order.
func (rs *Rooms) Process(rooms *SyncRooms) {
	for _, roomID := range sortedRoomIDs(rooms.Join) {
		if r := rs.resolveSynced(roomID); r != nil {
			r.ProcessJoin(rooms.Join[roomID])
		}
	}

	for _, roomID := range sortedRoomIDs(rooms.Invite) {
		if r := rs.resolveSynced(roomID); r != nil {
			r.ProcessInvite(rooms.Invite[roomID])
		}
	}

	for _, roomID := range sortedRoomIDs(rooms.Leave) {
		if r := rs.resolveSynced(roomID); r != nil {
			r.ProcessLeave(rooms.Leave[roomID])
		}
	}
}

func (rs *Rooms) resolveSynced(roomID id.RoomID) *Room {
	if !validRoomID(roomID) {
		logger.Debugf("skipping sync section for invalid room id %q", roomID)
		return nil
	}

	return rs.Resolve(roomID)
}

func sortedRoomIDs[T any](m map[id.RoomID]T) []id.RoomID {
	ids := make([]id.RoomID, 0, len(m))
	for roomID := range m {
		ids = append(ids, roomID)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

func validRoomID(roomID id.RoomID) bool {
	return len(roomID) > 1 && roomID[0] == '!'
}
