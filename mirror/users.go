package mirror

import (
	"fmt"
	"strings"

	"maunium.net/go/mautrix/id"
)

// Users is the directory of every user the mirror has seen.
type Users struct {
	Emitter

	users map[id.UserID]*User
	order []id.UserID
}

func NewUsers() *Users {
	return &Users{
		users: make(map[id.UserID]*User),
	}
}

// Resolve returns the user for userID, creating and announcing it on first
// reference. It panics when userID is not a valid user ID.
func (us *Users) Resolve(userID id.UserID) *User {
	if u, ok := us.users[userID]; ok {
		return u
	}

	if !validUserID(userID) {
		panic(fmt.Errorf("%w: user %q", ErrInvalidID, userID))
	}

	u := newUser(userID)
	us.users[userID] = u
	us.order = append(us.order, userID)

	logger.Debugf("discovered user %s", userID)
	us.emit(&UserDiscoveredEvent{User: u})

	return u
}

// Get returns the user for userID without creating it.
func (us *Users) Get(userID id.UserID) *User {
	return us.users[userID]
}

// Lookup finds a user by ID ("@..."), otherwise by display name. When several
// users share a display name the first one seen wins.
func (us *Users) Lookup(key string) *User {
	if strings.HasPrefix(key, "@") {
		return us.users[id.UserID(key)]
	}

	for _, userID := range us.order {
		if u := us.users[userID]; u.displayName == key {
			return u
		}
	}

	return nil
}

// All returns the users in discovery order.
func (us *Users) All() []*User {
	all := make([]*User, 0, len(us.order))
	for _, userID := range us.order {
		all = append(all, us.users[userID])
	}

	return all
}

func (us *Users) Len() int {
	return len(us.users)
}

func validUserID(userID id.UserID) bool {
	_, _, err := userID.Parse()
	return err == nil
}
