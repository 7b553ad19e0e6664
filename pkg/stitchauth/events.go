package stitchauth

// EventType names a change to the user cache or the active user.
type EventType string

// A login emits added (first time only), logged in and active user changed,
// in that order.
const (
	EventActiveUserChanged EventType = "active_user_changed"
	EventUserAdded         EventType = "user_added"
	EventUserLinked        EventType = "user_linked"
	EventUserLoggedIn      EventType = "user_logged_in"
	EventUserLoggedOut     EventType = "user_logged_out"
	EventUserRemoved       EventType = "user_removed"
)

// Event is passed to Config.OnAuthEvent after a state change has been
// committed. Handlers run once the operation that caused them has released
// its locks, so they may call back into Auth, e.g. log in again when the
// active user goes away.
type Event struct {
	Type EventType

	// User is the user the event is about. For EventActiveUserChanged it is
	// the new active user, nil when there is none.
	User *User

	// PreviousUser is set for EventActiveUserChanged only.
	PreviousUser *User
}
