// Package stitchauth is the authentication core of the Stitch client. It
// tracks every user that has logged in on this device, which one is active,
// keeps their tokens fresh and attaches them to requests, retrying once after
// a refresh when the server reports an invalid session.
package stitchauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/aussiebroadwan/stitch/pkg/storage"
)

// Auth owns the active user and the user cache.
//
// Locking: opMu serialises the public state changing operations (login,
// link, logout, remove, switch) so their network steps cannot interleave.
// refreshMu serialises token refreshes. mu guards active and users together
// with every storage write, and is never held across a network call.
// Events are queued while locks are held and delivered by the public method
// after it has released them.
type Auth struct {
	cfg     Config
	storage storage.Storage
	log     *slog.Logger

	opMu      sync.Mutex
	refreshMu sync.Mutex

	mu     sync.RWMutex
	active AuthInfo
	users  []AuthInfo

	evMu    sync.Mutex
	pending []Event

	refresher *AccessTokenRefresher
}

// New loads persisted state and starts the background refresher unless it
// is disabled.
func New(ctx context.Context, cfg Config) (*Auth, error) {
	if cfg.AppID == "" {
		return nil, errors.New("stitchauth: app id is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("stitchauth: base url is required")
	}
	cfg = cfg.withDefaults()

	a := &Auth{
		cfg:     cfg,
		storage: storage.Prefixed(cfg.Storage, storageKeyPrefix(cfg.AppID)),
		log:     cfg.Logger.With("component", "stitchauth", "app_id", cfg.AppID),
	}

	users, err := readAllUsers(ctx, a.storage)
	if err != nil {
		return nil, err
	}
	active, err := readActiveUser(ctx, a.storage)
	if err != nil {
		return nil, err
	}

	// The all-users list is authoritative: a crash between the two writes
	// can leave an active record for a user the list no longer has.
	if active.HasUser() {
		if i := indexOfUser(users, active.UserID); i >= 0 {
			active = users[i]
		} else {
			a.log.Warn("discarding active user missing from user cache", "user_id", active.UserID)
			active = active.WithClearedUser()
		}
	}

	a.users = users
	a.active = active

	a.refresher = newAccessTokenRefresher(a, a.log, cfg.RefreshWindow, cfg.RefreshInterval, cfg.Now)
	if !cfg.DisableRefresher {
		a.refresher.Start()
	}
	return a, nil
}

// Close stops the background refresher and waits for it to exit. Requests
// already in flight are not cancelled.
func (a *Auth) Close() {
	a.refresher.Stop()
}

// Refresher exposes the background refresher, e.g. to ask ShouldRefresh.
func (a *Auth) Refresher() *AccessTokenRefresher {
	return a.refresher
}

// AppID is the app this instance authenticates against.
func (a *Auth) AppID() string {
	return a.cfg.AppID
}

// IsLoggedIn reports whether the active user holds a token pair.
func (a *Auth) IsLoggedIn() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active.IsLoggedIn()
}

// User returns the active user, or nil when there is none.
func (a *Auth) User() *User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.active.HasUser() {
		return nil
	}
	return newUser(a.active)
}

// ListUsers returns every cached user, logged in or not.
func (a *Auth) ListUsers() []User {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]User, 0, len(a.users))
	for _, u := range a.users {
		out = append(out, *newUser(u))
	}
	return out
}

// DeviceID is the server assigned id of this device, empty before the first
// login.
func (a *Auth) DeviceID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active.DeviceID
}

func (a *Auth) activeAccessToken() (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active.AccessToken, a.active.IsLoggedIn()
}

// authInfoForLocked finds the current state of userID. The active record is
// checked first because a login in progress is active before it is cached.
// Caller holds mu.
func (a *Auth) authInfoForLocked(userID string) (AuthInfo, bool) {
	if a.active.HasUser() && a.active.UserID == userID {
		return a.active, true
	}
	if i := indexOfUser(a.users, userID); i >= 0 {
		return a.users[i], true
	}
	return AuthInfo{}, false
}

func (a *Auth) authInfoFor(userID string) (AuthInfo, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.authInfoForLocked(userID)
}

// queueEvents records committed events until flushEvents delivers them.
func (a *Auth) queueEvents(events []Event) {
	if a.cfg.OnAuthEvent == nil || len(events) == 0 {
		return
	}
	a.evMu.Lock()
	a.pending = append(a.pending, events...)
	a.evMu.Unlock()
}

// flushEvents delivers queued events. Public methods defer it ahead of
// taking opMu or refreshMu, so it runs once those are released.
func (a *Auth) flushEvents() {
	if a.cfg.OnAuthEvent == nil {
		return
	}
	a.evMu.Lock()
	events := a.pending
	a.pending = nil
	a.evMu.Unlock()

	for _, e := range events {
		a.cfg.OnAuthEvent(e)
	}
}

func activeChanged(prev, next AuthInfo) Event {
	e := Event{Type: EventActiveUserChanged}
	if next.HasUser() {
		e.User = newUser(next)
	}
	if prev.HasUser() {
		e.PreviousUser = newUser(prev)
	}
	return e
}

func indexOfUser(users []AuthInfo, userID string) int {
	return slices.IndexFunc(users, func(u AuthInfo) bool { return u.UserID == userID })
}

// withUser returns a copy of users with u inserted or replaced.
func withUser(users []AuthInfo, u AuthInfo) []AuthInfo {
	out := slices.Clone(users)
	if i := indexOfUser(out, u.UserID); i >= 0 {
		out[i] = u
		return out
	}
	return append(out, u)
}

// withoutUser returns a copy of users with userID dropped.
func withoutUser(users []AuthInfo, userID string) []AuthInfo {
	return slices.DeleteFunc(slices.Clone(users), func(u AuthInfo) bool { return u.UserID == userID })
}

// persistLocked writes the user list and then the active record. Caller
// holds mu.
func (a *Auth) persistLocked(ctx context.Context, users []AuthInfo, active AuthInfo) error {
	if err := writeAllUsers(ctx, a.storage, users); err != nil {
		return err
	}
	return writeActiveUser(ctx, a.storage, active)
}

// restoreLocked rewrites the in-memory state after a partial write so that
// storage does not run ahead of memory. Caller holds mu.
func (a *Auth) restoreLocked(ctx context.Context) {
	if err := a.persistLocked(ctx, a.users, a.active); err != nil {
		a.log.Error("failed to restore persisted auth info", "error", err)
	}
}

func wrapPersistErr(err error) error {
	if errors.Is(err, ErrCouldNotPersistAuthInfo) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrCouldNotPersistAuthInfo, err)
}
