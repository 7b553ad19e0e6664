package stitchauth

import (
	"context"
	"net/http"
)

// Logout logs the active user out. Logging out when nobody is logged in is a
// no-op.
func (a *Auth) Logout(ctx context.Context) error {
	a.mu.RLock()
	active := a.active
	a.mu.RUnlock()

	if !active.HasUser() {
		return nil
	}
	return a.LogoutUserWithID(ctx, active.UserID)
}

// LogoutUserWithID ends the user's server session on a best effort basis and
// clears their tokens locally whatever the server says. Anonymous users are
// removed, since they cannot log back in. A user that is already logged out
// is left alone and no request is made.
func (a *Auth) LogoutUserWithID(ctx context.Context, userID string) error {
	defer a.flushEvents()
	a.opMu.Lock()
	defer a.opMu.Unlock()

	info, ok := a.cachedUser(userID)
	if !ok {
		return ErrUserNotFound
	}
	if !info.IsLoggedIn() {
		return nil
	}

	a.endServerSession(ctx, info)

	events, err := a.clearUser(ctx, info, false)
	a.queueEvents(events)
	if err != nil {
		return wrapPersistErr(err)
	}
	return nil
}

// RemoveUser removes the active user from this device.
func (a *Auth) RemoveUser(ctx context.Context) error {
	a.mu.RLock()
	active := a.active
	a.mu.RUnlock()

	if !active.HasUser() {
		return nil
	}
	return a.RemoveUserWithID(ctx, active.UserID)
}

// RemoveUserWithID logs the user out like LogoutUserWithID and then deletes
// them from the user cache.
func (a *Auth) RemoveUserWithID(ctx context.Context, userID string) error {
	defer a.flushEvents()
	a.opMu.Lock()
	defer a.opMu.Unlock()

	info, ok := a.cachedUser(userID)
	if !ok {
		return ErrUserNotFound
	}
	if info.IsLoggedIn() {
		a.endServerSession(ctx, info)
	}

	events, err := a.clearUser(ctx, info, true)
	a.queueEvents(events)
	if err != nil {
		return wrapPersistErr(err)
	}
	return nil
}

// SwitchToUserWithID makes a cached, logged-in user the active one.
func (a *Auth) SwitchToUserWithID(ctx context.Context, userID string) (*User, error) {
	defer a.flushEvents()
	a.opMu.Lock()
	defer a.opMu.Unlock()

	return a.switchToUser(ctx, userID)
}

// switchToUser persists the new active record before committing it. Caller
// holds opMu.
func (a *Auth) switchToUser(ctx context.Context, userID string) (*User, error) {
	a.mu.Lock()

	i := indexOfUser(a.users, userID)
	if i < 0 {
		a.mu.Unlock()
		return nil, ErrUserNotFound
	}
	target := a.users[i]
	if !target.IsLoggedIn() {
		a.mu.Unlock()
		return nil, ErrUserNotLoggedIn
	}

	prev := a.active
	if prev.UserID == userID {
		user := newUser(prev)
		a.mu.Unlock()
		return user, nil
	}

	now := a.cfg.Now()
	users := a.users
	if j := indexOfUser(users, prev.UserID); j >= 0 {
		users = withUser(users, users[j].WithLastAuthActivity(now))
	}
	target = target.WithLastAuthActivity(now)
	users = withUser(users, target)

	if err := a.persistLocked(ctx, users, target); err != nil {
		a.restoreLocked(ctx)
		a.mu.Unlock()
		return nil, wrapPersistErr(err)
	}

	a.users = users
	a.active = target
	user := newUser(target)
	event := activeChanged(prev, target)
	a.mu.Unlock()

	a.queueEvents([]Event{event})
	return user, nil
}

func (a *Auth) cachedUser(userID string) (AuthInfo, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	i := indexOfUser(a.users, userID)
	if i < 0 {
		return AuthInfo{}, false
	}
	return a.users[i], true
}

// endServerSession asks the server to drop the session behind info's
// refresh token. Failures are logged and otherwise ignored.
func (a *Auth) endServerSession(ctx context.Context, info AuthInfo) {
	_, err := a.doRequest(ctx, Request{
		Method:          http.MethodDelete,
		Path:            SessionPath,
		UseRefreshToken: true,
	}, info.RefreshToken)
	if err != nil {
		a.log.Debug("best effort logout failed", "user_id", info.UserID, "error", err)
	}
}
