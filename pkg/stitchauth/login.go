package stitchauth

import (
	"context"
	"net/http"
)

type loginResponse struct {
	UserID       string `json:"user_id"`
	DeviceID     string `json:"device_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginWithCredential authenticates with cred and makes the resulting user
// active. A credential that reuses sessions switches to a cached, logged-in
// user of the same provider type without any network call.
func (a *Auth) LoginWithCredential(ctx context.Context, cred Credential) (*User, error) {
	defer a.flushEvents()
	a.opMu.Lock()
	defer a.opMu.Unlock()

	if cred.ReusesExistingSession() {
		a.mu.RLock()
		var reuse string
		for _, u := range a.users {
			if u.LoggedInProviderType == cred.ProviderType() && u.IsLoggedIn() {
				reuse = u.UserID
				break
			}
		}
		a.mu.RUnlock()

		if reuse != "" {
			a.log.Debug("reusing cached session", "user_id", reuse, "provider_type", cred.ProviderType())
			return a.switchToUser(ctx, reuse)
		}
	}

	return a.login(ctx, cred, false)
}

// LinkUserWithCredential adds the identity behind cred to user, which must
// still be the active user.
func (a *Auth) LinkUserWithCredential(ctx context.Context, user *User, cred Credential) (*User, error) {
	defer a.flushEvents()
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.mu.RLock()
	active := a.active
	a.mu.RUnlock()

	if user == nil || !active.HasUser() || user.ID != active.UserID {
		return nil, ErrUserNoLongerValid
	}
	if !active.IsLoggedIn() {
		return nil, ErrMustAuthenticateFirst
	}

	return a.login(ctx, cred, true)
}

// login runs the login or link flow. Caller holds opMu.
func (a *Auth) login(ctx context.Context, cred Credential, link bool) (*User, error) {
	resp, err := a.doLoginRequest(ctx, cred, link)
	if err != nil {
		a.cfg.Metrics.RecordLogin(cred.ProviderType(), false)
		return nil, err
	}

	user, err := a.processLoginResponse(ctx, cred, resp, link)
	a.cfg.Metrics.RecordLogin(cred.ProviderType(), err == nil)
	return user, err
}

func (a *Auth) doLoginRequest(ctx context.Context, cred Credential, link bool) (*Response, error) {
	a.mu.RLock()
	active := a.active
	a.mu.RUnlock()

	body := cred.Material()
	body["options"] = map[string]any{"device": a.deviceInfoDocument(active.DeviceID)}

	req := Request{
		Method:   http.MethodPost,
		Path:     loginPath(a.cfg.AppID, cred.ProviderName(), link),
		Document: body,
	}

	if link {
		return a.doAuthenticatedRequestFor(ctx, active.UserID, req)
	}
	return a.doRequest(ctx, req, "")
}

func (a *Auth) deviceInfoDocument(deviceID string) map[string]any {
	info := map[string]any{
		"appId":           a.cfg.AppID,
		"platform":        a.cfg.Device.Platform,
		"platformVersion": a.cfg.Device.PlatformVersion,
		"sdkVersion":      a.cfg.Device.SDKVersion,
	}
	if deviceID != "" {
		info["deviceId"] = deviceID
	}
	if a.cfg.Device.AppVersion != "" {
		info["appVersion"] = a.cfg.Device.AppVersion
	}
	return info
}

// processLoginResponse provisionally activates the new credentials so the
// profile fetch can authenticate, then either commits the full state to
// storage and memory or rolls memory back.
func (a *Auth) processLoginResponse(ctx context.Context, cred Credential, resp *Response, link bool) (*User, error) {
	body, err := decodeJSON[loginResponse](resp.Body)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	prev := a.active
	next := prev.Merge(AuthInfo{
		UserID:               body.UserID,
		DeviceID:             body.DeviceID,
		AccessToken:          body.AccessToken,
		RefreshToken:         body.RefreshToken,
		LoggedInProviderType: cred.ProviderType(),
		LoggedInProviderName: cred.ProviderName(),
	}).WithLastAuthActivity(a.cfg.Now())
	a.active = next
	a.mu.Unlock()

	profile, err := a.fetchProfile(ctx, next.UserID)
	if err != nil {
		a.rollbackLogin(ctx, prev, cred, link)
		return nil, err
	}

	a.mu.Lock()
	// a refresh may have replaced the access token during the fetch
	current, ok := a.authInfoForLocked(next.UserID)
	if !ok || !current.IsLoggedIn() {
		a.active = prev
		a.mu.Unlock()
		return nil, ErrLoggedOutDuringRequest
	}

	final := current.Merge(AuthInfo{UserProfile: profile})
	users := withUser(a.users, final)
	isNew := indexOfUser(a.users, final.UserID) < 0

	if err := a.persistLocked(ctx, users, final); err != nil {
		a.active = prev
		a.restoreLocked(ctx)
		a.mu.Unlock()
		return nil, wrapPersistErr(err)
	}

	a.users = users
	a.active = final

	var events []Event
	if isNew {
		events = append(events, Event{Type: EventUserAdded, User: newUser(final)})
	}
	if link {
		events = append(events, Event{Type: EventUserLinked, User: newUser(final)})
	} else {
		events = append(events, Event{Type: EventUserLoggedIn, User: newUser(final)})
	}
	if prev.UserID != final.UserID {
		events = append(events, activeChanged(prev, final))
	}
	user := newUser(final)
	a.mu.Unlock()

	a.queueEvents(events)
	return user, nil
}

// rollbackLogin restores the previous active user after a failed profile
// fetch. A failed link keeps the new provider association, so a later logout
// treats the user as linked rather than anonymous.
func (a *Auth) rollbackLogin(ctx context.Context, prev AuthInfo, cred Credential, link bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !link {
		a.active = prev
		return
	}

	i := indexOfUser(a.users, prev.UserID)
	if i < 0 {
		// removed while the profile was being fetched
		if a.active.UserID == prev.UserID {
			a.active = prev.WithClearedUser()
		}
		return
	}

	linked := a.users[i].WithAuthProvider(cred.ProviderType(), cred.ProviderName())
	users := withUser(a.users, linked)

	active := a.active
	if active.UserID == prev.UserID {
		// still active; an InvalidSession clear would have reset the pointer
		active = linked
	}

	if err := a.persistLocked(ctx, users, active); err != nil {
		a.log.Warn("failed to persist provider of partially linked user", "user_id", linked.UserID, "error", err)
		a.active = prev
		a.restoreLocked(ctx)
		return
	}
	a.users = users
	a.active = active
}

func (a *Auth) fetchProfile(ctx context.Context, userID string) (*UserProfile, error) {
	resp, err := a.doAuthenticatedRequestFor(ctx, userID, Request{
		Method: http.MethodGet,
		Path:   ProfilePath,
	})
	if err != nil {
		return nil, err
	}

	profile, err := decodeJSON[UserProfile](resp.Body)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
