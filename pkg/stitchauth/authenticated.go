package stitchauth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/stitch/pkg/jwtx"
)

// DoAuthenticatedRequest sends req as the active user. An InvalidSession
// answer triggers at most one token refresh and one retry; if that is not
// possible or fails too, the user's tokens are cleared and the error is
// returned.
func (a *Auth) DoAuthenticatedRequest(ctx context.Context, req Request) (*Response, error) {
	defer a.flushEvents()

	a.mu.RLock()
	active := a.active
	a.mu.RUnlock()

	if !active.IsLoggedIn() {
		return nil, ErrMustAuthenticateFirst
	}
	return a.doAuthenticatedRequestFor(ctx, active.UserID, req)
}

// DoAuthenticatedRequestWithDecoder is DoAuthenticatedRequest followed by
// decode. A nil decode unmarshals JSON into T.
func DoAuthenticatedRequestWithDecoder[T any](ctx context.Context, a *Auth, req Request, decode func([]byte) (T, error)) (T, error) {
	var zero T

	resp, err := a.DoAuthenticatedRequest(ctx, req)
	if err != nil {
		return zero, err
	}

	if decode == nil {
		return decodeJSON[T](resp.Body)
	}

	v, err := decode(resp.Body)
	if err != nil {
		return zero, &RequestError{Code: RequestErrorDecoding, Err: err}
	}
	return v, nil
}

// doAuthenticatedRequestFor binds the request to userID, so a user switch
// while it is in flight never sends one user's request with another user's
// tokens.
func (a *Auth) doAuthenticatedRequestFor(ctx context.Context, userID string, req Request) (*Response, error) {
	startedAt := a.cfg.Now()

	info, ok := a.authInfoFor(userID)
	if !ok || !info.IsLoggedIn() {
		return nil, ErrMustAuthenticateFirst
	}

	token := info.AccessToken
	if req.UseRefreshToken {
		token = info.RefreshToken
	}

	resp, err := a.doRequest(ctx, req, token)
	if err == nil {
		return resp, nil
	}
	if !IsServiceError(err, ErrorCodeInvalidSession) {
		return nil, err
	}

	if req.UseRefreshToken || !req.ShouldRefreshOnFailure() {
		a.log.Info("session is no longer valid, clearing tokens", "user_id", userID)
		a.clearUserAuthTokens(ctx, info)
		return nil, err
	}

	if err := a.tryRefreshAccessToken(ctx, userID, info.AccessToken, startedAt); err != nil {
		return nil, err
	}

	a.cfg.Metrics.RecordRetry()
	retry := req
	retry.SkipRefreshOnFailure = true
	return a.doAuthenticatedRequestFor(ctx, userID, retry)
}

// tryRefreshAccessToken refreshes unless the access token has changed since
// the request used it and the new one was issued no earlier than the second
// the request started in. Then someone else already refreshed it.
func (a *Auth) tryRefreshAccessToken(ctx context.Context, userID, usedToken string, startedAt time.Time) error {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	info, ok := a.authInfoFor(userID)
	if !ok || !info.IsLoggedIn() {
		return ErrLoggedOutDuringRequest
	}

	if info.AccessToken != usedToken {
		// iat has second precision
		issuedAt, _, err := jwtx.Times(info.AccessToken)
		if err == nil && !issuedAt.Before(startedAt.Truncate(time.Second)) {
			return nil
		}
	}

	return a.refreshAccessTokenFor(ctx, userID)
}

// RefreshAccessToken exchanges the active user's refresh token for a new
// access token.
func (a *Auth) RefreshAccessToken(ctx context.Context) error {
	defer a.flushEvents()
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	a.mu.RLock()
	active := a.active
	a.mu.RUnlock()

	if !active.IsLoggedIn() {
		return ErrMustAuthenticateFirst
	}
	return a.refreshAccessTokenFor(ctx, active.UserID)
}

type sessionResponse struct {
	AccessToken string `json:"access_token"`
}

// refreshAccessTokenFor performs the refresh call. Caller holds refreshMu.
func (a *Auth) refreshAccessTokenFor(ctx context.Context, userID string) error {
	resp, err := a.doAuthenticatedRequestFor(ctx, userID, Request{
		Method:          http.MethodPost,
		Path:            SessionPath,
		UseRefreshToken: true,
	})
	if err != nil {
		a.cfg.Metrics.RecordRefresh(false)
		return err
	}

	body, err := decodeJSON[sessionResponse](resp.Body)
	if err == nil && body.AccessToken == "" {
		err = &RequestError{Code: RequestErrorDecoding, Err: errors.New("session response has no access_token")}
	}
	if err != nil {
		a.cfg.Metrics.RecordRefresh(false)
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	current, ok := a.authInfoForLocked(userID)
	if !ok || !current.IsLoggedIn() {
		a.cfg.Metrics.RecordRefresh(false)
		return ErrLoggedOutDuringRequest
	}
	updated := current.Merge(AuthInfo{AccessToken: body.AccessToken})

	// a user that is still logging in is persisted when the login commits
	if indexOfUser(a.users, userID) >= 0 {
		users := withUser(a.users, updated)
		active := a.active
		if active.UserID == userID {
			active = updated
		}
		if err := a.persistLocked(ctx, users, active); err != nil {
			a.restoreLocked(ctx)
			a.cfg.Metrics.RecordRefresh(false)
			return wrapPersistErr(err)
		}
		a.users = users
	}
	if a.active.UserID == userID {
		a.active = updated
	}

	a.cfg.Metrics.RecordRefresh(true)
	return nil
}

// clearUserAuthTokens logs out the user whose tokens were rejected. Anonymous
// users are removed outright since they cannot log back in. Nothing happens
// if the user has since obtained a different session.
func (a *Auth) clearUserAuthTokens(ctx context.Context, used AuthInfo) {
	events, err := a.clearUser(ctx, used, false)
	if err != nil {
		a.log.Warn("failed to persist cleared session", "user_id", used.UserID, "error", err)
	}
	a.queueEvents(events)
}

// clearUser drops the tokens of used, or the whole cache entry when remove
// is set or the user is anonymous. Memory is cleared even if the write fails:
// the tokens are dead either way and the next request clears them again.
func (a *Auth) clearUser(ctx context.Context, used AuthInfo, remove bool) ([]Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	userID := used.UserID
	i := indexOfUser(a.users, userID)
	if i < 0 {
		// not cached yet: a login in progress
		if a.active.UserID == userID && a.active.RefreshToken == used.RefreshToken {
			a.active = a.active.LoggedOut()
		}
		return nil, nil
	}

	cached := a.users[i]
	if !remove && cached.RefreshToken != used.RefreshToken {
		return nil, nil
	}

	var events []Event
	wasLoggedIn := cached.IsLoggedIn()
	if wasLoggedIn {
		events = append(events, Event{Type: EventUserLoggedOut, User: newUser(cached.LoggedOut())})
	}

	users := a.users
	if remove || cached.LoggedInProviderType == ProviderTypeAnonymous {
		users = withoutUser(a.users, userID)
		events = append(events, Event{Type: EventUserRemoved, User: newUser(cached.LoggedOut())})
	} else {
		users = withUser(a.users, cached.LoggedOut())
	}

	prevActive := a.active
	active := a.active
	if active.UserID == userID {
		active = active.WithClearedUser()
		events = append(events, activeChanged(prevActive, active))
	}

	a.users = users
	a.active = active
	return events, a.persistLocked(ctx, users, active)
}
