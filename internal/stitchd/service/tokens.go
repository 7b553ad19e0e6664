package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/stitch/internal/stitchd/domain"
	"github.com/aussiebroadwan/stitch/internal/stitchd/store"
	"github.com/aussiebroadwan/stitch/pkg/cryptox"
	"github.com/aussiebroadwan/stitch/pkg/idx"
	"github.com/aussiebroadwan/stitch/pkg/jwtx"
	"github.com/aussiebroadwan/stitch/pkg/slogx"
)

const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

// TokenService mints EdDSA access tokens and manages the opaque refresh
// tokens behind sessions.
type TokenService struct {
	Store      store.Store
	Signer     jwtx.Signer
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return DefaultAccessTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return DefaultRefreshTTL
}

// SignAccess mints an access token bound to a session.
func (s *TokenService) SignAccess(userID, deviceID, sessionID string) (string, error) {
	claims := jwtx.NewAccessClaims(userID, deviceID, sessionID, s.Issuer, s.accessTTL(), s.now())
	claims.ID = idx.NewString()
	return s.Signer.Sign(claims)
}

// OpenSession creates a session inside tx and returns it with its refresh
// token. Only the fingerprint of the token is stored.
func (s *TokenService) OpenSession(ctx context.Context, tx store.Tx, userID, deviceID string) (domain.Session, string, error) {
	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.Session{}, "", err
	}

	now := s.now()
	sess := domain.Session{
		ID:        idx.NewString(),
		UserID:    userID,
		DeviceID:  deviceID,
		TokenHash: cryptox.FingerprintToken(refresh),
		ExpiresAt: now.Add(s.refreshTTL()),
		CreatedAt: now,
	}
	if err := tx.Sessions().CreateSession(ctx, sess); err != nil {
		return domain.Session{}, "", fmt.Errorf("create session: %w", err)
	}
	return sess, refresh, nil
}

// SessionFor resolves a refresh token to its live session.
func (s *TokenService) SessionFor(ctx context.Context, refreshToken string) (domain.Session, error) {
	if refreshToken == "" {
		return domain.Session{}, ErrInvalidSession
	}

	sess, err := s.Store.Sessions().GetSessionByHash(ctx, cryptox.FingerprintToken(refreshToken))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Session{}, ErrInvalidSession
	}
	if err != nil {
		return domain.Session{}, err
	}
	if !s.now().Before(sess.ExpiresAt) {
		return domain.Session{}, ErrInvalidSession
	}
	return sess, nil
}

// Refresh issues a new access token for the session behind refreshToken.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	sess, err := s.SessionFor(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	access, err := s.SignAccess(sess.UserID, sess.DeviceID, sess.ID)
	if err != nil {
		return "", err
	}
	slogx.FromContext(ctx).Debug("access token refreshed", "user_id", sess.UserID, "sid", sess.ID)
	return access, nil
}

// EndSession deletes the session behind refreshToken. Access tokens already
// minted for it stay valid until they expire.
func (s *TokenService) EndSession(ctx context.Context, refreshToken string) error {
	sess, err := s.SessionFor(ctx, refreshToken)
	if err != nil {
		return err
	}
	if err := s.Store.Sessions().DeleteSession(ctx, sess.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}
