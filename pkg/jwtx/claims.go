package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrMissingTime = errors.New("jwtx: token has no exp/iat claim")
)

// Claims are the claims carried by Stitch access tokens. Only exp and iat
// matter to the SDK; the rest is informational and set by the backend.
type Claims struct {
	jwt.RegisteredClaims

	// DeviceID is the device the session was opened from.
	DeviceID string `json:"device_id,omitempty"`

	// SessionID ties an access token to the refresh session that minted it.
	SessionID string `json:"sid,omitempty"`

	// Type is "access" for access tokens.
	Type string `json:"typ,omitempty"`
}

// NewAccessClaims builds claims for an access token issued at now.
func NewAccessClaims(userID, deviceID, sessionID, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		DeviceID:  deviceID,
		SessionID: sessionID,
		Type:      "access",
	}
}

// Expires returns the exp claim, or the zero time when absent.
func (c Claims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Issued returns the iat claim, or the zero time when absent.
func (c Claims) Issued() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ValidateIssuer checks the iss claim. An empty expectation always passes.
func (c Claims) ValidateIssuer(expected string) error {
	if expected == "" || c.Issuer == expected {
		return nil
	}
	return ErrIssuer
}

// ValidateExpiryWithLeeway rejects tokens whose exp lies more than leeway in
// the past relative to now.
func (c Claims) ValidateExpiryWithLeeway(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	return nil
}
