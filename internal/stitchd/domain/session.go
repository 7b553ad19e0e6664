package domain

import "time"

// Session is a refresh token grant opened by a login on one device.
type Session struct {
	ID        string
	UserID    string
	DeviceID  string
	TokenHash string // deterministic fingerprint (base64url SHA-256)
	ExpiresAt time.Time
	CreatedAt time.Time
}

// LoginResult is what the login route returns. RefreshToken is empty for
// links, which keep the caller's session.
type LoginResult struct {
	UserID       string
	DeviceID     string
	AccessToken  string
	RefreshToken string
}
