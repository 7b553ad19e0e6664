package stitchauth

import (
	"maps"
	"slices"
	"time"
)

// Identity is one provider identity linked to a user.
type Identity struct {
	ID           string `json:"id"`
	ProviderType string `json:"provider_type"`
}

// UserProfile is what the profile route returns. Data holds provider supplied
// fields such as name and email.
type UserProfile struct {
	Type       string         `json:"type"`
	Data       map[string]any `json:"data"`
	Identities []Identity     `json:"identities"`
}

func (p *UserProfile) clone() *UserProfile {
	if p == nil {
		return nil
	}
	return &UserProfile{
		Type:       p.Type,
		Data:       maps.Clone(p.Data),
		Identities: slices.Clone(p.Identities),
	}
}

// AuthInfo is the credential state of one identity on this device. It is a
// value type: every transition returns a new AuthInfo and leaves the receiver
// alone. Empty strings and a nil profile mean "absent".
type AuthInfo struct {
	UserID               string
	DeviceID             string
	AccessToken          string
	RefreshToken         string
	LoggedInProviderType string
	LoggedInProviderName string
	UserProfile          *UserProfile

	// LastAuthActivity is kept at millisecond precision in UTC, which is what
	// survives persistence.
	LastAuthActivity time.Time
}

// IsLoggedIn is true when both tokens are present.
func (a AuthInfo) IsLoggedIn() bool {
	return a.AccessToken != "" && a.RefreshToken != ""
}

// IsEmpty is true for a device that has never talked to the server.
func (a AuthInfo) IsEmpty() bool {
	return a.DeviceID == ""
}

// HasUser is true when the record belongs to a user.
func (a AuthInfo) HasUser() bool {
	return a.UserID != ""
}

// LoggedOut drops the token pair and keeps identity, provider and profile.
func (a AuthInfo) LoggedOut() AuthInfo {
	out := a
	out.AccessToken = ""
	out.RefreshToken = ""
	out.UserProfile = a.UserProfile.clone()
	return out
}

// WithClearedUser keeps only the device id.
func (a AuthInfo) WithClearedUser() AuthInfo {
	return AuthInfo{DeviceID: a.DeviceID}
}

// WithAuthProvider records the provider the user last authenticated with.
func (a AuthInfo) WithAuthProvider(providerType, providerName string) AuthInfo {
	out := a
	out.LoggedInProviderType = providerType
	out.LoggedInProviderName = providerName
	out.UserProfile = a.UserProfile.clone()
	return out
}

// WithLastAuthActivity stamps t, truncated to milliseconds.
func (a AuthInfo) WithLastAuthActivity(t time.Time) AuthInfo {
	out := a
	out.LastAuthActivity = normalizeActivity(t)
	out.UserProfile = a.UserProfile.clone()
	return out
}

// Merge overlays the present fields of other onto a. The profile is replaced
// as a whole, never merged field by field.
func (a AuthInfo) Merge(other AuthInfo) AuthInfo {
	out := a
	if other.UserID != "" {
		out.UserID = other.UserID
	}
	if other.DeviceID != "" {
		out.DeviceID = other.DeviceID
	}
	if other.AccessToken != "" {
		out.AccessToken = other.AccessToken
	}
	if other.RefreshToken != "" {
		out.RefreshToken = other.RefreshToken
	}
	if other.LoggedInProviderType != "" {
		out.LoggedInProviderType = other.LoggedInProviderType
	}
	if other.LoggedInProviderName != "" {
		out.LoggedInProviderName = other.LoggedInProviderName
	}
	if other.UserProfile != nil {
		out.UserProfile = other.UserProfile.clone()
	} else {
		out.UserProfile = a.UserProfile.clone()
	}
	if !other.LastAuthActivity.IsZero() {
		out.LastAuthActivity = other.LastAuthActivity
	}
	return out
}

func normalizeActivity(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return time.UnixMilli(t.UnixMilli()).UTC()
}
