package stitchauth

import "time"

// User is a read-only view of a cached identity. It is a snapshot; fetch a new
// one after any auth operation.
type User struct {
	ID                   string
	DeviceID             string
	LoggedInProviderType string
	LoggedInProviderName string
	IsLoggedIn           bool
	Profile              *UserProfile
	LastAuthActivity     time.Time
}

func newUser(a AuthInfo) *User {
	return &User{
		ID:                   a.UserID,
		DeviceID:             a.DeviceID,
		LoggedInProviderType: a.LoggedInProviderType,
		LoggedInProviderName: a.LoggedInProviderName,
		IsLoggedIn:           a.IsLoggedIn(),
		Profile:              a.UserProfile.clone(),
		LastAuthActivity:     a.LastAuthActivity,
	}
}

// Identities is a shortcut for Profile.Identities.
func (u *User) Identities() []Identity {
	if u == nil || u.Profile == nil {
		return nil
	}
	return u.Profile.Identities
}
