package stitchauth_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/stitch/pkg/stitchauth"
	"github.com/stretchr/testify/require"
)

func fullAuthInfo() stitchauth.AuthInfo {
	return stitchauth.AuthInfo{
		UserID:               "user-1",
		DeviceID:             "device-1",
		AccessToken:          "access-1",
		RefreshToken:         "refresh-1",
		LoggedInProviderType: stitchauth.ProviderTypeUserPassword,
		LoggedInProviderName: "local-userpass",
		UserProfile: &stitchauth.UserProfile{
			Type: "normal",
			Data: map[string]any{"email": "alice@example.com"},
			Identities: []stitchauth.Identity{
				{ID: "identity-1", ProviderType: stitchauth.ProviderTypeUserPassword},
			},
		},
		LastAuthActivity: time.UnixMilli(1_700_000_000_123).UTC(),
	}
}

func TestAuthInfoLoggedIn(t *testing.T) {
	t.Parallel()

	a := fullAuthInfo()
	require.True(t, a.IsLoggedIn())
	require.False(t, a.IsEmpty())

	a.RefreshToken = ""
	require.False(t, a.IsLoggedIn(), "both tokens are required")

	require.True(t, stitchauth.AuthInfo{}.IsEmpty())
}

func TestAuthInfoLoggedOut(t *testing.T) {
	t.Parallel()

	a := fullAuthInfo()
	out := a.LoggedOut()

	require.False(t, out.IsLoggedIn())
	require.Empty(t, out.AccessToken)
	require.Empty(t, out.RefreshToken)
	require.Equal(t, a.UserID, out.UserID)
	require.Equal(t, a.DeviceID, out.DeviceID)
	require.Equal(t, a.LoggedInProviderType, out.LoggedInProviderType)
	require.Equal(t, a.UserProfile, out.UserProfile)

	// the receiver is untouched
	require.True(t, a.IsLoggedIn())
}

func TestAuthInfoWithClearedUser(t *testing.T) {
	t.Parallel()

	a := fullAuthInfo()
	cleared := a.WithClearedUser()

	require.Equal(t, stitchauth.AuthInfo{DeviceID: a.DeviceID}, cleared)
	require.False(t, cleared.HasUser())
	require.False(t, cleared.IsEmpty())
}

func TestAuthInfoMerge(t *testing.T) {
	t.Parallel()

	base := fullAuthInfo()
	otherProfile := &stitchauth.UserProfile{Type: "server"}
	later := time.UnixMilli(1_800_000_000_000).UTC()

	cases := map[string]struct {
		other stitchauth.AuthInfo
		check func(t *testing.T, got stitchauth.AuthInfo)
	}{
		"empty keeps everything": {
			other: stitchauth.AuthInfo{},
			check: func(t *testing.T, got stitchauth.AuthInfo) {
				require.Equal(t, base, got)
			},
		},
		"new access token only": {
			other: stitchauth.AuthInfo{AccessToken: "access-2"},
			check: func(t *testing.T, got stitchauth.AuthInfo) {
				require.Equal(t, "access-2", got.AccessToken)
				require.Equal(t, base.RefreshToken, got.RefreshToken)
				require.Equal(t, base.UserProfile, got.UserProfile)
			},
		},
		"profile replaced as a whole": {
			other: stitchauth.AuthInfo{UserProfile: otherProfile},
			check: func(t *testing.T, got stitchauth.AuthInfo) {
				require.Equal(t, otherProfile, got.UserProfile)
				require.Nil(t, got.UserProfile.Identities)
			},
		},
		"every field": {
			other: stitchauth.AuthInfo{
				UserID:               "user-2",
				DeviceID:             "device-2",
				AccessToken:          "access-2",
				RefreshToken:         "refresh-2",
				LoggedInProviderType: stitchauth.ProviderTypeAnonymous,
				LoggedInProviderName: "anon-user",
				UserProfile:          otherProfile,
				LastAuthActivity:     later,
			},
			check: func(t *testing.T, got stitchauth.AuthInfo) {
				require.Equal(t, "user-2", got.UserID)
				require.Equal(t, "device-2", got.DeviceID)
				require.Equal(t, "refresh-2", got.RefreshToken)
				require.Equal(t, stitchauth.ProviderTypeAnonymous, got.LoggedInProviderType)
				require.Equal(t, "anon-user", got.LoggedInProviderName)
				require.Equal(t, later, got.LastAuthActivity)
			},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			tc.check(t, base.Merge(tc.other))
		})
	}
}

func TestAuthInfoTransitionsCopyProfile(t *testing.T) {
	t.Parallel()

	a := fullAuthInfo()
	b := a.WithAuthProvider(stitchauth.ProviderTypeCustom, "custom-token")

	b.UserProfile.Data["email"] = "changed@example.com"
	require.Equal(t, "alice@example.com", a.UserProfile.Data["email"])
	require.Equal(t, stitchauth.ProviderTypeCustom, b.LoggedInProviderType)
	require.Equal(t, stitchauth.ProviderTypeUserPassword, a.LoggedInProviderType)
}

func TestWithLastAuthActivityTruncates(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 2, 3, 4, 5, 123_456_789, time.FixedZone("AEST", 10*3600))
	got := stitchauth.AuthInfo{}.WithLastAuthActivity(ts).LastAuthActivity

	require.Equal(t, time.UTC, got.Location())
	require.Equal(t, 123_000_000, got.Nanosecond())
	require.True(t, got.Equal(ts.Truncate(time.Millisecond)))
}
