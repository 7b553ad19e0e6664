package stitchauth

import "net/url"

const (
	clientAPIPrefix = "/api/client/v2.0"

	// ProfilePath returns the caller's profile.
	ProfilePath = clientAPIPrefix + "/auth/profile"
	// SessionPath mints an access token (POST) or ends the session (DELETE).
	SessionPath = clientAPIPrefix + "/auth/session"
)

// AppPath is the prefix of every app scoped client route.
func AppPath(appID string) string {
	return clientAPIPrefix + "/app/" + url.PathEscape(appID)
}

// ProviderPath is the prefix of the routes of one auth provider.
func ProviderPath(appID, providerName string) string {
	return AppPath(appID) + "/auth/providers/" + url.PathEscape(providerName)
}

func loginPath(appID, providerName string, link bool) string {
	p := ProviderPath(appID, providerName) + "/login"
	if link {
		p += "?link=true"
	}
	return p
}
