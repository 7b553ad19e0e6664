package stitchauth

import (
	"maps"

	"golang.org/x/oauth2"
)

// Provider types understood by Stitch.
const (
	ProviderTypeAnonymous    = "anon-user"
	ProviderTypeUserPassword = "local-userpass"
	ProviderTypeAPIKey       = "api-key"
	ProviderTypeCustom       = "custom-token"
	ProviderTypeFunction     = "custom-function"
	ProviderTypeGoogle       = "oauth2-google"
	ProviderTypeFacebook     = "oauth2-facebook"
)

// Credential is the material presented to one auth provider. The set of
// variants is closed; build them with the constructors below.
type Credential struct {
	providerType          string
	providerName          string
	material              map[string]any
	reusesExistingSession bool
}

// ProviderType is one of the ProviderType constants.
func (c Credential) ProviderType() string { return c.providerType }

// ProviderName is the name the provider is registered under, used in the
// login route.
func (c Credential) ProviderName() string { return c.providerName }

// ReusesExistingSession means a cached, logged-in user of the same provider
// type is switched to instead of logging in again.
func (c Credential) ReusesExistingSession() bool { return c.reusesExistingSession }

// Material returns a copy of the provider specific login payload. It is
// never nil, so callers can add fields to it.
func (c Credential) Material() map[string]any {
	out := make(map[string]any, len(c.material))
	maps.Copy(out, c.material)
	return out
}

// WithProviderName targets a provider registered under a non default name.
func (c Credential) WithProviderName(name string) Credential {
	out := c
	out.providerName = name
	out.material = maps.Clone(c.material)
	return out
}

// AnonymousCredential logs in as a new anonymous user, or switches to a
// cached anonymous user that is still logged in.
func AnonymousCredential() Credential {
	return Credential{
		providerType:          ProviderTypeAnonymous,
		providerName:          ProviderTypeAnonymous,
		material:              map[string]any{},
		reusesExistingSession: true,
	}
}

// UserPasswordCredential logs in with an email and password registered with
// the local-userpass provider.
func UserPasswordCredential(username, password string) Credential {
	return Credential{
		providerType: ProviderTypeUserPassword,
		providerName: ProviderTypeUserPassword,
		material:     map[string]any{"username": username, "password": password},
	}
}

// UserAPIKeyCredential logs in with a key a user created for themselves.
func UserAPIKeyCredential(key string) Credential {
	return Credential{
		providerType: ProviderTypeAPIKey,
		providerName: ProviderTypeAPIKey,
		material:     map[string]any{"key": key},
	}
}

// ServerAPIKeyCredential logs in with an app level key.
func ServerAPIKeyCredential(key string) Credential {
	return Credential{
		providerType: ProviderTypeAPIKey,
		providerName: ProviderTypeAPIKey,
		material:     map[string]any{"key": key},
	}
}

// CustomCredential presents a JWT minted by the app's own auth system.
func CustomCredential(token string) Credential {
	return Credential{
		providerType: ProviderTypeCustom,
		providerName: ProviderTypeCustom,
		material:     map[string]any{"token": token},
	}
}

// FunctionCredential passes payload to the app's authentication function.
func FunctionCredential(payload map[string]any) Credential {
	return Credential{
		providerType: ProviderTypeFunction,
		providerName: ProviderTypeFunction,
		material:     maps.Clone(payload),
	}
}

// GoogleCredential presents a server auth code from Google sign-in.
func GoogleCredential(authCode string) Credential {
	return Credential{
		providerType: ProviderTypeGoogle,
		providerName: ProviderTypeGoogle,
		material:     map[string]any{"authCode": authCode},
	}
}

// FacebookCredential presents a Facebook user access token.
func FacebookCredential(accessToken string) Credential {
	return Credential{
		providerType: ProviderTypeFacebook,
		providerName: ProviderTypeFacebook,
		material:     map[string]any{"accessToken": accessToken},
	}
}

// OAuth2TokenCredential wraps a token obtained elsewhere, e.g. from an
// oauth2.Config exchange, for an OAuth2 provider. An id_token extra is passed
// along when present.
func OAuth2TokenCredential(providerType, providerName string, tok *oauth2.Token) Credential {
	material := map[string]any{}
	if tok != nil {
		material["accessToken"] = tok.AccessToken
		if idToken, ok := tok.Extra("id_token").(string); ok && idToken != "" {
			material["id_token"] = idToken
		}
	}
	return Credential{
		providerType: providerType,
		providerName: providerName,
		material:     material,
	}
}
