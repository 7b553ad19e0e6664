package stitch

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/stitch/pkg/stitchauth"
)

// UserPasswordClient talks to the local-userpass provider.
type UserPasswordClient struct {
	auth         *stitchauth.Auth
	providerName string
}

// UserPassword returns the client for the default local-userpass provider.
func (c *Client) UserPassword() *UserPasswordClient {
	return &UserPasswordClient{auth: c.auth, providerName: stitchauth.ProviderTypeUserPassword}
}

// Register creates an email/password identity. It does not log in; follow up
// with LoginWithCredential(stitchauth.UserPasswordCredential(email, password)).
func (u *UserPasswordClient) Register(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return errors.New("stitch: email and password are required")
	}

	_, err := u.auth.DoRequest(ctx, stitchauth.Request{
		Method: http.MethodPost,
		Path:   stitchauth.ProviderPath(u.auth.AppID(), u.providerName) + "/register",
		Document: map[string]string{
			"email":    email,
			"password": password,
		},
	})
	return err
}
