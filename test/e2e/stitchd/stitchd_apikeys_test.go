package stitchd_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/stitch/pkg/stitchauth"
)

func TestUserAPIKeyLifecycle(t *testing.T) {
	baseURL := setupStitchdContainer(t, relaxedRateLimits)
	owner := newClient(t, baseURL, nil)
	ctx := t.Context()

	require.NoError(t, owner.UserPassword().Register(ctx, "keys@example.com", "key-master"))
	user, err := owner.Auth().LoginWithCredential(ctx, stitchauth.UserPasswordCredential("keys@example.com", "key-master"))
	require.NoError(t, err)

	created, err := owner.UserAPIKeys().Create(ctx, "deploy-bot")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.NotEmpty(t, created.Key)

	_, err = owner.UserAPIKeys().Create(ctx, "deploy-bot")
	requireServiceError(t, err, stitchauth.ErrorCodeAPIKeyAlreadyExists)

	keys, err := owner.UserAPIKeys().List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.Empty(t, keys[0].Key)

	bot := newClient(t, baseURL, nil)
	botUser, err := bot.Auth().LoginWithCredential(ctx, stitchauth.UserAPIKeyCredential(created.Key))
	require.NoError(t, err)
	require.Equal(t, user.ID, botUser.ID, "an api key logs in as its owner")

	require.NoError(t, owner.UserAPIKeys().Disable(ctx, created.ID))
	other := newClient(t, baseURL, nil)
	_, err = other.Auth().LoginWithCredential(ctx, stitchauth.UserAPIKeyCredential(created.Key))
	requireServiceError(t, err, stitchauth.ErrorCodeAPIKeyNotFound)

	require.NoError(t, owner.UserAPIKeys().Delete(ctx, created.ID))
	_, err = owner.UserAPIKeys().Fetch(ctx, created.ID)
	requireServiceError(t, err, stitchauth.ErrorCodeAPIKeyNotFound)
}
