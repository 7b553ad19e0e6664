package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/stitch/pkg/cryptox"
	"github.com/aussiebroadwan/stitch/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testIssuer = "stitchd"

func newSigner(t *testing.T, kid string) *jwtx.EdDSASigner {
	t.Helper()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	signer, err := jwtx.NewSignerEdDSA(kid, pemKey)
	require.NoError(t, err)
	return signer
}

func TestEdDSASignAndVerify(t *testing.T) {
	t.Parallel()

	signer := newSigner(t, "key-1")
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	require.True(t, keys.IsReady())

	jwks := keys.PublicJWKS()
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "OKP", jwks.Keys[0].Kty)
	require.Equal(t, "Ed25519", jwks.Keys[0].Crv)
	require.Equal(t, "EdDSA", jwks.Keys[0].Alg)

	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims("user-1", "device-1", "session-1", testIssuer, 5*time.Minute, now)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier := jwtx.NewVerifierEdDSA(keys, testIssuer)

	t.Run("valid token", func(t *testing.T) {
		got, err := verifier.Verify(token)
		require.NoError(t, err)
		require.Equal(t, "user-1", got.Subject)
		require.Equal(t, "device-1", got.DeviceID)
		require.Equal(t, "session-1", got.SessionID)
		require.Equal(t, "access", got.Type)
	})

	t.Run("unverified decode agrees", func(t *testing.T) {
		got, err := jwtx.Decode(token)
		require.NoError(t, err)
		require.Equal(t, claims.Expires().Unix(), got.Expires().Unix())
		require.Equal(t, claims.Issued().Unix(), got.Issued().Unix())
	})

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := jwtx.NewVerifierEdDSA(keys, "someone-else").Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("unknown key", func(t *testing.T) {
		other := newSigner(t, "key-2")
		foreign, err := other.Sign(claims)
		require.NoError(t, err)

		_, err = verifier.Verify(foreign)
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		old := jwtx.NewAccessClaims("user-1", "device-1", "session-1", testIssuer, time.Minute, now.Add(-time.Hour))
		expired, err := signer.Sign(old)
		require.NoError(t, err)

		_, err = verifier.Verify(expired)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := verifier.Verify(token[:len(token)-2] + "xx")
		require.Error(t, err)
	})
}

func TestCustomTokenHS256(t *testing.T) {
	t.Parallel()

	secret := []byte("a-very-long-shared-secret-for-tests")
	claims := jwtx.CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ext-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name:  "Ada",
		Email: "ada@example.com",
	}

	token, err := jwtx.SignHS256(claims, secret)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		got, err := jwtx.VerifyHS256(token, secret)
		require.NoError(t, err)
		require.Equal(t, "ext-42", got.Subject)
		require.Equal(t, "Ada", got.Name)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := jwtx.VerifyHS256(token, []byte("another-secret-entirely-wrong"))
		require.Error(t, err)
	})

	t.Run("no secret configured", func(t *testing.T) {
		_, err := jwtx.VerifyHS256(token, nil)
		require.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		anon := claims
		anon.Subject = ""
		tok, err := jwtx.SignHS256(anon, secret)
		require.NoError(t, err)

		_, err = jwtx.VerifyHS256(tok, secret)
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}
