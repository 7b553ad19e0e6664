package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims are the claims of a third-party token presented to the
// custom-token auth provider. Name and Email flow into the user's profile.
type CustomClaims struct {
	jwt.RegisteredClaims

	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// SignHS256 mints a custom-token credential with a shared secret. Apps do this
// on their own servers; the SDK tests and the CLI use it to fake one.
func SignHS256(claims CustomClaims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyHS256 validates a custom-token credential. The subject is required
// because it becomes the identity id.
func VerifyHS256(tokenStr string, secret []byte) (CustomClaims, error) {
	if len(secret) == 0 {
		return CustomClaims{}, errors.New("jwtx: custom token secret not configured")
	}

	var claims CustomClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return CustomClaims{}, fmt.Errorf("jwtx: custom token: %w", err)
	}
	if claims.Subject == "" {
		return CustomClaims{}, fmt.Errorf("jwtx: custom token: %w", ErrMalformed)
	}
	return claims, nil
}
