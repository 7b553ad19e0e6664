package jwtx

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// segmentParser only decodes base64url segments; it never verifies anything.
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// Decode reads the claims of token without checking its signature.
//
// The result is only good for local scheduling decisions such as "is this
// access token about to expire". The server stays the authority on whether a
// token is valid.
func Decode(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformed, len(parts))
	}

	payload, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: payload is not base64url: %v", ErrMalformed, err)
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: payload is not json: %v", ErrMalformed, err)
	}

	return claims, nil
}

// Times returns the iat and exp claims of token. A token missing either one
// is reported as ErrMissingTime.
func Times(token string) (issuedAt, expires time.Time, err error) {
	c, err := Decode(token)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if c.IssuedAt == nil || c.ExpiresAt == nil {
		return time.Time{}, time.Time{}, ErrMissingTime
	}
	return c.IssuedAt.Time, c.ExpiresAt.Time, nil
}
