package http

import (
	"net/http"

	"github.com/aussiebroadwan/stitch/internal/stitchd/service"
	"github.com/aussiebroadwan/stitch/pkg/httpx"
	"github.com/aussiebroadwan/stitch/pkg/jwtx"
	"github.com/aussiebroadwan/stitch/pkg/stitchauth"
)

// RefreshTokenMiddleware authenticates a request by the refresh token of a
// live session. The session's user lands in the context the same way
// AuthnMiddleware puts an access token's claims there.
func RefreshTokenMiddleware(tokens *service.TokenService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := httpx.BearerToken(r)
			if !ok {
				stitchauth.NewServiceError(http.StatusUnauthorized,
					stitchauth.ErrorCodeMissingAuthReq, "must authenticate first").WriteError(w)
				return
			}

			sess, err := tokens.SessionFor(r.Context(), raw)
			if err != nil {
				writeError(w, r, err)
				return
			}

			var claims jwtx.Claims
			claims.Subject = sess.UserID
			claims.DeviceID = sess.DeviceID
			claims.SessionID = sess.ID
			claims.Type = "refresh"

			next.ServeHTTP(w, r.WithContext(httpx.ContextWithClaims(r.Context(), claims)))
		})
	}
}
