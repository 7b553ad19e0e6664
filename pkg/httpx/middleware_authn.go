package httpx

import (
	"net/http"

	"github.com/aussiebroadwan/stitch/pkg/jwtx"
	"github.com/aussiebroadwan/stitch/pkg/slogx"
)

// InvalidSessionCode is the error_code clients react to by refreshing their
// access token.
const InvalidSessionCode = "InvalidSession"

// AuthnMiddleware requires a valid access token. Any failure, including an
// expired token, answers 401 InvalidSession.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			raw, ok := BearerToken(r)
			if !ok {
				WriteError(w, http.StatusUnauthorized, "MissingAuthReq", "must authenticate first")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				log.Debug("access token rejected", "error", err)
				WriteError(w, http.StatusUnauthorized, InvalidSessionCode, "invalid session")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}
