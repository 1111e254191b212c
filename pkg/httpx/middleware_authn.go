package httpx

import (
	"net/http"

	"github.com/aussiebroadwan/tally/pkg/jwtx"
)

// SessionVerifier reads and verifies a session from the request. It returns
// (nil, nil) when there is no valid session, and an error only when the
// check itself could not be performed.
type SessionVerifier func(r *http.Request) (*jwtx.Claims, error)

// SessionRejecter writes the response for a request RequireSession turns
// away. err is nil when there was simply no valid session.
type SessionRejecter func(w http.ResponseWriter, r *http.Request, err error)

// RequireSession rejects requests without a valid session and stores the
// verified claims in the request context. The error wire format belongs
// to reject.
func RequireSession(verify SessionVerifier, reject SessionRejecter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verify(r)
			if err != nil || claims == nil {
				reject(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}
