package http

import (
	"net/http"

	"github.com/aussiebroadwan/tally/internal/auth/service"
	"github.com/aussiebroadwan/tally/pkg/authsdk"
	"github.com/aussiebroadwan/tally/pkg/httpx"
)

// JWKSHandler exposes the public key downstream services verify RS256
// tokens with.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify access and sync tokens. Symmetric secrets are never published.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Failure		500	{object}	authsdk.APIError		"server_error"
//	@Router			/.well-known/jwks.json [get]
func JWKSHandler(creds *service.CredentialService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, err := creds.JWKS(r.Context())
		if err != nil {
			serverError(w, r, "jwks unavailable", err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, authsdk.JWKSResponse(jwks))
	}
}
