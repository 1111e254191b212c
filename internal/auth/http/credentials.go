package http

import (
	"net/http"

	"github.com/aussiebroadwan/tally/internal/auth/service"
	"github.com/aussiebroadwan/tally/internal/auth/tokens"
	"github.com/aussiebroadwan/tally/pkg/authsdk"
	"github.com/aussiebroadwan/tally/pkg/httpx"
)

// CredentialsHandler issues delegated credentials to signed-in users.
type CredentialsHandler struct {
	CredentialService *service.CredentialService
}

// HandleDB godoc
//
//	@Summary		Issue a database proxy credential
//	@Description	Requires a valid access cookie. Returns a short-lived HS256 token for the database proxy and sets it as the db_access_token cookie.
//	@Tags			Credentials
//	@Produce		json
//	@Success		200	{object}	authsdk.CredentialResponse	"token, expires_at"
//	@Failure		401	{object}	authsdk.APIError			"unauthenticated"
//	@Router			/v1/auth/credentials/db [post]
func (h *CredentialsHandler) HandleDB(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, tokens.DBAccess)
}

// HandleSync godoc
//
//	@Summary		Issue a sync backend credential
//	@Description	Requires a valid access cookie. Returns a short-lived RS256 token verifiable against the JWKS and sets it as the sync_token cookie.
//	@Tags			Credentials
//	@Produce		json
//	@Success		200	{object}	authsdk.CredentialResponse	"token, expires_at"
//	@Failure		401	{object}	authsdk.APIError			"unauthenticated"
//	@Router			/v1/auth/credentials/sync [post]
func (h *CredentialsHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, tokens.Sync)
}

func (h *CredentialsHandler) issue(w http.ResponseWriter, r *http.Request, t tokens.Type) {
	ctx := r.Context()
	session, _ := httpx.ClaimsFromContext(ctx)

	signed, err := h.CredentialService.IssueDelegated(ctx, session, t)
	if err != nil {
		serverError(w, r, "issue "+t.String()+" credential failed", err)
		return
	}

	if err := h.CredentialService.SetCookie(ctx, w, t, signed.Token); err != nil {
		serverError(w, r, "set "+t.String()+" cookie failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.CredentialResponse{
		Token:     signed.Token,
		ExpiresAt: signed.Claims.ExpiresAtTime().UTC(),
	})
}
