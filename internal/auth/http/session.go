package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/tally/internal/auth/domain"
	"github.com/aussiebroadwan/tally/internal/auth/service"
	"github.com/aussiebroadwan/tally/internal/auth/store"
	"github.com/aussiebroadwan/tally/internal/auth/tokens"
	"github.com/aussiebroadwan/tally/pkg/authsdk"
	"github.com/aussiebroadwan/tally/pkg/httpx"
	"github.com/aussiebroadwan/tally/pkg/slogx"
)

const maxBodyBytes = 4 << 10

// SessionHandler serves sign-up, sign-in, sign-out, status and refresh.
type SessionHandler struct {
	UserService       *service.UserService
	CredentialService *service.CredentialService
}

// HandleSignUp godoc
//
//	@Summary		Create an account
//	@Description	Creates a user and starts a session. The access and refresh tokens are set as HttpOnly cookies.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.Credentials		true	"email and password"
//	@Success		201		{object}	authsdk.SessionResponse	"user_id, email, expires_at"
//	@Failure		400		{object}	authsdk.APIError		"invalid_request or validation_failed"
//	@Failure		409		{object}	authsdk.APIError		"email_taken"
//	@Failure		500		{object}	authsdk.APIError		"server_error"
//	@Router			/v1/auth/signup [post]
func (h *SessionHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	// Tokens are minted inside the sign-up transaction so broken key
	// material leaves no account behind.
	var sess session
	user, err := h.UserService.SignUp(r.Context(), creds.Email, creds.Password, func(u domain.User) error {
		var err error
		sess, err = h.mintSession(r.Context(), u)
		return err
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			authsdk.ErrEmailTaken.WriteError(w)
			return
		}
		serverError(w, r, "sign-up failed", err)
		return
	}

	h.writeSession(w, r, user, sess, http.StatusCreated)
}

// HandleSignIn godoc
//
//	@Summary		Sign in
//	@Description	Checks the password and starts a session. Unknown emails and wrong passwords are indistinguishable.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.Credentials		true	"email and password"
//	@Success		200		{object}	authsdk.SessionResponse	"user_id, email, expires_at"
//	@Failure		400		{object}	authsdk.APIError		"invalid_request or validation_failed"
//	@Failure		401		{object}	authsdk.APIError		"invalid_credentials"
//	@Failure		500		{object}	authsdk.APIError		"server_error"
//	@Router			/v1/auth/signin [post]
func (h *SessionHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	user, err := h.UserService.SignIn(r.Context(), creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			slogx.FromContext(r.Context()).Info("sign-in rejected")
			authsdk.ErrInvalidCredentials.WriteError(w)
			return
		}
		serverError(w, r, "sign-in failed", err)
		return
	}

	h.startSession(w, r, user, http.StatusOK)
}

// HandleSignOut godoc
//
//	@Summary	Sign out
//	@Tags		Session
//	@Success	204	"every token cookie cleared"
//	@Router		/v1/auth/signout [post]
func (h *SessionHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.CredentialService.ClearAllCookies(r.Context(), w); err != nil {
		serverError(w, r, "sign-out failed", err)
		return
	}
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleStatus godoc
//
//	@Summary	Session status
//	@Tags		Session
//	@Produce	json
//	@Success	200	{object}	authsdk.StatusResponse	"authenticated, user_id, email, expires_at"
//	@Failure	401	{object}	authsdk.APIError		"unauthenticated"
//	@Router		/v1/auth/status [get]
func (h *SessionHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := httpx.ClaimsFromContext(ctx)

	user, err := h.UserService.GetUserByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		// Valid token for a deleted account.
		authsdk.ErrUnauthenticated.WriteError(w)
		return
	}
	if err != nil {
		serverError(w, r, "status lookup failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.StatusResponse{
		Authenticated: true,
		UserID:        user.ID,
		Email:         user.Email,
		ExpiresAt:     claims.ExpiresAtTime().UTC(),
	})
}

// HandleRefresh godoc
//
//	@Summary		Refresh the session
//	@Description	Trades a valid refresh cookie for a new access and refresh cookie pair. On failure every cookie is cleared.
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	authsdk.SessionResponse	"user_id, email, expires_at"
//	@Failure		401	{object}	authsdk.APIError		"unauthenticated"
//	@Router			/v1/auth/refresh [post]
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, err := h.CredentialService.VerifyCookieToken(r, tokens.Refresh)
	if err != nil {
		serverError(w, r, "refresh verification failed", err)
		return
	}
	if claims == nil {
		h.rejectRefresh(w, r)
		return
	}

	user, err := h.UserService.GetUserByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		h.rejectRefresh(w, r)
		return
	}
	if err != nil {
		serverError(w, r, "refresh lookup failed", err)
		return
	}

	h.startSession(w, r, user, http.StatusOK)
}

func (h *SessionHandler) rejectRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.CredentialService.ClearAllCookies(r.Context(), w); err != nil {
		serverError(w, r, "clear cookies failed", err)
		return
	}
	authsdk.ErrUnauthenticated.WriteError(w)
}

// session is a signed access and refresh token pair.
type session struct {
	access  tokens.Signed
	refresh string
}

func (h *SessionHandler) mintSession(ctx context.Context, user domain.User) (session, error) {
	access, err := h.CredentialService.SignTokenWithPayload(ctx, user.ID, tokens.Access)
	if err != nil {
		return session{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := h.CredentialService.SignToken(ctx, user.ID, tokens.Refresh)
	if err != nil {
		return session{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return session{access: access, refresh: refresh}, nil
}

// startSession signs an access and refresh token for user, sets both
// cookies and writes the session summary with status.
func (h *SessionHandler) startSession(w http.ResponseWriter, r *http.Request, user domain.User, status int) {
	sess, err := h.mintSession(r.Context(), user)
	if err != nil {
		serverError(w, r, "start session failed", err)
		return
	}
	h.writeSession(w, r, user, sess, status)
}

func (h *SessionHandler) writeSession(w http.ResponseWriter, r *http.Request, user domain.User, sess session, status int) {
	ctx := r.Context()

	if err := h.CredentialService.SetCookie(ctx, w, tokens.Access, sess.access.Token); err != nil {
		serverError(w, r, "set session cookies failed", err)
		return
	}
	if err := h.CredentialService.SetCookie(ctx, w, tokens.Refresh, sess.refresh); err != nil {
		serverError(w, r, "set session cookies failed", err)
		return
	}

	httpx.WriteJSON(w, status, authsdk.SessionResponse{
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: sess.access.Claims.ExpiresAtTime().UTC(),
	})
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (authsdk.Credentials, bool) {
	var creds authsdk.Credentials
	if err := httpx.DecodeJSON(w, r, maxBodyBytes, &creds); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return authsdk.Credentials{}, false
	}

	if details := validationDetails(creds); details != nil {
		authsdk.ErrValidationFailed.WithDetails(details).WriteError(w)
		return authsdk.Credentials{}, false
	}
	return creds, true
}

// serverError logs err against the request and writes a bare 500. Details
// never reach the client.
func serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slogx.FromContext(r.Context()).Error(msg, "err", err)
	authsdk.ErrServerError.WriteError(w)
}
