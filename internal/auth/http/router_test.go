package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	authhttp "github.com/aussiebroadwan/tally/internal/auth/http"
	"github.com/aussiebroadwan/tally/internal/auth/service"
	"github.com/aussiebroadwan/tally/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tally/internal/auth/tokens"
	"github.com/aussiebroadwan/tally/pkg/authsdk"
	"github.com/aussiebroadwan/tally/pkg/cryptox"
	"github.com/aussiebroadwan/tally/pkg/httpx"
	"github.com/aussiebroadwan/tally/pkg/jwtx"
	"github.com/aussiebroadwan/tally/pkg/jwtx/jwtxtest"
	"github.com/aussiebroadwan/tally/pkg/slogx"
	"github.com/stretchr/testify/require"
)

var roomy = httpx.RateLimitConfig{Requests: 1000, WindowSec: 60, Burst: 1000}

type harness struct {
	srv   *httptest.Server
	creds *service.CredentialService
}

// client returns a fresh SDK client with its own cookie jar.
func (h *harness) client(t *testing.T) *authsdk.SDKClient {
	t.Helper()
	c, err := authsdk.NewSDKClient(h.srv.URL)
	require.NoError(t, err)
	c.HTTPClient.Transport = h.srv.Client().Transport
	return c
}

func validEnv(t *testing.T) tokens.Env {
	t.Helper()
	src := jwtxtest.KeySource(t)
	return tokens.Env{
		Issuer:          "tally",
		PrivateKey:      src.PrivateKey,
		PublicKey:       src.PublicKey,
		RefreshSecret:   src.RefreshSecret,
		DelegatedSecret: src.DelegatedSecret,
	}
}

func newHarness(t *testing.T, env tokens.Env, limits httpx.RateLimits) *harness {
	t.Helper()
	return newHarnessAt(t, filepath.Join(t.TempDir(), "auth.db"), env, limits)
}

// newHarnessAt serves the database at dbPath, so two harnesses can share
// one set of accounts.
func newHarnessAt(t *testing.T, dbPath string, env tokens.Env, limits httpx.RateLimits) *harness {
	t.Helper()

	st, err := sqlite.NewStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	hasher, err := cryptox.NewPasswordHasher("test-pepper")
	require.NoError(t, err)
	hasher.Params.Memory = 1024
	hasher.Params.Iterations = 1

	creds := service.NewCredentialService(env, slogx.Discard())

	router := authhttp.NewRouter("test", st, limits, slogx.Discard())
	router.UserService = &service.UserService{Store: st, Hasher: hasher}
	router.CredentialService = creds
	router.ApplyRoutes()

	srv := httptest.NewTLSServer(router)
	t.Cleanup(srv.Close)

	return &harness{srv: srv, creds: creds}
}

func defaultHarness(t *testing.T) *harness {
	t.Helper()
	return newHarness(t, validEnv(t), httpx.RateLimits{
		Strict: roomy, Moderate: roomy, Lenient: roomy, Public: roomy,
	})
}

func requireAPIError(t *testing.T, err error, want *authsdk.APIError) {
	t.Helper()
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, want.StatusCode, apiErr.StatusCode)
	require.Equal(t, want.Code, apiErr.Code)
}

var ada = authsdk.Credentials{Email: "ada@example.com", Password: "correct horse battery"}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	h := defaultHarness(t)
	c := h.client(t)

	before := time.Now()
	sess, err := c.SignUp(ctx, ada)
	require.NoError(t, err)
	require.NotEmpty(t, sess.UserID)
	require.Equal(t, ada.Email, sess.Email)
	require.WithinDuration(t, before.Add(15*time.Minute), sess.ExpiresAt, 5*time.Second)

	status, err := c.Status(ctx)
	require.NoError(t, err)
	require.True(t, status.Authenticated)
	require.Equal(t, sess.UserID, status.UserID)
	require.Equal(t, ada.Email, status.Email)

	t.Run("db credential", func(t *testing.T) {
		cred, err := c.DBCredential(ctx)
		require.NoError(t, err)

		claims, err := h.creds.VerifyToken(ctx, cred.Token, tokens.DBAccess)
		require.NoError(t, err)
		require.NotNil(t, claims)
		require.Equal(t, sess.UserID, claims.Subject)
		require.Equal(t, tokens.RoleDBAccess, claims.Role)
		require.WithinDuration(t, time.Now().Add(5*time.Minute), cred.ExpiresAt, 5*time.Second)
	})

	t.Run("sync credential verifies against JWKS", func(t *testing.T) {
		cred, err := c.SyncCredential(ctx)
		require.NoError(t, err)

		v := authsdk.NewRemoteVerifier(h.client(t), jwtx.Expectations{
			Issuer:   "tally",
			Audience: tokens.AudienceSync,
			Role:     tokens.RoleSync,
		})
		claims, err := v.Verify(ctx, cred.Token)
		require.NoError(t, err)
		require.Equal(t, sess.UserID, claims.Subject)
	})

	require.NoError(t, c.SignOut(ctx))

	_, err = c.Status(ctx)
	requireAPIError(t, err, authsdk.ErrUnauthenticated)

	_, err = c.DBCredential(ctx)
	requireAPIError(t, err, authsdk.ErrUnauthenticated)

	// Same credentials start a new session.
	again, err := c.SignIn(ctx, authsdk.Credentials{Email: "ADA@example.com", Password: ada.Password})
	require.NoError(t, err)
	require.Equal(t, sess.UserID, again.UserID)
}

func TestSignUpRejects(t *testing.T) {
	ctx := context.Background()
	h := defaultHarness(t)

	_, err := h.client(t).SignUp(ctx, ada)
	require.NoError(t, err)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := h.client(t).SignUp(ctx, authsdk.Credentials{Email: "Ada@Example.com", Password: "something else entirely"})
		require.ErrorIs(t, err, authsdk.ErrEmailTaken)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := h.client(t).SignUp(ctx, authsdk.Credentials{Email: "not-an-email", Password: "short"})

		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, authsdk.ErrorCodeValidationFailed, apiErr.Code)
		require.Contains(t, apiErr.Details, "email")
		require.Contains(t, apiErr.Details, "password")
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := h.srv.Client().Post(h.srv.URL+"/v1/auth/signup", "application/json",
			strings.NewReader(`{"email":"x@example.com","password":"12345678","admin":true}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestSignUpRetryAfterKeyFailure(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "auth.db")
	limits := httpx.RateLimits{Strict: roomy, Moderate: roomy, Lenient: roomy, Public: roomy}

	broken := validEnv(t)
	broken.PublicKey = ""
	_, err := newHarnessAt(t, dbPath, broken, limits).client(t).SignUp(ctx, ada)
	requireAPIError(t, err, authsdk.ErrServerError)

	fixed := newHarnessAt(t, dbPath, validEnv(t), limits)
	sess, err := fixed.client(t).SignUp(ctx, ada)
	require.NoError(t, err)
	require.Equal(t, ada.Email, sess.Email)
}

func TestSignInFailures(t *testing.T) {
	ctx := context.Background()
	h := defaultHarness(t)

	_, err := h.client(t).SignUp(ctx, ada)
	require.NoError(t, err)

	_, err = h.client(t).SignIn(ctx, authsdk.Credentials{Email: ada.Email, Password: "wrong password"})
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)

	_, err = h.client(t).SignIn(ctx, authsdk.Credentials{Email: "ghost@example.com", Password: ada.Password})
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)
}

func cookiesByName(resp *http.Response) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range resp.Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestCookieAttributes(t *testing.T) {
	h := defaultHarness(t)

	resp, err := h.srv.Client().Post(h.srv.URL+"/v1/auth/signup", "application/json",
		strings.NewReader(`{"email":"ada@example.com","password":"correct horse battery"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	set := cookiesByName(resp)
	for name, maxAge := range map[string]int{"access_token": 900, "refresh_token": 604800} {
		c := set[name]
		require.NotNil(t, c, name)
		require.NotEmpty(t, c.Value)
		require.Equal(t, maxAge, c.MaxAge, name)
		require.Equal(t, "/", c.Path)
		require.True(t, c.HttpOnly)
		require.True(t, c.Secure)
		require.Equal(t, http.SameSiteStrictMode, c.SameSite)
	}
	require.NotContains(t, set, "db_access_token")

	out, err := h.srv.Client().Post(h.srv.URL+"/v1/auth/signout", "", nil)
	require.NoError(t, err)
	defer out.Body.Close()

	require.Equal(t, http.StatusNoContent, out.StatusCode)
	cleared := cookiesByName(out)
	for _, typ := range tokens.All {
		c := cleared[typ.CookieName()]
		require.NotNil(t, c, typ.String())
		require.Empty(t, c.Value)
		require.Negative(t, c.MaxAge)
		require.True(t, c.Secure)
	}
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	h := defaultHarness(t)
	c := h.client(t)

	sess, err := c.SignUp(ctx, ada)
	require.NoError(t, err)

	refreshed, err := c.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, sess.UserID, refreshed.UserID)

	_, err = c.Status(ctx)
	require.NoError(t, err)

	t.Run("no cookie", func(t *testing.T) {
		_, err := h.client(t).Refresh(ctx)
		requireAPIError(t, err, authsdk.ErrUnauthenticated)
	})

	t.Run("access token in refresh slot", func(t *testing.T) {
		access, err := h.creds.SignToken(ctx, sess.UserID, tokens.Access)
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodPost, h.srv.URL+"/v1/auth/refresh", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "refresh_token", Value: access})

		resp, err := h.srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, cookiesByName(resp), "refresh_token", "cookies cleared on failure")
	})
}

func TestJWKS(t *testing.T) {
	ctx := context.Background()
	h := defaultHarness(t)

	jwks, err := h.client(t).GetJWKS(ctx)
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)

	keys, err := h.creds.KeySet(ctx)
	require.NoError(t, err)
	require.Equal(t, keys.Thumbprint, jwks.Keys[0].Kid)
	require.Equal(t, "RS256", jwks.Keys[0].Alg)
}

func TestHealth(t *testing.T) {
	ctx := context.Background()

	t.Run("ready", func(t *testing.T) {
		c := defaultHarness(t).client(t)

		live, err := c.Livez(ctx)
		require.NoError(t, err)
		require.Equal(t, "ok", live.Status)

		ready, err := c.Readyz(ctx)
		require.NoError(t, err)
		require.Equal(t, "ok", ready.Checks.Credentials)
	})

	t.Run("bad keys", func(t *testing.T) {
		env := validEnv(t)
		env.RefreshSecret = env.DelegatedSecret
		h := newHarness(t, env, httpx.RateLimits{Strict: roomy, Moderate: roomy, Lenient: roomy, Public: roomy})
		c := h.client(t)

		_, err := c.Readyz(ctx)
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)

		_, err = c.SignUp(ctx, ada)
		requireAPIError(t, err, authsdk.ErrServerError)

		// Sign-out never depends on key material.
		require.NoError(t, c.SignOut(ctx))
	})
}

func TestStrictRateLimit(t *testing.T) {
	ctx := context.Background()
	one := httpx.RateLimitConfig{Requests: 1, WindowSec: 60, Burst: 1}
	h := newHarness(t, validEnv(t), httpx.RateLimits{Strict: one, Moderate: roomy, Lenient: roomy, Public: roomy})
	c := h.client(t)

	_, err := c.SignIn(ctx, ada)
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)

	_, err = c.SignIn(ctx, ada)
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, authsdk.ErrorCodeRateLimited, apiErr.Code)

	// Other profiles are unaffected.
	_, err = c.Livez(ctx)
	require.NoError(t, err)
}

func TestSessionRoutesLimitedBeforeVerification(t *testing.T) {
	ctx := context.Background()
	one := httpx.RateLimitConfig{Requests: 1, WindowSec: 60, Burst: 1}
	h := newHarness(t, validEnv(t), httpx.RateLimits{Strict: roomy, Moderate: one, Lenient: one, Public: roomy})

	for name, call := range map[string]func(*authsdk.SDKClient) error{
		"status": func(c *authsdk.SDKClient) error {
			_, err := c.Status(ctx)
			return err
		},
		"db credential": func(c *authsdk.SDKClient) error {
			_, err := c.DBCredential(ctx)
			return err
		},
	} {
		t.Run(name, func(t *testing.T) {
			c := h.client(t)
			requireAPIError(t, call(c), authsdk.ErrUnauthenticated)

			var apiErr *authsdk.APIError
			require.ErrorAs(t, call(c), &apiErr)
			require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
		})
	}
}
