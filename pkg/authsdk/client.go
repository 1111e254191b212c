package authsdk

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// SDKClient talks to the auth service. It is safe for concurrent use, but
// all calls share one cookie jar and therefore one session.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient returns a client with its own cookie jar.
func NewSDKClient(baseURL string) (*SDKClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		},
	}, nil
}

// SignUp creates an account and starts a session.
func (c *SDKClient) SignUp(ctx context.Context, creds Credentials) (*SessionResponse, error) {
	return c.session(ctx, "/v1/auth/signup", creds, http.StatusCreated)
}

// SignIn starts a session for an existing account.
func (c *SDKClient) SignIn(ctx context.Context, creds Credentials) (*SessionResponse, error) {
	return c.session(ctx, "/v1/auth/signin", creds, http.StatusOK)
}

// Refresh trades the refresh cookie for a new session cookie pair.
func (c *SDKClient) Refresh(ctx context.Context) (*SessionResponse, error) {
	return c.session(ctx, "/v1/auth/refresh", nil, http.StatusOK)
}

func (c *SDKClient) session(ctx context.Context, path string, body any, status int) (*SessionResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	var out SessionResponse
	if err := decodeJSON(resp, &out, status); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignOut clears every session and credential cookie.
func (c *SDKClient) SignOut(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/signout", nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// Status reports the current session. Without one it returns an
// *APIError with ErrorCodeUnauthenticated.
func (c *SDKClient) Status(ctx context.Context) (*StatusResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/auth/status", nil)
	if err != nil {
		return nil, err
	}

	var out StatusResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DBCredential requests a short-lived database proxy credential.
func (c *SDKClient) DBCredential(ctx context.Context) (*CredentialResponse, error) {
	return c.credential(ctx, "/v1/auth/credentials/db")
}

// SyncCredential requests a short-lived sync backend credential.
func (c *SDKClient) SyncCredential(ctx context.Context) (*CredentialResponse, error) {
	return c.credential(ctx, "/v1/auth/credentials/sync")
}

func (c *SDKClient) credential(ctx context.Context, path string) (*CredentialResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}

	var out CredentialResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetJWKS retrieves the public key set for token verification.
func (c *SDKClient) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/jwks.json", nil)
	if err != nil {
		return nil, err
	}

	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return nil, err
	}
	return &jwks, nil
}

// Livez checks that the service process is up.
func (c *SDKClient) Livez(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// Readyz checks that the database and key material are usable.
func (c *SDKClient) Readyz(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *SDKClient) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}
