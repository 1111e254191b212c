//go:build e2e

package auth_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/tally/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRateLimitSignIn verifies sign-in uses the strict profile with its
// production defaults of five requests per minute.
func TestRateLimitSignIn(t *testing.T) {
	baseURL := setupAuthContainerWithEnv(t, nil)
	client := newClient(t, baseURL)
	creds := authsdk.Credentials{Email: "brute@example.com", Password: "wrong password"}

	for i := range 5 {
		_, err := client.SignIn(t.Context(), creds)
		assertAPIError(t, err, authsdk.ErrInvalidCredentials)
		t.Logf("request %d rejected with invalid credentials", i+1)
	}

	_, err := client.SignIn(t.Context(), creds)
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, authsdk.ErrorCodeRateLimited, apiErr.Code)
}

// TestRateLimitJWKS verifies the public profile tolerates frequent polling.
func TestRateLimitJWKS(t *testing.T) {
	baseURL := setupAuthContainerWithEnv(t, nil)
	client := newClient(t, baseURL)

	for range 50 {
		_, err := client.GetJWKS(t.Context())
		require.NoError(t, err)
	}
}
