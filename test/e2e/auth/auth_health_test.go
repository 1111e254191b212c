//go:build e2e

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLivezEndpoint verifies the liveness check endpoint.
func TestLivezEndpoint(t *testing.T) {
	baseURL := setupAuthContainer(t)

	health, err := newClient(t, baseURL).Livez(t.Context())
	assertHealthy(t, health, err)
}

// TestReadyzEndpoint verifies readiness reports both dependencies.
func TestReadyzEndpoint(t *testing.T) {
	baseURL := setupAuthContainer(t)

	health, err := newClient(t, baseURL).Readyz(t.Context())
	assertHealthy(t, health, err)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Database)
	require.Equal(t, "ok", health.Checks.Credentials)
}

// TestReadyzDegradedWithoutKeys verifies the service still starts without
// usable key material but reports itself not ready.
func TestReadyzDegradedWithoutKeys(t *testing.T) {
	baseURL := setupAuthContainerWithEnv(t, map[string]string{"AUTH_PRIVATE_KEY": "bm90IGEga2V5"})
	client := newClient(t, baseURL)

	health, err := client.Livez(t.Context())
	assertHealthy(t, health, err)

	_, err = client.Readyz(t.Context())
	require.Error(t, err)
}

// TestJWKSEndpoint verifies the published key set holds the signing key.
func TestJWKSEndpoint(t *testing.T) {
	baseURL := setupAuthContainer(t)

	jwks, err := newClient(t, baseURL).GetJWKS(t.Context())
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)

	key := jwks.Keys[0]
	require.Equal(t, "RSA", key.Kty)
	require.Equal(t, "RS256", key.Alg)
	require.Equal(t, "sig", key.Use)
	require.NotEmpty(t, key.Kid)
}
