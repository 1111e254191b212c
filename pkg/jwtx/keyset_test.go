package jwtx_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/aussiebroadwan/tally/pkg/jwtx"
	"github.com/aussiebroadwan/tally/pkg/jwtx/jwtxtest"
	"github.com/stretchr/testify/require"
)

func TestKeySet(t *testing.T) {
	km := jwtxtest.KeyMaterial(t)

	ks := jwtx.NewKeySet()
	require.False(t, ks.IsReady())

	require.NoError(t, ks.AddJWK(km.PublicJWK))
	require.True(t, ks.IsReady())

	pub, err := ks.Get(km.Thumbprint)
	require.NoError(t, err)
	require.True(t, km.VerificationKey.Equal(pub))

	_, err = ks.Get("nope")
	require.ErrorIs(t, err, jwtx.ErrNoKey)

	require.Equal(t, []jwtx.JWK{km.PublicJWK}, ks.PublicJWKS().Keys)
}

func TestKeySetResetFromJWKS(t *testing.T) {
	km := jwtxtest.KeyMaterial(t)
	ks := jwtx.NewKeySet()
	require.NoError(t, ks.AddJWK(km.PublicJWK))

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	kid := jwtx.Thumbprint(&other.PublicKey)

	require.NoError(t, ks.ResetFromJWKS(jwtx.JWKS{Keys: []jwtx.JWK{
		jwtx.NewRSAJWK(kid, "sig", "RS256", &other.PublicKey),
	}}))

	_, err = ks.Get(km.Thumbprint)
	require.ErrorIs(t, err, jwtx.ErrNoKey)
	_, err = ks.Get(kid)
	require.NoError(t, err)

	// A bad key leaves the set untouched
	require.Error(t, ks.ResetFromJWKS(jwtx.JWKS{Keys: []jwtx.JWK{{Kty: "oct", Kid: "x"}}}))
	_, err = ks.Get(kid)
	require.NoError(t, err)
}

func TestKeySetVerify(t *testing.T) {
	cfg := rsaConfig(t, "tally-sync", "sync_user")
	now := time.Unix(1_700_000_000, 0).UTC()

	token, _, err := jwtx.Sign(cfg, "user-123", now)
	require.NoError(t, err)

	ks := jwtx.NewKeySet()
	require.NoError(t, ks.AddJWK(jwtxtest.KeyMaterial(t).PublicJWK))

	want := jwtx.Expectations{Issuer: exampleIssuer, Audience: "tally-sync", Role: "sync_user"}

	claims, err := ks.Verify(token, want, now)
	require.NoError(t, err)
	require.Equal(t, "user-123", claims.Subject)

	t.Run("wrong audience", func(t *testing.T) {
		w := want
		w.Audience = "tally-db"
		_, err := ks.Verify(token, w, now)
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("unknown kid", func(t *testing.T) {
		_, err := jwtx.NewKeySet().Verify(token, want, now)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := ks.Verify(token, want, now.Add(cfg.TTL()))
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})
}
