package jwtx_test

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/tally/pkg/jwtx"
	"github.com/aussiebroadwan/tally/pkg/jwtx/jwtxtest"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "tally"

func rsaConfig(t *testing.T, aud, role string) jwtx.TokenConfig {
	km := jwtxtest.KeyMaterial(t)
	return jwtx.TokenConfig{
		Method:            jwt.SigningMethodRS256,
		SigningKey:        km.SigningKey,
		VerificationKey:   km.VerificationKey,
		Issuer:            exampleIssuer,
		Audience:          aud,
		Role:              role,
		KeyID:             km.Thumbprint,
		ExpirationSeconds: 900,
	}
}

func hmacConfig(secret []byte, aud, role string) jwtx.TokenConfig {
	return jwtx.TokenConfig{
		Method:            jwt.SigningMethodHS256,
		SigningKey:        secret,
		VerificationKey:   secret,
		Issuer:            exampleIssuer,
		Audience:          aud,
		Role:              role,
		ExpirationSeconds: 300,
	}
}

func TestSignAndVerifyRS256(t *testing.T) {
	cfg := rsaConfig(t, "tally", "authenticated")
	now := time.Unix(1_700_000_000, 0).UTC()

	token, claims, err := jwtx.Sign(cfg, "user-123", now)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := jwtx.Verify(cfg, token, now.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, claims.Subject, parsed.Subject)
	require.Equal(t, claims.ID, parsed.ID)
	require.Equal(t, "authenticated", parsed.Role)
	require.Equal(t, exampleIssuer, parsed.Issuer)
	require.True(t, parsed.HasAudience("tally"))
	require.Equal(t, cfg.TTL(), parsed.ExpiresAtTime().Sub(parsed.IssuedAtTime()))

	// kid header carries the thumbprint
	tok, _, err := jwt.NewParser().ParseUnverified(token, &jwtx.Claims{})
	require.NoError(t, err)
	require.Equal(t, cfg.KeyID, tok.Header["kid"])
	require.Equal(t, "RS256", tok.Header["alg"])
}

func TestSignAndVerifyHS256(t *testing.T) {
	cfg := hmacConfig([]byte(strings.Repeat("s", 32)), "tally-db", "db_user")
	now := time.Unix(1_700_000_000, 0).UTC()

	token, _, err := jwtx.Sign(cfg, "user-123", now)
	require.NoError(t, err)

	parsed, err := jwtx.Verify(cfg, token, now)
	require.NoError(t, err)
	require.Equal(t, "db_user", parsed.Role)

	tok, _, err := jwt.NewParser().ParseUnverified(token, &jwtx.Claims{})
	require.NoError(t, err)
	require.NotContains(t, tok.Header, "kid")
}

func TestVerifyExpiryBoundary(t *testing.T) {
	cfg := hmacConfig([]byte(strings.Repeat("s", 32)), "tally-db", "db_user")
	now := time.Unix(1_700_000_000, 0).UTC()

	token, _, err := jwtx.Sign(cfg, "user-123", now)
	require.NoError(t, err)

	t.Run("one second before exp", func(t *testing.T) {
		_, err := jwtx.Verify(cfg, token, now.Add(cfg.TTL()-time.Second))
		require.NoError(t, err)
	})

	t.Run("exactly at exp", func(t *testing.T) {
		_, err := jwtx.Verify(cfg, token, now.Add(cfg.TTL()))
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("after exp", func(t *testing.T) {
		_, err := jwtx.Verify(cfg, token, now.Add(cfg.TTL()+time.Hour))
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("before nbf", func(t *testing.T) {
		_, err := jwtx.Verify(cfg, token, now.Add(-time.Minute))
		require.ErrorIs(t, err, jwtx.ErrNotYetValid)
	})
}

func TestVerifyRejects(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	access := rsaConfig(t, "tally", "authenticated")
	sync := rsaConfig(t, "tally-sync", "sync_user")
	refresh := hmacConfig([]byte(strings.Repeat("r", 32)), "tally-refresh", "refresh")
	db := hmacConfig([]byte(strings.Repeat("d", 32)), "tally-db", "db_user")

	accessTok, _, err := jwtx.Sign(access, "user-123", now)
	require.NoError(t, err)
	refreshTok, _, err := jwtx.Sign(refresh, "user-123", now)
	require.NoError(t, err)

	t.Run("asymmetric token against symmetric config", func(t *testing.T) {
		_, err := jwtx.Verify(refresh, accessTok, now)
		require.ErrorIs(t, err, jwtx.ErrAlgMismatch)
	})

	t.Run("symmetric token against asymmetric config", func(t *testing.T) {
		_, err := jwtx.Verify(access, refreshTok, now)
		require.ErrorIs(t, err, jwtx.ErrAlgMismatch)
	})

	t.Run("other symmetric secret", func(t *testing.T) {
		_, err := jwtx.Verify(db, refreshTok, now)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("same key different audience", func(t *testing.T) {
		_, err := jwtx.Verify(sync, accessTok, now)
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("role mismatch", func(t *testing.T) {
		wrongRole := access
		wrongRole.Role = "sync_user"
		_, err := jwtx.Verify(wrongRole, accessTok, now)
		require.ErrorIs(t, err, jwtx.ErrRole)
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		other := access
		other.Issuer = "someone-else"
		_, err := jwtx.Verify(other, accessTok, now)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("unknown kid", func(t *testing.T) {
		other := access
		other.KeyID = "not-the-thumbprint"
		_, err := jwtx.Verify(other, accessTok, now)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := jwtx.Verify(access, "not.a.jwt", now)
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := jwtx.Verify(access, "", now)
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("tampered payload", func(t *testing.T) {
		parts := strings.Split(accessTok, ".")
		require.Len(t, parts, 3)

		raw, err := base64.RawURLEncoding.DecodeString(parts[1])
		require.NoError(t, err)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(raw, &payload))
		payload["sub"] = "user-456"
		raw, err = json.Marshal(payload)
		require.NoError(t, err)
		parts[1] = base64.RawURLEncoding.EncodeToString(raw)

		_, err = jwtx.Verify(access, strings.Join(parts, "."), now)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("alg none", func(t *testing.T) {
		claims := jwtx.NewClaims(access, "user-123", now)
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
		s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = jwtx.Verify(access, s, now)
		require.ErrorIs(t, err, jwtx.ErrAlgMismatch)
	})
}

func TestSignRequiresUsableConfig(t *testing.T) {
	now := time.Now()

	_, _, err := jwtx.Sign(jwtx.TokenConfig{}, "user-123", now)
	require.Error(t, err)

	cfg := hmacConfig([]byte(strings.Repeat("s", 32)), "tally-db", "db_user")
	_, _, err = jwtx.Sign(cfg, "", now)
	require.Error(t, err)

	cfg.ExpirationSeconds = 0
	_, _, err = jwtx.Sign(cfg, "user-123", now)
	require.Error(t, err)
}
