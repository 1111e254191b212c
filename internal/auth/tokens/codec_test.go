package tokens_test

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/aussiebroadwan/tally/internal/auth/tokens"
	"github.com/aussiebroadwan/tally/pkg/jwtx/jwtxtest"
	"github.com/stretchr/testify/require"
)

func newCodec(t *testing.T, now *time.Time) (tokens.Codec, *bytes.Buffer) {
	t.Helper()

	cfgs, err := tokens.NewConfigs(jwtxtest.KeyMaterial(t), tokens.Env{Issuer: "tally"})
	require.NoError(t, err)

	var logs bytes.Buffer
	return tokens.Codec{
		Configs: cfgs,
		Now:     func() time.Time { return *now },
		Logger:  slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}, &logs
}

func TestCodecRoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	codec, _ := newCodec(t, &now)

	for _, typ := range tokens.All {
		t.Run(typ.String(), func(t *testing.T) {
			signed, err := codec.SignWithPayload("user-123", typ)
			require.NoError(t, err)
			require.NotEmpty(t, signed.Token)

			cfg, err := codec.Configs.Get(typ)
			require.NoError(t, err)
			require.Equal(t, cfg.TTL(), signed.Claims.ExpiresAtTime().Sub(signed.Claims.IssuedAtTime()))

			claims, err := codec.Verify(signed.Token, typ)
			require.NoError(t, err)
			require.NotNil(t, claims)
			require.Equal(t, "user-123", claims.Subject)
			require.Equal(t, cfg.Role, claims.Role)
		})
	}
}

func TestCodecRejectsOtherTypes(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	codec, _ := newCodec(t, &now)

	for _, issued := range tokens.All {
		token, err := codec.Sign("user-123", issued)
		require.NoError(t, err)

		for _, presented := range tokens.All {
			if presented == issued {
				continue
			}
			t.Run(issued.String()+" as "+presented.String(), func(t *testing.T) {
				claims, err := codec.Verify(token, presented)
				require.NoError(t, err)
				require.Nil(t, claims)
			})
		}
	}
}

func TestCodecExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	codec, logs := newCodec(t, &now)

	token, err := codec.Sign("user-123", tokens.DBAccess)
	require.NoError(t, err)

	now = now.Add(299 * time.Second)
	claims, err := codec.Verify(token, tokens.DBAccess)
	require.NoError(t, err)
	require.NotNil(t, claims)

	now = now.Add(time.Second)
	claims, err = codec.Verify(token, tokens.DBAccess)
	require.NoError(t, err)
	require.Nil(t, claims)
	require.Contains(t, logs.String(), "token rejected")
	require.Contains(t, logs.String(), "token expired")
}

func TestCodecUnknownType(t *testing.T) {
	now := time.Now()
	codec, _ := newCodec(t, &now)

	_, err := codec.Sign("user-123", tokens.Type(0))
	require.ErrorIs(t, err, tokens.ErrInvariant)

	_, err = codec.Verify("anything", tokens.Type(0))
	require.ErrorIs(t, err, tokens.ErrUnknownType)
}
