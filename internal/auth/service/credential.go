package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/tally/internal/auth/tokens"
	"github.com/aussiebroadwan/tally/pkg/httpx"
	"github.com/aussiebroadwan/tally/pkg/jwtx"
	"github.com/aussiebroadwan/tally/pkg/slogx"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotDelegable = errors.New("credential: token type cannot be delegated")
	ErrNoSession    = errors.New("credential: no session to delegate from")
)

// CredentialService is the single entry point for everything token related:
// signing, verification, cookies and the public key set. Key material is
// parsed lazily on first use and then cached for the life of the process.
type CredentialService struct {
	// LoadKeys parses the key source. Tests swap it to count or fail loads.
	LoadKeys func(jwtx.KeySource) (*jwtx.KeyMaterial, error)

	// Now is the clock tokens are signed and verified against.
	Now func() time.Time

	env    tokens.Env
	logger *slog.Logger

	group singleflight.Group
	state atomic.Pointer[credentialState]
}

type credentialState struct {
	keys    *jwtx.KeyMaterial
	configs tokens.Configs
}

// NewCredentialService returns a service that will build its key material
// from env on first use.
func NewCredentialService(env tokens.Env, logger *slog.Logger) *CredentialService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialService{
		LoadKeys: jwtx.LoadKeys,
		Now:      time.Now,
		env:      env,
		logger:   logger,
	}
}

// load returns the cached state, building it at most once across
// concurrent callers. Failures are not cached.
func (s *CredentialService) load(ctx context.Context) (*credentialState, error) {
	if st := s.state.Load(); st != nil {
		return st, nil
	}

	v, err, _ := s.group.Do("init", func() (any, error) {
		// Another flight may have finished between our check and Do
		if st := s.state.Load(); st != nil {
			return st, nil
		}

		keys, err := s.LoadKeys(s.env.KeySource())
		if err != nil {
			return nil, err
		}
		configs, err := tokens.NewConfigs(keys, s.env)
		if err != nil {
			return nil, err
		}

		st := &credentialState{keys: keys, configs: configs}
		s.state.Store(st)

		s.logger.Info("credential material initialized", "kid", keys.Thumbprint)
		return st, nil
	})
	if err != nil {
		slogx.FromContext(ctx).Error("credential initialization failed", "err", err)
		return nil, err
	}

	return v.(*credentialState), nil
}

func (s *CredentialService) codec(ctx context.Context) (tokens.Codec, error) {
	st, err := s.load(ctx)
	if err != nil {
		return tokens.Codec{}, err
	}
	return tokens.Codec{
		Configs: st.configs,
		Now:     s.Now,
		Logger:  slogx.FromContext(ctx),
	}, nil
}

// Init forces initialization. Readiness checks call it so a broken key
// configuration shows up before the first sign-in does.
func (s *CredentialService) Init(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}

// Reset drops the cached state. Only tests should need this.
func (s *CredentialService) Reset() {
	s.state.Store(nil)
}

// KeySet returns the loaded key material.
func (s *CredentialService) KeySet(ctx context.Context) (*jwtx.KeyMaterial, error) {
	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return st.keys, nil
}

// Configs returns the per-type token configuration table.
func (s *CredentialService) Configs(ctx context.Context) (tokens.Configs, error) {
	st, err := s.load(ctx)
	if err != nil {
		return tokens.Configs{}, err
	}
	return st.configs, nil
}

// SignToken issues a token of type t for userID.
func (s *CredentialService) SignToken(ctx context.Context, userID string, t tokens.Type) (string, error) {
	c, err := s.codec(ctx)
	if err != nil {
		return "", err
	}
	return c.Sign(userID, t)
}

// SignTokenWithPayload is SignToken but also returns the claims, so callers
// can report the expiry without parsing the token again.
func (s *CredentialService) SignTokenWithPayload(ctx context.Context, userID string, t tokens.Type) (tokens.Signed, error) {
	c, err := s.codec(ctx)
	if err != nil {
		return tokens.Signed{}, err
	}
	return c.SignWithPayload(userID, t)
}

// VerifyToken checks token as type t. A rejected token is (nil, nil).
func (s *CredentialService) VerifyToken(ctx context.Context, token string, t tokens.Type) (*jwtx.Claims, error) {
	c, err := s.codec(ctx)
	if err != nil {
		return nil, err
	}
	return c.Verify(token, t)
}

// VerifyCookieToken verifies the cookie for type t on r. A missing cookie
// is (nil, nil) and never touches the key material.
func (s *CredentialService) VerifyCookieToken(r *http.Request, t tokens.Type) (*jwtx.Claims, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %s", tokens.ErrUnknownType, t)
	}

	token, ok := httpx.ReadCookie(r, t.CookieName())
	if !ok {
		return nil, nil
	}
	return s.VerifyToken(r.Context(), token, t)
}

// GetCookieConfig returns the cookie attributes for t. MaxAge matches the
// token lifetime so the cookie and the token expire together.
func (s *CredentialService) GetCookieConfig(ctx context.Context, t tokens.Type) (httpx.CookieConfig, error) {
	configs, err := s.Configs(ctx)
	if err != nil {
		return httpx.CookieConfig{}, err
	}
	cfg, err := configs.Get(t)
	if err != nil {
		return httpx.CookieConfig{}, err
	}
	return httpx.NewCookieConfig(cfg.CookieName, int(cfg.ExpirationSeconds)), nil
}

// SetCookie writes token as the cookie for t.
func (s *CredentialService) SetCookie(ctx context.Context, w http.ResponseWriter, t tokens.Type, token string) error {
	cfg, err := s.GetCookieConfig(ctx, t)
	if err != nil {
		return err
	}
	httpx.SetCookie(w, cfg, token)
	return nil
}

// ClearCookie expires the cookie for t. It does not need key material, so
// sign-out keeps working when the keys are misconfigured.
func (s *CredentialService) ClearCookie(_ context.Context, w http.ResponseWriter, t tokens.Type) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %s", tokens.ErrUnknownType, t)
	}
	httpx.ClearCookie(w, httpx.NewCookieConfig(t.CookieName(), 0))
	return nil
}

// ClearAllCookies expires the cookie of every token type.
func (s *CredentialService) ClearAllCookies(ctx context.Context, w http.ResponseWriter) error {
	for _, t := range tokens.All {
		if err := s.ClearCookie(ctx, w, t); err != nil {
			return err
		}
	}
	return nil
}

// JWKS returns the public key set: exactly the one RSA verification key.
// Symmetric secrets are never published.
func (s *CredentialService) JWKS(ctx context.Context) (jwtx.JWKS, error) {
	keys, err := s.KeySet(ctx)
	if err != nil {
		return jwtx.JWKS{}, err
	}
	return jwtx.JWKS{Keys: []jwtx.JWK{keys.PublicJWK}}, nil
}

// IssueDelegated mints a fresh short-lived credential of type t for the
// subject of an already verified session. The session token itself is
// never handed on.
func (s *CredentialService) IssueDelegated(ctx context.Context, session *jwtx.Claims, t tokens.Type) (tokens.Signed, error) {
	if t != tokens.DBAccess && t != tokens.Sync {
		return tokens.Signed{}, fmt.Errorf("%w: %s", ErrNotDelegable, t)
	}
	if session == nil || session.Subject == "" {
		return tokens.Signed{}, ErrNoSession
	}

	signed, err := s.SignTokenWithPayload(ctx, session.Subject, t)
	if err != nil {
		return tokens.Signed{}, err
	}

	slogx.FromContext(ctx).Debug("delegated credential issued",
		"type", t.String(),
		"sub", session.Subject,
		"jti", signed.Claims.ID,
	)
	return signed, nil
}
