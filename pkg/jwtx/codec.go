package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenConfig is everything needed to sign and verify one kind of token.
// Asymmetric configs carry a private signing key and the matching public
// verification key plus a KeyID for the header; symmetric (HMAC) configs
// use the same secret for both.
type TokenConfig struct {
	Method          jwt.SigningMethod
	SigningKey      any
	VerificationKey any

	// Issuer is written to and enforced on "iss". Empty disables the check.
	Issuer string

	// Audience and Role are embedded at sign time and checked on verify.
	Audience string
	Role     string

	// KeyID is set as the "kid" header and required to match on verify.
	// Empty for symmetric types whose only verifier is this service.
	KeyID string

	// CookieName is the HTTP cookie this token type travels in.
	CookieName string

	ExpirationSeconds int64
}

// TTL returns the token lifetime.
func (c TokenConfig) TTL() time.Duration {
	return time.Duration(c.ExpirationSeconds) * time.Second
}

// Alg returns the JWA name of the signing method, or "" if unset.
func (c TokenConfig) Alg() string {
	if c.Method == nil {
		return ""
	}
	return c.Method.Alg()
}

// Validate does a quick sanity check to make sure the config can sign.
func (c TokenConfig) Validate() error {
	switch {
	case c.Method == nil:
		return errors.New("jwtx: missing signing method")
	case c.SigningKey == nil || c.VerificationKey == nil:
		return errors.New("jwtx: missing key")
	case c.ExpirationSeconds <= 0:
		return errors.New("jwtx: expiration must be positive")
	}
	return nil
}

// Sign builds claims for subject from cfg at now and turns them into a
// signed JWT string. The unsigned claims are returned alongside so callers
// can report exp to clients without re-parsing the token.
func Sign(cfg TokenConfig, subject string, now time.Time) (string, Claims, error) {
	if err := cfg.Validate(); err != nil {
		return "", Claims{}, err
	}
	if subject == "" {
		return "", Claims{}, errors.New("jwtx: subject is required")
	}

	claims := NewClaims(cfg, subject, now)

	t := jwt.NewWithClaims(cfg.Method, claims)
	if cfg.KeyID != "" {
		t.Header["kid"] = cfg.KeyID
	}

	signed, err := t.SignedString(cfg.SigningKey)
	if err != nil {
		return "", Claims{}, fmt.Errorf("jwtx: sign %s: %w", cfg.Alg(), err)
	}

	return signed, claims, nil
}
