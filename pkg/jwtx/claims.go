package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the claims embedded in every token type. The set is kept
// small on purpose so downstream verifiers (sync backend, database proxy)
// only need to understand the registered claims plus "role".
type Claims struct {
	jwt.RegisteredClaims

	// Role the downstream system should assume for this subject,
	// e.g. "authenticated" or "db_user".
	Role string `json:"role,omitempty"`
}

// NewClaims builds claims for subject using the expiry, audience and role
// from cfg, anchored at now.
func NewClaims(cfg TokenConfig, subject string, now time.Time) Claims {
	var aud jwt.ClaimStrings
	if cfg.Audience != "" {
		aud = jwt.ClaimStrings{cfg.Audience}
	}

	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   subject,
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL())),
			ID:        NewJTI(),
		},
		Role: cfg.Role,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// HasAudience reports whether aud is one of the token audiences.
func (c *Claims) HasAudience(aud string) bool {
	return slices.Contains(c.Audience, aud)
}

// ExpiresAtTime returns exp as a time.Time, or the zero time if unset.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IssuedAtTime returns iat as a time.Time, or the zero time if unset.
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ValidateRole checks the role claim against the expected value.
func (c *Claims) ValidateRole(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Role != expected {
		return ErrRole
	}

	return nil
}

// ValidateExpiryAt ensures the token is inside its [nbf, exp) window at now.
// There is no leeway: a token whose exp equals now is expired.
func (c *Claims) ValidateExpiryAt(now time.Time) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}

	if !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}
