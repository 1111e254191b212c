package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrRole         = errors.New("jwtx: role mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// Verify parses tokenStr and checks it against cfg at now. Every failure is
// reported as one of the sentinel errors above; callers that only need a
// yes/no answer can treat any error as "not authenticated".
//
// Clock-skew tolerance is zero: the token is valid while now < exp.
func Verify(cfg TokenConfig, tokenStr string, now time.Time) (*Claims, error) {
	if cfg.Method == nil || cfg.VerificationKey == nil {
		return nil, errors.New("jwtx: config cannot verify")
	}

	keyFn := func(t *jwt.Token) (any, error) {
		if cfg.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != cfg.KeyID {
				return nil, ErrUnknownKID
			}
		}
		return cfg.VerificationKey, nil
	}

	return parse(tokenStr, cfg.Alg(), cfg.Issuer, cfg.Audience, cfg.Role, now, keyFn)
}

// parse is shared by Verify and KeySet verification.
func parse(
	tokenStr, alg, issuer, audience, role string,
	now time.Time,
	keyFn jwt.Keyfunc,
) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	// Pin the algorithm in the keyfunc so a mismatch surfaces as ErrAlgMismatch.
	pinned := func(t *jwt.Token) (any, error) {
		if t.Method == nil || t.Method.Alg() != alg {
			return nil, ErrAlgMismatch
		}
		return keyFn(t)
	}

	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenStr, &Claims{}, pinned)
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidClaim
	}

	// Now check the claim requirements the parser doesn't know about
	if err := claims.ValidateRole(role); err != nil {
		return nil, err
	}
	if err := claims.ValidateExpiryAt(now); err != nil {
		return nil, err
	}

	return claims, nil
}

// classify maps golang-jwt errors onto our sentinels.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrUnknownKID):
		return ErrUnknownKID
	case errors.Is(err, ErrNoKey):
		return ErrUnknownKID
	case errors.Is(err, ErrAlgMismatch):
		return ErrAlgMismatch
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrAlgMismatch // unknown alg header
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrAudience
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuer
	default:
		return fmt.Errorf("%w: %w", ErrInvalidClaim, err)
	}
}
