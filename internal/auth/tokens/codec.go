package tokens

import (
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/tally/pkg/jwtx"
)

// Signed is a freshly signed token with the claims that went into it.
type Signed struct {
	Token  string
	Claims jwtx.Claims
}

// Codec signs and verifies tokens by Type.
type Codec struct {
	Configs Configs
	Now     func() time.Time
	Logger  *slog.Logger
}

func (c Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Codec) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Sign returns a signed token of type t for subject.
func (c Codec) Sign(subject string, t Type) (string, error) {
	s, err := c.SignWithPayload(subject, t)
	if err != nil {
		return "", err
	}
	return s.Token, nil
}

// SignWithPayload is Sign but also hands back the claims.
func (c Codec) SignWithPayload(subject string, t Type) (Signed, error) {
	cfg, err := c.Configs.Get(t)
	if err != nil {
		return Signed{}, err
	}

	token, claims, err := jwtx.Sign(cfg, subject, c.now())
	if err != nil {
		return Signed{}, err
	}
	return Signed{Token: token, Claims: claims}, nil
}

// Verify checks token as type t. A token that fails verification for any
// reason yields (nil, nil); the reason is logged at debug. The error is
// only set when t itself is invalid.
func (c Codec) Verify(token string, t Type) (*jwtx.Claims, error) {
	cfg, err := c.Configs.Get(t)
	if err != nil {
		return nil, err
	}

	claims, err := jwtx.Verify(cfg, token, c.now())
	if err != nil {
		c.logger().Debug("token rejected",
			"type", t.String(),
			"reason", reason(err),
		)
		return nil, nil
	}
	return claims, nil
}

// reason trims the package prefix off a jwtx error for log output.
func reason(err error) string {
	return strings.TrimPrefix(err.Error(), "jwtx: ")
}
