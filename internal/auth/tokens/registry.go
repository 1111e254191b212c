package tokens

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/aussiebroadwan/tally/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvariant marks a programming error rather than bad input.
	ErrInvariant = errors.New("tokens: invariant violation")

	ErrKeysNotInitialized = fmt.Errorf("%w: key material not initialized", ErrInvariant)
	ErrUnknownType        = fmt.Errorf("%w: unknown token type", ErrInvariant)
)

// Audiences and roles per token type. Downstream verifiers match on these.
const (
	AudienceAccess   = "tally"
	AudienceRefresh  = "tally-refresh"
	AudienceDBAccess = "tally-db"
	AudienceSync     = "tally-sync"

	RoleAccess   = "authenticated"
	RoleRefresh  = "refresh"
	RoleDBAccess = "db_user"
	RoleSync     = "sync_user"
)

// Env holds the raw token settings read from the environment. Key strings
// and expirations are kept unparsed; NewConfigs and jwtx.LoadKeys turn them
// into typed values and report what is wrong.
type Env struct {
	Issuer string `env:"AUTH_ISSUER" envDefault:"tally"`

	PrivateKey      string `env:"AUTH_PRIVATE_KEY"`
	PublicKey       string `env:"AUTH_PUBLIC_KEY"`
	RefreshSecret   string `env:"AUTH_REFRESH_SECRET"`
	DelegatedSecret string `env:"AUTH_DB_ACCESS_SECRET"`

	AccessExpiration   string `env:"AUTH_ACCESS_EXPIRATION" envDefault:"900"`
	RefreshExpiration  string `env:"AUTH_REFRESH_EXPIRATION" envDefault:"604800"`
	DBAccessExpiration string `env:"AUTH_DB_ACCESS_EXPIRATION" envDefault:"300"`
	SyncExpiration     string `env:"AUTH_SYNC_EXPIRATION" envDefault:"300"`
}

// KeySource extracts the key strings for jwtx.LoadKeys.
func (e Env) KeySource() jwtx.KeySource {
	return jwtx.KeySource{
		PrivateKey:      e.PrivateKey,
		PublicKey:       e.PublicKey,
		RefreshSecret:   e.RefreshSecret,
		DelegatedSecret: e.DelegatedSecret,
	}
}

// ConfigError reports an expiration setting that is not a positive integer.
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("tokens: invalid %s=%q: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Configs is the resolved per-type configuration table.
type Configs struct {
	byType map[Type]jwtx.TokenConfig
}

// Get returns the config for t.
func (c Configs) Get(t Type) (jwtx.TokenConfig, error) {
	cfg, ok := c.byType[t]
	if !ok {
		return jwtx.TokenConfig{}, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	return cfg, nil
}

type expirySetting struct {
	typ      Type
	field    string
	raw      func(Env) string
	fallback int64
}

var table = []expirySetting{
	{Access, "AUTH_ACCESS_EXPIRATION", func(e Env) string { return e.AccessExpiration }, 900},
	{Refresh, "AUTH_REFRESH_EXPIRATION", func(e Env) string { return e.RefreshExpiration }, 604800},
	{DBAccess, "AUTH_DB_ACCESS_EXPIRATION", func(e Env) string { return e.DBAccessExpiration }, 300},
	{Sync, "AUTH_SYNC_EXPIRATION", func(e Env) string { return e.SyncExpiration }, 300},
}

// NewConfigs builds the table from loaded keys and env. It is pure: it
// does not load keys itself and holds no state.
func NewConfigs(keys *jwtx.KeyMaterial, env Env) (Configs, error) {
	if keys == nil {
		return Configs{}, ErrKeysNotInitialized
	}

	byType := make(map[Type]jwtx.TokenConfig, len(table))
	for _, s := range table {
		exp, err := parseExpiration(s.field, s.raw(env), s.fallback)
		if err != nil {
			return Configs{}, err
		}

		cfg := jwtx.TokenConfig{
			Issuer:            env.Issuer,
			CookieName:        s.typ.CookieName(),
			ExpirationSeconds: exp,
		}

		switch s.typ {
		case Access:
			cfg = asymmetric(cfg, keys)
			cfg.Audience, cfg.Role = AudienceAccess, RoleAccess
		case Refresh:
			cfg = symmetric(cfg, keys.RefreshSecret)
			cfg.Audience, cfg.Role = AudienceRefresh, RoleRefresh
		case DBAccess:
			cfg = symmetric(cfg, keys.DelegatedSecret)
			cfg.Audience, cfg.Role = AudienceDBAccess, RoleDBAccess
		case Sync:
			cfg = asymmetric(cfg, keys)
			cfg.Audience, cfg.Role = AudienceSync, RoleSync
		}

		byType[s.typ] = cfg
	}

	return Configs{byType: byType}, nil
}

func asymmetric(cfg jwtx.TokenConfig, keys *jwtx.KeyMaterial) jwtx.TokenConfig {
	cfg.Method = jwt.SigningMethodRS256
	cfg.SigningKey = keys.SigningKey
	cfg.VerificationKey = keys.VerificationKey
	cfg.KeyID = keys.Thumbprint
	return cfg
}

func symmetric(cfg jwtx.TokenConfig, secret []byte) jwtx.TokenConfig {
	cfg.Method = jwt.SigningMethodHS256
	cfg.SigningKey = secret
	cfg.VerificationKey = secret
	return cfg
}

func parseExpiration(field, raw string, fallback int64) (int64, error) {
	if raw == "" {
		return fallback, nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &ConfigError{Field: field, Value: raw, Err: err}
	}
	if n <= 0 {
		return 0, &ConfigError{Field: field, Value: raw, Err: errors.New("must be positive")}
	}
	return n, nil
}
