package jwtx

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

const (
	// MinRSABits is the smallest accepted RSA modulus.
	MinRSABits = 2048

	// MinSecretBytes is the smallest accepted HMAC secret after decoding.
	MinSecretBytes = 32
)

var (
	ErrKeyMissing       = errors.New("jwtx: key is empty")
	ErrKeyEncoding      = errors.New("jwtx: key is not valid base64")
	ErrKeyPEM           = errors.New("jwtx: invalid PEM")
	ErrKeyNotRSA        = errors.New("jwtx: not an RSA key")
	ErrKeyTooSmall      = errors.New("jwtx: RSA key too small")
	ErrKeyMismatch      = errors.New("jwtx: public key does not match private key")
	ErrSecretTooShort   = errors.New("jwtx: secret too short")
	ErrSecretsIdentical = errors.New("jwtx: refresh and delegated secrets must differ")
)

// KeySource is the raw, still-encoded key material as it arrives from the
// environment.
type KeySource struct {
	PrivateKey      string // base64 PEM (PKCS1 or PKCS8)
	PublicKey       string // base64 PEM (PKIX or PKCS1)
	RefreshSecret   string // base64
	DelegatedSecret string // base64
}

// KeyMaterial is the decoded, validated form of a KeySource.
type KeyMaterial struct {
	SigningKey      *rsa.PrivateKey
	VerificationKey *rsa.PublicKey
	RefreshSecret   []byte
	DelegatedSecret []byte

	PublicJWK  JWK
	Thumbprint string
}

// KeyLoadError names the KeySource field that could not be loaded.
type KeyLoadError struct {
	Key string
	Err error
}

func (e *KeyLoadError) Error() string {
	return fmt.Sprintf("jwtx: load %s: %v", e.Key, e.Err)
}

func (e *KeyLoadError) Unwrap() error { return e.Err }

// LoadKeys decodes and validates src. It has no side effects, so calling it
// twice with the same input yields equal results.
func LoadKeys(src KeySource) (*KeyMaterial, error) {
	priv, err := parseRSAPrivateKey(src.PrivateKey)
	if err != nil {
		return nil, &KeyLoadError{Key: "PrivateKey", Err: err}
	}

	pub, err := parseRSAPublicKey(src.PublicKey)
	if err != nil {
		return nil, &KeyLoadError{Key: "PublicKey", Err: err}
	}
	if !priv.PublicKey.Equal(pub) {
		return nil, &KeyLoadError{Key: "PublicKey", Err: ErrKeyMismatch}
	}

	refresh, err := decodeSecret(src.RefreshSecret)
	if err != nil {
		return nil, &KeyLoadError{Key: "RefreshSecret", Err: err}
	}
	delegated, err := decodeSecret(src.DelegatedSecret)
	if err != nil {
		return nil, &KeyLoadError{Key: "DelegatedSecret", Err: err}
	}
	if bytes.Equal(refresh, delegated) {
		return nil, &KeyLoadError{Key: "DelegatedSecret", Err: ErrSecretsIdentical}
	}

	kid := Thumbprint(pub)

	return &KeyMaterial{
		SigningKey:      priv,
		VerificationKey: pub,
		RefreshSecret:   refresh,
		DelegatedSecret: delegated,
		PublicJWK:       NewRSAJWK(kid, "sig", "RS256", pub),
		Thumbprint:      kid,
	}, nil
}

// parseRSAPrivateKey handles both PKCS1 and PKCS8 because otherwise we will
// be chasing a bug for longer than we would be willing to admit.
func parseRSAPrivateKey(s string) (*rsa.PrivateKey, error) {
	block, err := decodePEM(s)
	if err != nil {
		return nil, err
	}

	var key *rsa.PrivateKey
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse PKCS1: %w", ErrKeyPEM, err)
		}
	case "PRIVATE KEY":
		priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse PKCS8: %w", ErrKeyPEM, err)
		}
		rk, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, ErrKeyNotRSA
		}
		key = rk
	default:
		return nil, fmt.Errorf("%w: unsupported PEM type %q", ErrKeyPEM, block.Type)
	}

	if key.N.BitLen() < MinRSABits {
		return nil, fmt.Errorf("%w: %d bits", ErrKeyTooSmall, key.N.BitLen())
	}
	return key, nil
}

func parseRSAPublicKey(s string) (*rsa.PublicKey, error) {
	block, err := decodePEM(s)
	if err != nil {
		return nil, err
	}

	var pub *rsa.PublicKey
	switch block.Type {
	case "PUBLIC KEY":
		k, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse PKIX: %w", ErrKeyPEM, err)
		}
		rk, ok := k.(*rsa.PublicKey)
		if !ok {
			return nil, ErrKeyNotRSA
		}
		pub = rk
	case "RSA PUBLIC KEY":
		pub, err = x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse PKCS1: %w", ErrKeyPEM, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported PEM type %q", ErrKeyPEM, block.Type)
	}

	if pub.N.BitLen() < MinRSABits {
		return nil, fmt.Errorf("%w: %d bits", ErrKeyTooSmall, pub.N.BitLen())
	}
	return pub, nil
}

// decodePEM accepts base64-encoded PEM, or a raw PEM string for local dev.
func decodePEM(s string) (*pem.Block, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrKeyMissing
	}

	raw := []byte(s)
	if !strings.HasPrefix(s, "-----BEGIN") {
		var err error
		if raw, err = decodeBase64(s); err != nil {
			return nil, err
		}
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, ErrKeyPEM
	}
	return block, nil
}

func decodeSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrKeyMissing
	}

	b, err := decodeBase64(s)
	if err != nil {
		return nil, err
	}
	if len(b) < MinSecretBytes {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrSecretTooShort, len(b), MinSecretBytes)
	}
	return b, nil
}

// decodeBase64 tries the padded and unpadded alphabets people tend to paste.
func decodeBase64(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, ErrKeyEncoding
}
