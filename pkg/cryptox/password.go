package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrPasswordMismatch = errors.New("cryptox: password does not match")
	ErrInvalidHash      = errors.New("cryptox: invalid hash format")
)

// Argon2Params are the Argon2id cost parameters.
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
	SaltLength  int
}

// DefaultArgon2Params follows the OWASP minimum for Argon2id.
var DefaultArgon2Params = Argon2Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	KeyLength:   32,
	SaltLength:  16,
}

// PasswordHasher hashes and verifies passwords as PHC-format Argon2id
// strings. The pepper is appended to every password and never stored
// alongside the hash.
type PasswordHasher struct {
	Pepper string
	Params Argon2Params

	dummy string
}

// NewPasswordHasher returns a hasher with the default parameters.
func NewPasswordHasher(pepper string) (*PasswordHasher, error) {
	h := &PasswordHasher{Pepper: pepper, Params: DefaultArgon2Params}

	dummy, err := h.Hash("dummy password for unknown users")
	if err != nil {
		return nil, err
	}
	h.dummy = dummy
	return h, nil
}

// Hash returns the PHC encoding of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	p := h.Params
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	sum := argon2.IDKey([]byte(password+h.Pepper), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Iterations,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify compares password against a PHC hash in constant time. The cost
// parameters come from the hash, so old hashes keep verifying after the
// defaults change.
func (h *PasswordHasher) Verify(password, encoded string) error {
	d, err := decodeHash(encoded)
	if err != nil {
		return err
	}

	got := argon2.IDKey([]byte(password+h.Pepper), d.salt, d.iterations, d.memory, d.parallelism, uint32(len(d.sum))) // #nosec G115

	if subtle.ConstantTimeCompare(got, d.sum) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

// NeedsRehash reports whether encoded was made with cost parameters other
// than h.Params. Unparseable hashes report false; Verify rejects them.
func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	d, err := decodeHash(encoded)
	if err != nil {
		return false
	}
	p := h.Params
	return d.memory != p.Memory ||
		d.iterations != p.Iterations ||
		d.parallelism != p.Parallelism ||
		uint32(len(d.sum)) != p.KeyLength || // #nosec G115
		len(d.salt) != p.SaltLength
}

type decodedHash struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	sum         []byte
}

func decodeHash(encoded string) (decodedHash, error) {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return decodedHash{}, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return decodedHash{}, fmt.Errorf("%w: version %q", ErrInvalidHash, parts[2])
	}

	var d decodedHash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &d.memory, &d.iterations, &d.parallelism); err != nil {
		return decodedHash{}, fmt.Errorf("%w: parameters: %w", ErrInvalidHash, err)
	}

	var err error
	if d.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return decodedHash{}, fmt.Errorf("%w: salt: %w", ErrInvalidHash, err)
	}
	if d.sum, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return decodedHash{}, fmt.Errorf("%w: hash: %w", ErrInvalidHash, err)
	}
	return d, nil
}

// VerifyDummy burns the same time as a real Verify. Call it when the user
// does not exist so response timing does not reveal which emails are
// registered.
func (h *PasswordHasher) VerifyDummy(password string) {
	_ = h.Verify(password, h.dummy)
}
