package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// SecretSize is the HMAC secret length the auth service requires.
const SecretSize = 32

// GenerateSecret returns size random bytes, standard base64 encoded. This
// is the format AUTH_REFRESH_SECRET and AUTH_DB_ACCESS_SECRET expect.
func GenerateSecret(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: secret size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: generate secret: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}
