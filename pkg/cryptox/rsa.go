package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// RSAKeyPair is a PEM encoded RSA key pair.
type RSAKeyPair struct {
	Private []byte // PKCS8 "PRIVATE KEY"
	Public  []byte // PKIX "PUBLIC KEY"
}

// GenerateRSAKeyPair generates a new RSA key of the given size.
// Common bit sizes are 2048, 3072, or 4096 bits.
func GenerateRSAKeyPair(bits int) (RSAKeyPair, error) {
	if bits < 2048 {
		return RSAKeyPair{}, fmt.Errorf("cryptox: RSA key size must be at least 2048 bits")
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return RSAKeyPair{}, fmt.Errorf("cryptox: failed to generate RSA key: %w", err)
	}

	priv, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return RSAKeyPair{}, fmt.Errorf("cryptox: failed to marshal PKCS8 key: %w", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return RSAKeyPair{}, fmt.Errorf("cryptox: failed to marshal public key: %w", err)
	}

	return RSAKeyPair{
		Private: pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: priv}),
		Public:  pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub}),
	}, nil
}
