// Package jwtxtest provides throwaway key material for tests.
package jwtxtest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"sync"
	"testing"

	"github.com/aussiebroadwan/tally/pkg/jwtx"
)

var (
	once   sync.Once
	key    *rsa.PrivateKey
	keyErr error
)

// RSAKey returns a 2048-bit key generated once per test binary.
func RSAKey(tb testing.TB) *rsa.PrivateKey {
	tb.Helper()
	once.Do(func() {
		key, keyErr = rsa.GenerateKey(rand.Reader, jwtx.MinRSABits)
	})
	if keyErr != nil {
		tb.Fatalf("jwtxtest: generate RSA key: %v", keyErr)
	}
	return key
}

// PrivatePKCS1 encodes k as a PKCS1 PEM block.
func PrivatePKCS1(k *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(k),
	})
}

// PrivatePKCS8 encodes k as a PKCS8 PEM block.
func PrivatePKCS8(tb testing.TB, k *rsa.PrivateKey) []byte {
	tb.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(k)
	if err != nil {
		tb.Fatalf("jwtxtest: marshal PKCS8: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

// PublicPKIX encodes the public half of k as a PKIX PEM block.
func PublicPKIX(tb testing.TB, k *rsa.PrivateKey) []byte {
	tb.Helper()
	der, err := x509.MarshalPKIXPublicKey(&k.PublicKey)
	if err != nil {
		tb.Fatalf("jwtxtest: marshal PKIX: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

// Secret returns a base64 string decoding to n bytes of fill.
func Secret(fill byte, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = fill
	}
	return base64.StdEncoding.EncodeToString(b)
}

// KeySource returns a valid KeySource backed by RSAKey.
func KeySource(tb testing.TB) jwtx.KeySource {
	tb.Helper()
	k := RSAKey(tb)
	return jwtx.KeySource{
		PrivateKey:      base64.StdEncoding.EncodeToString(PrivatePKCS1(k)),
		PublicKey:       base64.StdEncoding.EncodeToString(PublicPKIX(tb, k)),
		RefreshSecret:   Secret('r', 32),
		DelegatedSecret: Secret('d', 32),
	}
}

// KeyMaterial loads KeySource, failing the test on error.
func KeyMaterial(tb testing.TB) *jwtx.KeyMaterial {
	tb.Helper()
	km, err := jwtx.LoadKeys(KeySource(tb))
	if err != nil {
		tb.Fatalf("jwtxtest: load keys: %v", err)
	}
	return km
}
