package cryptox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// PepperSize is the number of random bytes in a generated pepper.
const PepperSize = 32

// LoadPepper reads the pepper at path, generating and saving a new one if
// the file does not exist yet. Losing the file invalidates every stored
// password hash.
func LoadPepper(path string) (string, error) {
	path = filepath.Clean(path)

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		pepper := strings.TrimSpace(string(b))
		if pepper == "" {
			return "", fmt.Errorf("cryptox: pepper file %s is empty", path)
		}
		return pepper, nil

	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return "", fmt.Errorf("cryptox: create pepper dir: %w", err)
		}

		pepper, err := GenerateSecret(PepperSize)
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(path, []byte(pepper), 0o600); err != nil {
			return "", fmt.Errorf("cryptox: write pepper: %w", err)
		}
		return pepper, nil

	default:
		return "", fmt.Errorf("cryptox: read pepper: %w", err)
	}
}
