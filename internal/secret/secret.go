// Package secret provisions and checks the deployment secret shared between
// the agent and whoever triggers deploys.
package secret

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Generate writes a fresh random secret to path unless the file already
// exists, and returns the secret stored at path either way.
func Generate(path string) (string, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	switch {
	case err == nil:
		value := uuid.New().String()
		if _, err := f.WriteString(value); err != nil {
			f.Close()
			return "", fmt.Errorf("write secret %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close secret %s: %w", path, err)
		}
		return value, nil
	case errors.Is(err, fs.ErrExist):
		return Load(path)
	default:
		return "", fmt.Errorf("create secret %s: %w", path, err)
	}
}

// Load reads the secret stored at path. Surrounding whitespace is ignored.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read secret %s: %w", path, err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("secret file %s is empty", path)
	}
	return value, nil
}

// Equal compares a presented secret with the expected one byte for byte in
// constant time. An empty expected secret matches nothing.
func Equal(expected, presented string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}
