// Package secrets generates random passwords and secret values for
// provisioned accounts and env files.
package secrets

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultLength is used when no explicit length is requested.
const DefaultLength = 24

// Generate returns a random alphanumeric secret of the given length.
// Only letters and digits are used so the value survives shell quoting,
// .env files and basic auth without escaping.
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("secret length must be positive, got %d", length)
	}
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("reading random source: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}
