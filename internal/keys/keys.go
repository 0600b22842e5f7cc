package keys

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Service key formats. The public key is what subscribers pass around, the
// secret key is the publisher's capability token; both are random and
// unrelated, so knowing one never reveals the other.

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var publicGroups = []int{4, 6, 12, 5, 9}

var (
	publicRe = regexp.MustCompile(`^[a-zA-Z0-9]{4}-[a-zA-Z0-9]{6}-[a-zA-Z0-9]{12}-[a-zA-Z0-9]{5}-[a-zA-Z0-9]{9}$`)
	secretRe = regexp.MustCompile(`^[a-zA-Z0-9]{32}$`)
)

func randAlnum(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// GenerateSecret returns a fresh 32-character service secret key.
func GenerateSecret() (string, error) {
	return randAlnum(32)
}

// GeneratePublic returns a fresh service public key in the grouped
// 4-6-12-5-9 form.
func GeneratePublic() (string, error) {
	parts := make([]string, 0, len(publicGroups))
	for _, n := range publicGroups {
		p, err := randAlnum(n)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "-"), nil
}

// ValidPublic reports whether s looks like a service public key.
func ValidPublic(s string) bool {
	return publicRe.MatchString(s)
}

// ValidSecret reports whether s looks like a service secret key.
func ValidSecret(s string) bool {
	return secretRe.MatchString(s)
}

// ValidDevice reports whether s is a canonical client device uuid.
func ValidDevice(s string) bool {
	return len(s) == 36 && uuid.Validate(s) == nil
}
