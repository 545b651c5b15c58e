package database

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// generateUsernameBase creates a lowercase alphanumeric base from a name.
func generateUsernameBase(name string) string {
	var result []byte
	for _, c := range strings.ToLower(name) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			result = append(result, byte(c))
		}
	}
	if len(result) == 0 {
		return "player"
	}
	if len(result) > 14 {
		result = result[:14]
	}
	return string(result)
}

// GenerateUsername appends four random digits to a cleaned-up name. The
// caller handles the unique constraint and retries on collision.
func GenerateUsername(name string) string {
	return fmt.Sprintf("%s%04d", generateUsernameBase(name), rand.IntN(10000))
}
