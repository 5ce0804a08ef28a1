package util

import (
	"strings"

	"github.com/google/uuid"
)

// GenUUID generates a new UUID string.
func GenUUID() string {
	return uuid.NewString()
}

// HasPrefixes returns true if the string s has any of the given prefixes.
func HasPrefixes(src string, prefixes ...string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(src, prefix) {
			return true
		}
	}
	return false
}

// ValidateUsername returns true if the username is a valid account name:
// 3-32 characters, lowercase letters, digits, dots, hyphens and underscores.
func ValidateUsername(username string) bool {
	if len(username) < 3 || len(username) > 32 {
		return false
	}
	for _, r := range username {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_'
		if !ok {
			return false
		}
	}
	return true
}
