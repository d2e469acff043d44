package validation

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// NormalizeEmail lower-cases and trims a recipient address. Every email that
// enters the system crosses this boundary exactly once, before any comparison
// or storage; recipients are never stored with mixed case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Name: letters, digits, spaces, hyphens, apostrophes.
var nameRe = regexp.MustCompile(`^[A-Za-z0-9\s\-']+$`)

func IsValidName(name string) bool {
	return strings.TrimSpace(name) != "" && nameRe.MatchString(name)
}
