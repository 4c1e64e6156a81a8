package sanitizer

import "strings"

// NormalizeName collapses every run of whitespace to one space and trims
// both ends.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
