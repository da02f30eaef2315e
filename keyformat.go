package ulsdk

import (
	"fmt"
	"strings"
)

// minKeyLength is the shortest key the server will ever issue,
// counted without separators.
const minKeyLength = 10

// NormalizeKey canonicalizes a user-entered license key: trims
// whitespace, uppercases, and collapses internal spaces to the dash
// separators the server issues. Returns an error for keys that cannot
// be a valid ULS key regardless of server state.
func NormalizeKey(licenseKey string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(licenseKey))
	key = strings.Join(strings.Fields(key), "-")
	if err := ValidateKeyFormat(key); err != nil {
		return "", err
	}
	return key, nil
}

// ValidateKeyFormat checks the shape of a license key locally before
// any network call: dash-separated groups of uppercase letters and
// digits, at least minKeyLength characters without separators. The
// server remains authoritative on whether the key exists.
func ValidateKeyFormat(licenseKey string) error {
	compact := strings.ReplaceAll(licenseKey, "-", "")
	if len(compact) < minKeyLength {
		return fmt.Errorf("license key too short: %d characters, need at least %d", len(compact), minKeyLength)
	}
	for _, ch := range compact {
		if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') {
			return fmt.Errorf("license key contains invalid character %q", ch)
		}
	}
	if strings.HasPrefix(licenseKey, "-") || strings.HasSuffix(licenseKey, "-") || strings.Contains(licenseKey, "--") {
		return fmt.Errorf("license key has malformed separators")
	}
	return nil
}
