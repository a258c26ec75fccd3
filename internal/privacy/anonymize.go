// Package privacy implements the data-protection obligations around
// patient records: anonymization for display and export, hashing for
// linkage without identity, and the retention report that flags records
// past the retention window.
package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// AnonymizeName masks each name part down to its first letter:
// "John Doe" becomes "J*** D***".
func AnonymizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	parts := strings.Fields(name)
	masked := make([]string, len(parts))
	for i, p := range parts {
		masked[i] = string([]rune(p)[0]) + "***"
	}
	return strings.Join(masked, " ")
}

// AnonymizeEmail keeps the first character of the local part and the full
// domain: "john@example.com" becomes "j***@example.com".
func AnonymizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	return string([]rune(email)[0]) + "***@" + email[at+1:]
}

// AnonymizePhone keeps the area code and masks the rest:
// "555-123-4567" becomes "555-***-****".
func AnonymizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	parts := strings.Split(phone, "-")
	if len(parts) >= 3 {
		return parts[0] + "-***-****"
	}

	// No separators to preserve, mask everything but a short prefix
	runes := []rune(phone)
	if len(runes) <= 3 {
		return "***-****"
	}
	return string(runes[:3]) + "-***-****"
}

// HashPersonalData returns the SHA-256 hex digest of a personal
// identifier, usable for linkage without revealing the value.
func HashPersonalData(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
