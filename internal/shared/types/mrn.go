package types

import (
	"database/sql/driver"
	"fmt"
	"regexp"
)

// MRN represents a clinic medical record number: 6 to 10 digits where the
// last digit is a Luhn (mod 10) check digit.
type MRN string

var mrnRegex = regexp.MustCompile(`^\d{6,10}$`)

// ParseMRN validates and parses an MRN string
func ParseMRN(s string) (MRN, error) {
	if !mrnRegex.MatchString(s) {
		return "", fmt.Errorf("MRN must be 6 to 10 digits")
	}

	mrn := MRN(s)
	if !mrn.IsValid() {
		return "", fmt.Errorf("invalid MRN check digit")
	}

	return mrn, nil
}

// String returns the string representation
func (m MRN) String() string {
	return string(m)
}

// Masked returns a masked version for display (last 3 digits visible)
func (m MRN) Masked() string {
	if len(m) < 4 {
		return "******"
	}
	masked := make([]byte, len(m))
	for i := range masked {
		masked[i] = '*'
	}
	copy(masked[len(m)-3:], string(m)[len(m)-3:])
	return string(masked)
}

// IsValid validates the MRN check digit
func (m MRN) IsValid() bool {
	if len(m) < 6 || len(m) > 10 {
		return false
	}

	// Luhn checksum over all digits, rightmost is the check digit
	sum := 0
	double := false
	for i := len(m) - 1; i >= 0; i-- {
		d := int(m[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}

	return sum%10 == 0
}

// IsZero checks if the MRN is empty
func (m MRN) IsZero() bool {
	return m == ""
}

// Value implements driver.Valuer; empty MRNs store as NULL so the
// unique index only applies to assigned numbers
func (m MRN) Value() (driver.Value, error) {
	if m.IsZero() {
		return nil, nil
	}
	return string(m), nil
}

// Scan implements sql.Scanner for database deserialization
func (m *MRN) Scan(value interface{}) error {
	if value == nil {
		*m = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*m = MRN(v)
	case []byte:
		*m = MRN(string(v))
	default:
		return fmt.Errorf("cannot scan %T into MRN", value)
	}
	return nil
}
