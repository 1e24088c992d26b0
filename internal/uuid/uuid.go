// Package uuid generates time-ordered identifiers for database records.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New returns a UUIDv7 string. UUIDv7 is time-ordered, which keeps primary
// key indexes append-mostly. Falls back to a random UUIDv4 if the system
// entropy source is unavailable.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		return googleuuid.New().String()
	}
	return id.String()
}

// IsValid reports whether s parses as a UUID.
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}

// Short returns the last 12 characters of a UUID, uppercased, for use in
// human-readable transaction references. The tail of a UUIDv7 is random,
// unlike its timestamp prefix, so shortened IDs minted close together stay
// distinct. Returns the whole string when it is shorter than 12 characters.
func Short(s string) string {
	if len(s) < 12 {
		return upper(s)
	}
	return upper(s[len(s)-12:])
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
