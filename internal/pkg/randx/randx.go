/*
Package randx generates identifiers and validates client-supplied keys.

Message ids are ULIDs so that lexical order follows creation time; session and connection
ids are random UUIDs.
*/
package randx

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const (
	// MaxRoomKeyLength bounds room keys such as "group-A" or "lab3-exp2".
	MaxRoomKeyLength = 128

	// MaxDisplayNameLength bounds display names, counted in runes.
	MaxDisplayNameLength = 64

	connectionIDPrefix = "conn_"
)

// MessageID returns a new ULID string. ulid.Make is monotonic within the process.
func MessageID() string {
	return ulid.Make().String()
}

// SessionID returns a random UUID used as a stable per-browser identity.
func SessionID() string {
	return uuid.NewString()
}

// ConnectionID returns an id for one transport connection.
func ConnectionID() string {
	return connectionIDPrefix + uuid.NewString()
}

// IsValidRoomKey reports whether key is non-empty, at most MaxRoomKeyLength bytes,
// valid UTF-8 and free of control characters and surrounding whitespace.
func IsValidRoomKey(key string) bool {
	if key == "" || len(key) > MaxRoomKeyLength || !utf8.ValidString(key) {
		return false
	}
	if strings.TrimSpace(key) != key {
		return false
	}
	return strings.IndexFunc(key, unicode.IsControl) < 0
}

// NormalizeDisplayName trims name and reports whether the result is usable.
func NormalizeDisplayName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n == 0 || n > MaxDisplayNameLength {
		return "", false
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return "", false
	}
	return name, true
}
