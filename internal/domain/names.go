package domain

import (
	"regexp"

	"github.com/google/uuid"
)

// namePattern admits human-chosen entity names: a letter followed by 1-63
// letters, digits, or dashes.
var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]{1,63}$`)

// ValidName reports whether s is an admissible entity name.
func ValidName(s string) bool { return namePattern.MatchString(s) }

// ValidateName returns a typed error when the name is not admissible.
func ValidateName(s string) *Error {
	if !ValidName(s) {
		return NewErrorf(KindValidation, CodeInvalidName, "name %q", s)
	}
	return nil
}

// ParseID parses a lowercase hyphenated UUID string into an entity id.
func ParseID(s string) (uuid.UUID, *Error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, NewErrorf(KindValidation, CodeInvalidUUID, "id %q", s)
	}
	return parsed, nil
}
