package errors

import (
	"strings"
	"unicode"
)

// MaxPlaceNameLength bounds city and country inputs. Nominatim accepts
// arbitrarily long queries but nothing legitimate comes close to this.
const MaxPlaceNameLength = 100

// ValidatePlaceName validates a city or country name for safety and
// correctness. The field argument names the offending input in errors.
//
/// The validation rules:
//   - No empty names (after trimming)
//   - No control characters or null bytes
//   - Maximum length of 100 characters
func ValidatePlaceName(field, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return New(ErrCodeInvalidInput, "%s cannot be empty", field)
	}

	if len(trimmed) > MaxPlaceNameLength {
		return New(ErrCodeInvalidInput, "%s too long (max %d characters)", field, MaxPlaceNameLength)
	}

	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s contains invalid control characters", field)
		}
	}

	return nil
}

// ValidateDistance checks that a map radius lies within [minDist, maxDist]
// meters. The configured bounds are echoed in the error so callers can
// surface them to users.
func ValidateDistance(distance, minDist, maxDist int) error {
	if distance < minDist || distance > maxDist {
		return New(ErrCodeInvalidDistance,
			"distance %d out of range (must be between %d and %d meters)",
			distance, minDist, maxDist)
	}
	return nil
}

// SanitizeFilename reduces a user-provided string to a safe filename
// component: letters, digits, dashes and underscores only, lowercased.
// Everything else collapses to underscores.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "poster"
	}
	return b.String()
}
