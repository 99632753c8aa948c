package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxIdentifierLength bounds collection names, entity keys and ids.
const maxIdentifierLength = 256

// ValidateIdentifier validates a collection name, entity key or resource id.
// Identifiers end up inside Redis keys, Mongo collection names and URL paths,
// so the rules are conservative:
//   - No empty values
//   - No control characters or null bytes
//   - No whitespace, slashes or colons (colon is the Redis key separator)
//   - Maximum length of 256 characters
func ValidateIdentifier(kind, value string) error {
	if value == "" {
		return New(ErrCodeInvalidKey, "%s cannot be empty", kind)
	}

	if len(value) > maxIdentifierLength {
		return New(ErrCodeInvalidKey, "%s too long (max %d characters)", kind, maxIdentifierLength)
	}

	for _, r := range value {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidKey, "%s contains invalid characters", kind)
		}
	}

	if strings.ContainsAny(value, "/\\:") {
		return New(ErrCodeInvalidKey, "%s cannot contain '/', '\\' or ':': %q", kind, value)
	}

	return nil
}

// collectionNameRegex matches names accepted as backend collections.
var collectionNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// ValidateCollectionName validates a backend collection name.
func ValidateCollectionName(name string) error {
	if err := ValidateIdentifier("collection name", name); err != nil {
		return err
	}

	if !collectionNameRegex.MatchString(name) {
		return New(ErrCodeInvalidKey, "invalid collection name: %q", name)
	}

	// Mongo reserves the system. prefix
	if strings.HasPrefix(name, "system.") {
		return New(ErrCodeInvalidKey, "collection name cannot use the reserved system. prefix")
	}

	return nil
}

// ValidateURL validates a backend connection URL.
// Only the scheme is checked; the drivers parse the rest.
func ValidateURL(rawURL string, schemes ...string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	for _, s := range schemes {
		if strings.HasPrefix(rawURL, s+"://") {
			return nil
		}
	}
	return New(ErrCodeInvalidInput, "URL must use one of the schemes %v", schemes)
}
