package validation

import (
	"fmt"
	"strings"
	"unicode"
)

const maxTagNameLength = 170

var reservedTagPrefixes = map[string]struct{}{
	"user":   {},
	"fav":    {},
	"pool":   {},
	"order":  {},
	"rating": {},
	"status": {},
	"id":     {},
	"md5":    {},
	"source": {},
	"date":   {},
	"score":  {},
	"tag":    {},
	"-":      {},
	"~":      {},
}

// ValidateTagName validates a tag name used in an alias or implication.
func ValidateTagName(name string) error {
	if name == "" {
		return fmt.Errorf("tag name cannot be blank")
	}
	if len(name) > maxTagNameLength {
		return fmt.Errorf("tag name %q cannot exceed %d characters", name, maxTagNameLength)
	}

	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("tag name %q cannot contain whitespace", name)
		}
		if r == ',' || r == '*' {
			return fmt.Errorf("tag name %q cannot contain %q", name, r)
		}
	}

	if strings.HasPrefix(name, "_") || strings.HasSuffix(name, "_") {
		return fmt.Errorf("tag name %q cannot start or end with an underscore", name)
	}
	if strings.HasPrefix(name, "-") || strings.HasPrefix(name, "~") {
		return fmt.Errorf("tag name %q cannot start with %q", name, name[:1])
	}

	if prefix, _, found := strings.Cut(name, ":"); found {
		if _, reserved := reservedTagPrefixes[strings.ToLower(prefix)]; reserved {
			return fmt.Errorf("tag name %q cannot begin with %s:", name, prefix)
		}
	}

	return nil
}
