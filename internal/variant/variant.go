// Package variant normalizes variant identifiers into the canonical key used
// for every inventory and subscription comparison.
package variant

import (
	"regexp"
	"strings"
	"unicode"
)

// parenGroup matches the innermost parenthetical group, e.g. "(1g)" in "1 g (1g)".
var parenGroup = regexp.MustCompile(`\(([^()]*)\)`)

// Canonical returns the canonical form of a variant hint. An empty result
// means "no variant".
//
// Legacy storage kept the display label outside the parentheses and the real
// id inside, so a non-empty parenthetical group wins over the surrounding text.
// A composite "productId:variant" key is reduced to its variant half.
func Canonical(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if m := parenGroup.FindStringSubmatch(s); m != nil {
		if inner := strings.TrimSpace(m[1]); inner != "" {
			return Canonical(inner)
		}
	}

	if i := strings.IndexByte(s, ':'); i >= 0 {
		return Canonical(s[i+1:])
	}

	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	return strings.ToLower(s)
}

// FromPtr canonicalizes an optional variant; nil is "no variant".
func FromPtr(v *string) string {
	if v == nil {
		return ""
	}
	return Canonical(*v)
}

// Ptr converts a canonical key back into its optional JSON form.
func Ptr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// SplitComposite splits a legacy "productId:variant" key. ok is false when raw
// carries no colon.
func SplitComposite(raw string) (productID, variant string, ok bool) {
	s := strings.TrimSpace(raw)
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return s, "", false
	}
	return strings.TrimSpace(s[:i]), Canonical(s[i+1:]), true
}

// ProductID trims a product identifier. Product ids are case-sensitive.
func ProductID(raw string) string {
	return strings.TrimSpace(raw)
}
