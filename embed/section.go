package embed

import (
	"strings"
)

// FormatVersion is written into every payload; readers reject others.
const FormatVersion uint16 = 1

// DefaultPrefix starts every section this package writes.
const DefaultPrefix = "wasmbind."

// Kind selects the section family.
type Kind string

const (
	KindFunction Kind = "fn"
	KindRecord   Kind = "rec"
	KindExtern   Kind = "ext"
)

// SectionName returns the custom section name for a declaration.
func SectionName(prefix string, kind Kind, name string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + string(kind) + "." + Sanitize(name)
}

// Sanitize replaces every byte outside [A-Za-z0-9_] with '_'.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// splitSectionName returns the kind of a section under prefix.
func splitSectionName(prefix, name string) (Kind, string, bool) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return "", "", false
	}
	kind, sanitized, ok := strings.Cut(rest, ".")
	if !ok {
		return "", "", false
	}
	return Kind(kind), sanitized, true
}
