package typesys

import "strings"

// NamedRef is a plain Ref value used by providers and tests.
type NamedRef struct {
	Short string
	Full  string
	Args  []Ref
}

func (r NamedRef) Name() string       { return r.Short }
func (r NamedRef) FullName() string   { return r.Full }
func (r NamedRef) GenericArgs() []Ref { return r.Args }

// Named builds a NamedRef from a qualified name. The short name is the part
// after the last '.' or '/' outside any bracketed type-argument list.
func Named(full string, args ...Ref) NamedRef {
	return NamedRef{Short: shortName(full), Full: full, Args: args}
}

func shortName(full string) string {
	depth := 0
	cut := -1
	for i := 0; i < len(full); i++ {
		switch full[i] {
		case '[', '<':
			depth++
		case ']', '>':
			depth--
		case '.', '/':
			if depth == 0 {
				cut = i
			}
		}
	}
	return full[cut+1:]
}

// ParseGenericName splits an instantiated Go type name such as
// "pkg.Pair[int,pkg.Box[string]]" into a Ref tree. Names without a
// type-argument list come back as a plain NamedRef.
func ParseGenericName(name string) Ref {
	name = strings.TrimSpace(name)
	// "[]T" and "[N]T" are slices and arrays, "map[K]V" closes early.
	open := strings.IndexByte(name, '[')
	if open <= 0 || matchingBracket(name, open) != len(name)-1 {
		return Named(name)
	}

	outer := name[:open]
	inner := name[open+1 : len(name)-1]
	var args []Ref
	for _, part := range splitTopLevel(inner) {
		if part == "" {
			continue
		}
		args = append(args, ParseGenericName(part))
	}
	if len(args) == 0 {
		return Named(outer)
	}
	return Named(outer, args...)
}

func matchingBracket(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits on commas that are not nested inside brackets.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}
