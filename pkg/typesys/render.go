package typesys

import (
	"strings"
)

// VoidName is the rendering of an absent type, e.g. a method without results.
const VoidName = "void"

// RenderName renders a type reference for the snapshot.
//
// A nil ref renders as "void". A generic ref renders as Outer<A, B> where
// Outer is the short name with any arity marker stripped and each argument
// is rendered by the same rule. Other refs render as their full name, or
// their short name when no full name is known.
func RenderName(r Ref) string {
	if r == nil {
		return VoidName
	}

	if args := r.GenericArgs(); len(args) > 0 {
		outer := r.Name()
		if outer == "" {
			outer = shortName(r.FullName())
		}
		rendered := make([]string, len(args))
		for i, arg := range args {
			rendered[i] = RenderName(arg)
		}
		return StripArity(outer) + "<" + strings.Join(rendered, ", ") + ">"
	}

	if full := r.FullName(); full != "" {
		return full
	}
	return r.Name()
}

// StripArity removes a generic arity marker from a type name: a trailing
// backtick-and-digits suffix ("List`1") or a bracketed type-parameter list
// ("Pair[K,V]").
func StripArity(name string) string {
	if i := strings.IndexByte(name, '`'); i > 0 {
		return name[:i]
	}
	if strings.HasSuffix(name, "]") {
		if i := strings.IndexByte(name, '['); i > 0 {
			return name[:i]
		}
	}
	return name
}

// BaseName renders a base type reference, empty when there is no base.
func BaseName(r Ref) string {
	if r == nil {
		return ""
	}
	if full := r.FullName(); full != "" {
		return full
	}
	return r.Name()
}
