package typesys

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type accessorPair struct {
	name   string
	getter int
	setter int
	typ    Ref
}

// PairAccessors applies Go's getter/setter convention to a declared method set.
//
// SetX(v T) with no results is a setter for X. X() T or GetX() T is a getter
// for X. A name becomes a property when both a getter and a matching setter
// exist, or when the type declares an unexported field named x that backs
// either accessor. Accessor methods are returned with SpecialName set, and
// one Property per name in first-seen order.
func PairAccessors(methods []Method, fieldNames []string) ([]Method, []Property) {
	fields := make(map[string]bool, len(fieldNames))
	for _, f := range fieldNames {
		fields[f] = true
	}

	pairs := make(map[string]*accessorPair)
	var order []string
	lookup := func(name string) *accessorPair {
		p, ok := pairs[name]
		if !ok {
			p = &accessorPair{name: name, getter: -1, setter: -1}
			pairs[name] = p
			order = append(order, name)
		}
		return p
	}

	for i, m := range methods {
		if m.Static || m.SpecialName {
			continue
		}
		if prop, ok := setterName(m); ok {
			p := lookup(prop)
			if p.setter < 0 {
				p.setter = i
			}
			continue
		}
		if prop, ok := getterName(m); ok {
			p := lookup(prop)
			// X() wins over GetX() when both are declared.
			if p.getter < 0 || m.Name == prop {
				p.getter = i
			}
		}
	}

	out := make([]Method, len(methods))
	copy(out, methods)
	var props []Property
	for _, name := range order {
		p := pairs[name]
		backed := fields[lowerFirst(name)]
		hasGetter, hasSetter := p.getter >= 0, p.setter >= 0

		if hasGetter && hasSetter {
			if RenderName(methods[p.getter].Return) != RenderName(methods[p.setter].Params[0].Type) {
				continue
			}
		} else if !backed {
			continue
		}

		prop := Property{Name: name, CanRead: hasGetter, CanWrite: hasSetter}
		if hasGetter {
			prop.Type = methods[p.getter].Return
			out[p.getter].SpecialName = true
		}
		if hasSetter {
			if prop.Type == nil {
				prop.Type = methods[p.setter].Params[0].Type
			}
			out[p.setter].SpecialName = true
		}
		props = append(props, prop)
	}

	return out, props
}

func setterName(m Method) (string, bool) {
	if m.Return != nil || len(m.Params) != 1 {
		return "", false
	}
	return exportedSuffix(m.Name, "Set")
}

func getterName(m Method) (string, bool) {
	if m.Return == nil || len(m.Params) != 0 {
		return "", false
	}
	if prop, ok := exportedSuffix(m.Name, "Get"); ok {
		return prop, true
	}
	r, _ := utf8.DecodeRuneInString(m.Name)
	if !unicode.IsUpper(r) {
		return "", false
	}
	return m.Name, true
}

func exportedSuffix(name, prefix string) (string, bool) {
	if !strings.HasPrefix(name, prefix) || len(name) == len(prefix) {
		return "", false
	}
	rest := name[len(prefix):]
	r, _ := utf8.DecodeRuneInString(rest)
	if !unicode.IsUpper(r) {
		return "", false
	}
	return rest, true
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
