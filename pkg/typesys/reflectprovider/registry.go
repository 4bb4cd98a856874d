// Package reflectprovider exposes registered Go runtime types through typesys.
//
// Go cannot enumerate the types of a package at runtime, so the host registers
// them explicitly. Lazy entries model types that may fail to resolve; those
// failures surface as a partial enumeration rather than an error.
package reflectprovider

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"typescope/pkg/typesys"
)

type entry struct {
	name    string
	typ     reflect.Type
	resolve func() (reflect.Type, error)
	members []string
}

// Registry is a typesys.Provider over explicitly registered runtime types.
type Registry struct {
	unit string

	mu      sync.RWMutex
	entries []entry
}

// New creates an empty registry for the named unit
func New(unit string) *Registry {
	return &Registry{unit: unit}
}

// UnitName returns the unit this registry describes
func (r *Registry) UnitName() string {
	return r.unit
}

// Register adds types. Each value may be a reflect.Type, a value of the type,
// or a pointer to it; interfaces are registered as (*I)(nil).
func (r *Registry) Register(values ...any) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range values {
		t := typeOf(v)
		if t == nil {
			continue
		}
		r.entries = append(r.entries, entry{name: t.String(), typ: t})
	}
	return r
}

// RegisterEnum adds an integer type whose named constants are listed in members.
func (r *Registry) RegisterEnum(value any, members ...string) *Registry {
	t := typeOf(value)
	if t == nil {
		return r
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{name: t.String(), typ: t, members: members})
	return r
}

// RegisterLazy adds a type resolved on every enumeration. A resolver that
// fails or panics leaves the type out of that enumeration.
func (r *Registry) RegisterLazy(name string, resolve func() (reflect.Type, error)) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{name: name, resolve: resolve})
	return r
}

// Len returns the number of registered entries
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Types resolves every registered entry in registration order.
func (r *Registry) Types(ctx context.Context) ([]typesys.Type, error) {
	r.mu.RLock()
	entries := make([]entry, len(r.entries))
	copy(entries, r.entries)
	r.mu.RUnlock()

	types := make([]typesys.Type, 0, len(entries))
	var failed []error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return types, err
		}

		t := e.typ
		if t == nil {
			var err error
			t, err = resolveSafely(e)
			if err != nil {
				failed = append(failed, err)
				continue
			}
		}
		types = append(types, &rtype{t: t, members: e.members})
	}

	if len(failed) > 0 {
		return types, &typesys.PartialEnumerationError{Unit: r.unit, Resolved: len(types), Errs: failed}
	}
	return types, nil
}

func resolveSafely(e entry) (t reflect.Type, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("resolve %s: panic: %v", e.name, p)
		}
	}()

	t, err = e.resolve()
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", e.name, err)
	}
	if t == nil {
		return nil, fmt.Errorf("resolve %s: no type", e.name)
	}
	return t, nil
}

func typeOf(v any) reflect.Type {
	if t, ok := v.(reflect.Type); ok {
		return t
	}
	t := reflect.TypeOf(v)
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Pointer && t.Elem().Name() != "" {
		return t.Elem()
	}
	return t
}
