// Package srcprovider exposes the declared types of a Go package loaded from source.
package srcprovider

import (
	"context"
	"errors"
	"fmt"
	"go/types"
	"strings"
	"sync"

	"golang.org/x/tools/go/packages"

	"typescope/pkg/typesys"
)

const loadMode = packages.NeedName | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedSyntax

// Provider loads one package on every enumeration.
type Provider struct {
	dir     string
	pattern string

	mu   sync.RWMutex
	unit string
}

// New creates a provider for the package matched by pattern, resolved from dir.
func New(dir, pattern string) *Provider {
	if pattern == "" {
		pattern = "."
	}
	return &Provider{dir: dir, pattern: pattern}
}

// UnitName returns the package path once loaded, the pattern before that.
func (p *Provider) UnitName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.unit != "" {
		return p.unit
	}
	return p.pattern
}

// Types loads the package and returns every type declared in its scope,
// sorted by name. Type-check errors that leave a usable package produce a
// partial enumeration.
func (p *Provider) Types(ctx context.Context) ([]typesys.Type, error) {
	cfg := &packages.Config{
		Mode:    loadMode,
		Dir:     p.dir,
		Context: ctx,
		Tests:   false,
	}
	pkgs, err := packages.Load(cfg, p.pattern)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", p.pattern, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("load %s: no packages matched", p.pattern)
	}

	pkg := pkgs[0]
	if pkg.Types == nil || pkg.Types.Scope() == nil {
		return nil, fmt.Errorf("load %s: no type information", p.pattern)
	}

	p.mu.Lock()
	p.unit = pkg.PkgPath
	p.mu.Unlock()

	found := collect(pkg.Types)
	if len(pkg.Errors) == 0 {
		return found, nil
	}

	errs := make([]error, 0, len(pkg.Errors))
	for _, e := range pkg.Errors {
		errs = append(errs, e)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("load %s: %w", p.pattern, errors.Join(errs...))
	}
	return found, &typesys.PartialEnumerationError{Unit: pkg.PkgPath, Resolved: len(found), Errs: errs}
}

// collect walks the package scope once, attaching enum constants and
// New* constructors to the types they belong to.
func collect(pkg *types.Package) []typesys.Type {
	scope := pkg.Scope()
	consts := make(map[*types.TypeName][]string)
	ctors := make(map[*types.TypeName][]*types.Func)

	for _, name := range scope.Names() {
		switch obj := scope.Lookup(name).(type) {
		case *types.Const:
			if tn := localNamed(pkg, obj.Type()); tn != nil {
				consts[tn] = append(consts[tn], obj.Name())
			}
		case *types.Func:
			if tn := constructed(pkg, obj); tn != nil {
				ctors[tn] = append(ctors[tn], obj)
			}
		}
	}

	var found []typesys.Type
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || tn.IsAlias() {
			continue
		}
		found = append(found, &stype{obj: tn, consts: consts[tn], ctors: ctors[tn]})
	}
	return found
}

func localNamed(pkg *types.Package, t types.Type) *types.TypeName {
	named, ok := t.(*types.Named)
	if !ok || named.Obj().Pkg() != pkg {
		return nil
	}
	if basic, ok := named.Underlying().(*types.Basic); !ok || basic.Info()&types.IsInteger == 0 {
		return nil
	}
	return named.Obj()
}

// constructed reports the local type a New* function returns, as T or *T.
func constructed(pkg *types.Package, fn *types.Func) *types.TypeName {
	if !strings.HasPrefix(fn.Name(), "New") {
		return nil
	}
	sig, ok := fn.Type().(*types.Signature)
	if !ok || sig.Recv() != nil || sig.Results().Len() == 0 {
		return nil
	}
	t := sig.Results().At(0).Type()
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	named, ok := t.(*types.Named)
	if !ok || named.Obj().Pkg() != pkg {
		return nil
	}
	return named.Obj()
}
