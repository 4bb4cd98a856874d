package srcprovider

import (
	"fmt"
	"go/token"
	"go/types"
	"strings"

	"typescope/pkg/typesys"
)

// stype adapts a declared *types.TypeName to typesys.Type
type stype struct {
	obj    *types.TypeName
	consts []string
	ctors  []*types.Func
}

func (s *stype) Name() string      { return s.obj.Name() }
func (s *stype) Namespace() string { return s.obj.Pkg().Path() }
func (s *stype) FullName() string  { return s.obj.Pkg().Path() + "." + s.obj.Name() }

func (s *stype) Kind() typesys.Kind {
	if len(s.consts) > 0 {
		return typesys.KindEnum
	}
	switch s.obj.Type().Underlying().(type) {
	case *types.Struct:
		return typesys.KindStruct
	case *types.Interface:
		return typesys.KindInterface
	default:
		return typesys.KindOther
	}
}

func (s *stype) Base() typesys.Ref {
	st, ok := s.obj.Type().Underlying().(*types.Struct)
	if !ok {
		return nil
	}
	for i := 0; i < st.NumFields(); i++ {
		if f := st.Field(i); f.Embedded() {
			t := f.Type()
			if ptr, ok := t.(*types.Pointer); ok {
				t = ptr.Elem()
			}
			return refOf(t)
		}
	}
	return nil
}

func (s *stype) Fields() ([]typesys.Field, error) {
	if len(s.consts) > 0 {
		self := refOf(s.obj.Type())
		fields := make([]typesys.Field, 0, len(s.consts))
		for _, name := range s.consts {
			fields = append(fields, typesys.Field{
				Name:     name,
				Type:     self,
				Public:   token.IsExported(name),
				Static:   true,
				ReadOnly: true,
			})
		}
		return fields, nil
	}

	st, ok := s.obj.Type().Underlying().(*types.Struct)
	if !ok {
		return nil, nil
	}

	fields := make([]typesys.Field, 0, st.NumFields())
	skippedBase := false
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if invalid(f.Type()) {
			return nil, fmt.Errorf("field %s of %s has an invalid type", f.Name(), s.obj.Name())
		}
		if f.Embedded() && !skippedBase {
			skippedBase = true
			continue
		}
		fields = append(fields, typesys.Field{
			Name:   f.Name(),
			Type:   refOf(f.Type()),
			Public: f.Exported(),
		})
	}
	return fields, nil
}

func (s *stype) Methods() ([]typesys.Method, error) {
	methods, _, err := s.accessors()
	return methods, err
}

func (s *stype) Properties() ([]typesys.Property, error) {
	_, props, err := s.accessors()
	return props, err
}

func (s *stype) accessors() ([]typesys.Method, []typesys.Property, error) {
	declared, err := s.declaredMethods()
	if err != nil {
		return nil, nil, err
	}

	var fieldNames []string
	if st, ok := s.obj.Type().Underlying().(*types.Struct); ok {
		for i := 0; i < st.NumFields(); i++ {
			if f := st.Field(i); !f.Exported() {
				fieldNames = append(fieldNames, f.Name())
			}
		}
	}
	methods, props := typesys.PairAccessors(declared, fieldNames)
	return methods, props, nil
}

func (s *stype) declaredMethods() ([]typesys.Method, error) {
	var funcs []*types.Func
	if iface, ok := s.obj.Type().Underlying().(*types.Interface); ok {
		for i := 0; i < iface.NumExplicitMethods(); i++ {
			funcs = append(funcs, iface.ExplicitMethod(i))
		}
	} else if named, ok := s.obj.Type().(*types.Named); ok {
		for i := 0; i < named.NumMethods(); i++ {
			funcs = append(funcs, named.Method(i))
		}
	}

	methods := make([]typesys.Method, 0, len(funcs)+len(s.ctors))
	for _, fn := range funcs {
		m, err := methodOf(fn, false)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	for _, fn := range s.ctors {
		m, err := methodOf(fn, true)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, nil
}

func methodOf(fn *types.Func, static bool) (typesys.Method, error) {
	sig, ok := fn.Type().(*types.Signature)
	if !ok {
		return typesys.Method{}, fmt.Errorf("method %s has no signature", fn.Name())
	}

	params := make([]typesys.Param, 0, sig.Params().Len())
	for i := 0; i < sig.Params().Len(); i++ {
		v := sig.Params().At(i)
		if invalid(v.Type()) {
			return typesys.Method{}, fmt.Errorf("parameter %d of %s has an invalid type", i, fn.Name())
		}
		name := v.Name()
		if name == "" || name == "_" {
			name = fmt.Sprintf("param%d", i)
		}
		ref := refOf(v.Type())
		if sig.Variadic() && i == sig.Params().Len()-1 {
			if slice, ok := v.Type().(*types.Slice); ok {
				ref = typesys.NamedRef{Full: "..." + typesys.RenderName(refOf(slice.Elem()))}
			}
		}
		params = append(params, typesys.Param{Name: name, Type: ref})
	}

	var ret typesys.Ref
	switch sig.Results().Len() {
	case 0:
	case 1:
		ret = refOf(sig.Results().At(0).Type())
	default:
		names := make([]string, sig.Results().Len())
		for i := range names {
			names[i] = typesys.RenderName(refOf(sig.Results().At(i).Type()))
		}
		ret = typesys.NamedRef{Full: "(" + strings.Join(names, ", ") + ")"}
	}

	return typesys.Method{
		Name:   fn.Name(),
		Return: ret,
		Public: fn.Exported(),
		Static: static,
		Params: params,
	}, nil
}

func refOf(t types.Type) typesys.Ref {
	switch t := t.(type) {
	case nil:
		return nil
	case *types.Alias:
		return refOf(types.Unalias(t))
	case *types.Named:
		obj := t.Obj()
		full := obj.Name()
		if obj.Pkg() != nil {
			full = obj.Pkg().Path() + "." + obj.Name()
		}
		ref := typesys.NamedRef{Short: obj.Name(), Full: full}
		if args := t.TypeArgs(); args != nil {
			for i := 0; i < args.Len(); i++ {
				ref.Args = append(ref.Args, refOf(args.At(i)))
			}
		}
		return ref
	case *types.TypeParam:
		return typesys.NamedRef{Short: t.Obj().Name()}
	case *types.Basic:
		return typesys.NamedRef{Short: t.Name(), Full: t.Name()}
	case *types.Pointer:
		return typesys.NamedRef{Full: "*" + typesys.RenderName(refOf(t.Elem()))}
	case *types.Slice:
		return typesys.NamedRef{Full: "[]" + typesys.RenderName(refOf(t.Elem()))}
	case *types.Array:
		return typesys.NamedRef{Full: fmt.Sprintf("[%d]%s", t.Len(), typesys.RenderName(refOf(t.Elem())))}
	case *types.Map:
		return typesys.NamedRef{Full: "map[" + typesys.RenderName(refOf(t.Key())) + "]" + typesys.RenderName(refOf(t.Elem()))}
	case *types.Chan:
		return typesys.NamedRef{Full: "chan " + typesys.RenderName(refOf(t.Elem()))}
	default:
		return typesys.NamedRef{Full: types.TypeString(t, func(p *types.Package) string { return p.Path() })}
	}
}

func invalid(t types.Type) bool {
	basic, ok := t.(*types.Basic)
	return ok && basic.Kind() == types.Invalid
}
