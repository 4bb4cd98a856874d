package reflectprovider

import (
	"fmt"
	"go/token"
	"reflect"
	"strings"

	"typescope/pkg/typesys"
)

// rtype adapts a reflect.Type to typesys.Type
type rtype struct {
	t       reflect.Type
	members []string
}

func (r *rtype) Name() string      { return r.t.Name() }
func (r *rtype) FullName() string  { return fullName(r.t) }
func (r *rtype) Namespace() string { return r.t.PkgPath() }

func (r *rtype) Kind() typesys.Kind {
	switch {
	case r.members != nil:
		return typesys.KindEnum
	case r.t.Kind() == reflect.Struct:
		return typesys.KindStruct
	case r.t.Kind() == reflect.Interface:
		return typesys.KindInterface
	default:
		return typesys.KindOther
	}
}

// Base is the first embedded field of a struct.
func (r *rtype) Base() typesys.Ref {
	if f, ok := r.embedded(); ok {
		return refOf(deref(f.Type))
	}
	return nil
}

func (r *rtype) embedded() (reflect.StructField, bool) {
	if r.t.Kind() != reflect.Struct {
		return reflect.StructField{}, false
	}
	for i := 0; i < r.t.NumField(); i++ {
		if f := r.t.Field(i); f.Anonymous {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

func (r *rtype) Fields() ([]typesys.Field, error) {
	if r.members != nil {
		self := refOf(r.t)
		fields := make([]typesys.Field, 0, len(r.members))
		for _, name := range r.members {
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

	if r.t.Kind() != reflect.Struct {
		return nil, nil
	}

	base, hasBase := r.embedded()
	fields := make([]typesys.Field, 0, r.t.NumField())
	for i := 0; i < r.t.NumField(); i++ {
		f := r.t.Field(i)
		if hasBase && f.Index[0] == base.Index[0] {
			continue
		}
		fields = append(fields, typesys.Field{
			Name:   f.Name,
			Type:   refOf(f.Type),
			Public: f.IsExported(),
		})
	}
	return fields, nil
}

func (r *rtype) Methods() ([]typesys.Method, error) {
	methods, _ := r.accessors()
	return methods, nil
}

func (r *rtype) Properties() ([]typesys.Property, error) {
	_, props := r.accessors()
	return props, nil
}

func (r *rtype) accessors() ([]typesys.Method, []typesys.Property) {
	var fieldNames []string
	if r.t.Kind() == reflect.Struct {
		for i := 0; i < r.t.NumField(); i++ {
			if f := r.t.Field(i); !f.IsExported() {
				fieldNames = append(fieldNames, f.Name)
			}
		}
	}
	return typesys.PairAccessors(r.declaredMethods(), fieldNames)
}

// declaredMethods lists the exported methods of T and *T, leaving out those
// promoted from embedded fields.
func (r *rtype) declaredMethods() []typesys.Method {
	set := r.t
	receiver := 0
	if r.t.Kind() != reflect.Interface {
		set = reflect.PointerTo(r.t)
		receiver = 1
	}

	methods := make([]typesys.Method, 0, set.NumMethod())
	for i := 0; i < set.NumMethod(); i++ {
		m := set.Method(i)
		if r.promoted(m.Name) {
			continue
		}

		params := make([]typesys.Param, 0, m.Type.NumIn()-receiver)
		for j := receiver; j < m.Type.NumIn(); j++ {
			params = append(params, typesys.Param{
				Name: fmt.Sprintf("param%d", j-receiver),
				Type: refOf(m.Type.In(j)),
			})
		}

		methods = append(methods, typesys.Method{
			Name:   m.Name,
			Return: resultsOf(m.Type),
			Public: true,
			Params: params,
		})
	}
	return methods
}

func (r *rtype) promoted(name string) bool {
	if r.t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < r.t.NumField(); i++ {
		f := r.t.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		if ft.Kind() != reflect.Interface && ft.Kind() != reflect.Pointer {
			ft = reflect.PointerTo(ft)
		}
		if _, ok := ft.MethodByName(name); ok {
			return true
		}
	}
	return false
}

func resultsOf(ft reflect.Type) typesys.Ref {
	switch ft.NumOut() {
	case 0:
		return nil
	case 1:
		return refOf(ft.Out(0))
	}
	names := make([]string, ft.NumOut())
	for i := range names {
		names[i] = typesys.RenderName(refOf(ft.Out(i)))
	}
	return typesys.NamedRef{Full: "(" + strings.Join(names, ", ") + ")"}
}

// refOf converts a reflect.Type to a Ref. Named instantiations keep their
// type arguments; composite types are spelled out with rendered elements.
func refOf(t reflect.Type) typesys.Ref {
	if t == nil {
		return nil
	}
	if t.Name() != "" {
		full := fullName(t)
		if strings.Contains(t.Name(), "[") {
			return typesys.ParseGenericName(full)
		}
		return typesys.NamedRef{Short: t.Name(), Full: full}
	}

	var spelled string
	switch t.Kind() {
	case reflect.Pointer:
		spelled = "*" + typesys.RenderName(refOf(t.Elem()))
	case reflect.Slice:
		spelled = "[]" + typesys.RenderName(refOf(t.Elem()))
	case reflect.Array:
		spelled = fmt.Sprintf("[%d]%s", t.Len(), typesys.RenderName(refOf(t.Elem())))
	case reflect.Map:
		spelled = "map[" + typesys.RenderName(refOf(t.Key())) + "]" + typesys.RenderName(refOf(t.Elem()))
	case reflect.Chan:
		spelled = "chan " + typesys.RenderName(refOf(t.Elem()))
	default:
		spelled = t.String()
	}
	return typesys.NamedRef{Full: spelled}
}

func fullName(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

func deref(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}
