package reflectprovider

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typescope/pkg/typesys"
)

const pkgPath = "typescope/pkg/typesys/reflectprovider"

type shape interface {
	Area() float64
	Name() string
}

type base struct {
	id int
}

func (b *base) ID() int { return b.id }

type widget struct {
	base
	Label  string
	count  int
	weight float64
}

func (w *widget) Count() int               { return w.count }
func (w *widget) SetCount(n int)           { w.count = n }
func (w *widget) Weight() float64          { return w.weight }
func (w *widget) Resize(x, y int) error    { return nil }
func (w widget) Describe() (string, error) { return w.Label, nil }

type color int

type box[T any] struct {
	Value T
}

type holder struct {
	B box[string]
	P *box[int]
	M map[string][]int
}

func find(t *testing.T, types []typesys.Type, name string) typesys.Type {
	t.Helper()
	for _, ty := range types {
		if ty.Name() == name {
			return ty
		}
	}
	t.Fatalf("type %s not found", name)
	return nil
}

func TestRegistry_Struct(t *testing.T) {
	reg := New("unit").Register(&widget{})

	types, err := reg.Types(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 1)

	w := types[0]
	assert.Equal(t, "widget", w.Name())
	assert.Equal(t, pkgPath+".widget", w.FullName())
	assert.Equal(t, pkgPath, w.Namespace())
	assert.Equal(t, typesys.KindStruct, w.Kind())
	assert.Equal(t, pkgPath+".base", typesys.BaseName(w.Base()))

	fields, err := w.Fields()
	require.NoError(t, err)
	var names []string
	for _, f := range fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Label", "count", "weight"}, names)
	assert.True(t, fields[0].Public)
	assert.False(t, fields[1].Public)

	methods, err := w.Methods()
	require.NoError(t, err)
	var plain []typesys.Method
	for _, m := range methods {
		if !m.SpecialName {
			plain = append(plain, m)
		}
	}
	require.Len(t, plain, 2)
	assert.Equal(t, "Describe", plain[0].Name)
	assert.Equal(t, "(string, error)", typesys.RenderName(plain[0].Return))
	assert.Equal(t, "Resize", plain[1].Name)
	assert.Equal(t, "error", typesys.RenderName(plain[1].Return))
	require.Len(t, plain[1].Params, 2)
	assert.Equal(t, "param0", plain[1].Params[0].Name)
	assert.Equal(t, "int", typesys.RenderName(plain[1].Params[0].Type))

	props, err := w.Properties()
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, "Count", props[0].Name)
	assert.True(t, props[0].CanRead)
	assert.True(t, props[0].CanWrite)
	assert.Equal(t, "Weight", props[1].Name)
	assert.True(t, props[1].CanRead)
	assert.False(t, props[1].CanWrite)
}

func TestRegistry_InterfaceAndEnum(t *testing.T) {
	reg := New("unit").
		Register((*shape)(nil)).
		RegisterEnum(color(0), "red", "Green")

	types, err := reg.Types(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 2)

	s := find(t, types, "shape")
	assert.Equal(t, typesys.KindInterface, s.Kind())
	assert.Nil(t, s.Base())
	methods, err := s.Methods()
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, "Area", methods[0].Name)
	assert.Equal(t, "float64", typesys.RenderName(methods[0].Return))
	assert.Empty(t, methods[0].Params)

	c := find(t, types, "color")
	assert.Equal(t, typesys.KindEnum, c.Kind())
	fields, err := c.Fields()
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, typesys.Field{Name: "red", Type: typesys.NamedRef{Short: "color", Full: pkgPath + ".color"}, Static: true, ReadOnly: true}, fields[0])
	assert.True(t, fields[1].Public)
}

func TestRegistry_GenericFieldTypes(t *testing.T) {
	types, err := New("unit").Register(holder{}).Types(context.Background())
	require.NoError(t, err)

	fields, err := types[0].Fields()
	require.NoError(t, err)
	require.Len(t, fields, 3)
	assert.Equal(t, "box<string>", typesys.RenderName(fields[0].Type))
	assert.Equal(t, "*box<int>", typesys.RenderName(fields[1].Type))
	assert.Equal(t, "map[string][]int", typesys.RenderName(fields[2].Type))
}

func TestRegistry_PartialEnumeration(t *testing.T) {
	reg := New("unit").
		Register(widget{}).
		RegisterLazy("missing", func() (reflect.Type, error) {
			return nil, errors.New("not loaded")
		}).
		RegisterLazy("broken", func() (reflect.Type, error) {
			panic("corrupt metadata")
		}).
		RegisterLazy("late", func() (reflect.Type, error) {
			return reflect.TypeOf(holder{}), nil
		})

	types, err := reg.Types(context.Background())
	require.Error(t, err)
	assert.True(t, typesys.IsPartialEnumeration(err))
	require.Len(t, types, 2)
	assert.Equal(t, "widget", types[0].Name())
	assert.Equal(t, "holder", types[1].Name())

	var partial *typesys.PartialEnumerationError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 2, partial.Resolved)
	assert.Len(t, partial.Errs, 2)
	assert.Contains(t, err.Error(), "corrupt metadata")
}

func TestRegistry_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New("unit").Register(widget{}).Types(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
