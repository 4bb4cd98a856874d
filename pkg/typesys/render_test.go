package typesys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderName(t *testing.T) {
	a := Named("pkg.A")
	b := Named("pkg.B")

	tests := []struct {
		name string
		ref  Ref
		want string
	}{
		{name: "nil is void", ref: nil, want: "void"},
		{name: "plain uses full name", ref: a, want: "pkg.A"},
		{name: "falls back to short name", ref: NamedRef{Short: "T"}, want: "T"},
		{name: "generic two args", ref: NamedRef{Short: "Foo`2", Full: "ns.Foo`2", Args: []Ref{NamedRef{Full: "A"}, NamedRef{Full: "B"}}}, want: "Foo<A, B>"},
		{name: "generic nested", ref: NamedRef{Short: "Foo`2", Args: []Ref{NamedRef{Short: "Bar`1", Args: []Ref{NamedRef{Full: "A"}}}, NamedRef{Full: "B"}}}, want: "Foo<Bar<A>, B>"},
		{name: "go type parameter list stripped", ref: Named("pkg.Pair[pkg.A,pkg.B]", a, b), want: "Pair<pkg.A, pkg.B>"},
		{name: "generic without short name", ref: NamedRef{Full: "pkg.Box", Args: []Ref{a}}, want: "Box<pkg.A>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderName(tt.ref))
		})
	}
}

func TestStripArity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"List`1", "List"},
		{"Dictionary`2", "Dictionary"},
		{"Pair[K,V]", "Pair"},
		{"Plain", "Plain"},
		{"[]int", "[]int"},
		{"`1", "`1"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StripArity(tt.in))
		})
	}
}

func TestParseGenericName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "int", want: "int"},
		{name: "slice", in: "[]string", want: "[]string"},
		{name: "map", in: "map[string]int", want: "map[string]int"},
		{name: "single arg", in: "Box[int]", want: "Box<int>"},
		{name: "two args", in: "Pair[int,string]", want: "Pair<int, string>"},
		{name: "nested", in: "Pair[typescope/pkg.Box[int],string]", want: "Pair<Box<int>, string>"},
		{name: "map arg", in: "Box[map[string]int]", want: "Box<map[string]int>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderName(ParseGenericName(tt.in)))
		})
	}
}

func TestNamed_ShortName(t *testing.T) {
	assert.Equal(t, "Box", Named("typescope/pkg/model.Box").Name())
	assert.Equal(t, "Pair[a/b.C,int]", Named("x/y.Pair[a/b.C,int]").Name())
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "", BaseName(nil))
	assert.Equal(t, "pkg.Base", BaseName(Named("pkg.Base")))
	assert.Equal(t, "Base", BaseName(NamedRef{Short: "Base"}))
}
