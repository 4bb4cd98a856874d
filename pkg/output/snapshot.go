package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"typescope/pkg/model"
)

// Format selects how snapshots are printed
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return FormatText, fmt.Errorf("invalid output format: %s (must be text, json or yaml)", s)
	}
}

// AddFormatFlag registers --output/-o on cmd
func AddFormatFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", string(FormatText), "Output format (text|json|yaml)")
}

// FormatFromCmd returns the format chosen with --output
func FormatFromCmd(cmd *cobra.Command) (Format, error) {
	s, err := cmd.Flags().GetString("output")
	if err != nil {
		return FormatText, err
	}
	return ParseFormat(s)
}

// Printer writes snapshot views to out in one format
type Printer struct {
	format Format
	out    io.Writer
}

// NewPrinter creates a printer for format writing to out
func NewPrinter(format Format, out io.Writer) *Printer {
	return &Printer{format: format, out: out}
}

// Summary prints the summary of snap. JSON summaries are one object per
// line; YAML summaries are separate documents.
func (p *Printer) Summary(snap *model.Snapshot) error {
	v := Summarize(snap)
	switch p.format {
	case FormatJSON:
		return json.NewEncoder(p.out).Encode(v)
	case FormatYAML:
		if _, err := io.WriteString(p.out, "---\n"); err != nil {
			return err
		}
		return p.yaml(v)
	default:
		_, err := fmt.Fprintln(p.out, v)
		return err
	}
}

// Types prints the types of snap matching filter, with members when
// members is true. Text output is the summary line followed by a table.
func (p *Printer) Types(snap *model.Snapshot, filter string, members bool) error {
	views := Types(snap, filter, members)
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case FormatYAML:
		return p.yaml(views)
	default:
		fmt.Fprintf(p.out, "%s\n\n", Summarize(snap))
		return WriteTypes(p.out, views)
	}
}

func (p *Printer) yaml(v any) error {
	enc := yaml.NewEncoder(p.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// SummaryView is the one-line description of a snapshot
type SummaryView struct {
	Source      string    `json:"source" yaml:"source"`
	CapturedAt  time.Time `json:"captured_at" yaml:"captured_at"`
	model.Stats `yaml:",inline"`
}

// TypeView is the JSON form of a type
type TypeView struct {
	Name       string         `json:"name" yaml:"name"`
	FullName   string         `json:"full_name" yaml:"full_name"`
	Namespace  string         `json:"namespace" yaml:"namespace"`
	BaseType   string         `json:"base_type,omitempty" yaml:"base_type,omitempty"`
	Kind       string         `json:"kind" yaml:"kind"`
	Fields     []FieldView    `json:"fields,omitempty" yaml:"fields,omitempty"`
	Methods    []MethodView   `json:"methods,omitempty" yaml:"methods,omitempty"`
	Properties []PropertyView `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// FieldView is the JSON form of a field
type FieldView struct {
	Name      string `json:"name" yaml:"name"`
	Type      string `json:"type" yaml:"type"`
	Modifiers string `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
}

// MethodView is the JSON form of a method
type MethodView struct {
	Name      string `json:"name" yaml:"name"`
	Signature string `json:"signature" yaml:"signature"`
	Modifiers string `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
}

// PropertyView is the JSON form of a property
type PropertyView struct {
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type" yaml:"type"`
	Access string `json:"access" yaml:"access"`
}

// Summarize builds the summary of snap
func Summarize(snap *model.Snapshot) SummaryView {
	return SummaryView{
		Source:     snap.SourceName,
		CapturedAt: snap.CapturedAt,
		Stats:      snap.Stats(),
	}
}

// String renders the summary on one line
func (v SummaryView) String() string {
	return fmt.Sprintf("%s  %s  types=%d fields=%d methods=%d properties=%d",
		v.CapturedAt.Format(time.TimeOnly), v.Source, v.Types, v.Fields, v.Methods, v.Properties)
}

// Kind names the category of t
func Kind(t *model.TypeDescriptor) string {
	switch {
	case t.IsEnum:
		return "enum"
	case t.IsInterface:
		return "interface"
	case t.IsStruct:
		return "struct"
	case t.IsClass:
		return "class"
	default:
		return "other"
	}
}

// Matches reports whether filter is a case-insensitive substring of the
// type's full name. An empty filter matches everything.
func Matches(t *model.TypeDescriptor, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.FullName), strings.ToLower(filter))
}

// Types builds views of the types in snap matching filter. Members are only
// included when members is true.
func Types(snap *model.Snapshot, filter string, members bool) []TypeView {
	views := []TypeView{}
	for i := range snap.Types {
		t := &snap.Types[i]
		if !Matches(t, filter) {
			continue
		}
		v := TypeView{
			Name:      t.Name,
			FullName:  t.FullName,
			Namespace: t.Namespace,
			BaseType:  t.BaseType,
			Kind:      Kind(t),
		}
		if members {
			for _, f := range t.Fields {
				v.Fields = append(v.Fields, FieldView{
					Name:      f.Name,
					Type:      f.TypeName,
					Modifiers: modifiers(f.IsPublic, f.IsStatic, f.IsReadOnly),
				})
			}
			for _, m := range t.Methods {
				v.Methods = append(v.Methods, MethodView{
					Name:      m.Name,
					Signature: Signature(m),
					Modifiers: modifiers(m.IsPublic, m.IsStatic, false),
				})
			}
			for _, p := range t.Properties {
				v.Properties = append(v.Properties, PropertyView{
					Name:   p.Name,
					Type:   p.TypeName,
					Access: access(p.CanRead, p.CanWrite),
				})
			}
		}
		views = append(views, v)
	}
	return views
}

// Signature renders a method as "Name(a T, b U) R"
func Signature(m model.MethodDescriptor) string {
	params := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		params[i] = p.Name + " " + p.TypeName
	}
	return fmt.Sprintf("%s(%s) %s", m.Name, strings.Join(params, ", "), m.ReturnType)
}

func modifiers(public, static, readOnly bool) string {
	var mods []string
	if public {
		mods = append(mods, "public")
	}
	if static {
		mods = append(mods, "static")
	}
	if readOnly {
		mods = append(mods, "readonly")
	}
	return strings.Join(mods, " ")
}

func access(read, write bool) string {
	switch {
	case read && write:
		return "get/set"
	case read:
		return "get"
	case write:
		return "set"
	default:
		return "none"
	}
}

// WriteTypes writes views as a table. Members are listed indented under
// each type.
func WriteTypes(out io.Writer, views []TypeView) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tTYPE\tBASE")
	for _, v := range views {
		base := v.BaseType
		if base == "" {
			base = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", v.Kind, v.FullName, base)
		for _, f := range v.Fields {
			fmt.Fprintf(w, "  field\t%s %s\t%s\n", f.Name, f.Type, f.Modifiers)
		}
		for _, p := range v.Properties {
			fmt.Fprintf(w, "  property\t%s %s\t%s\n", p.Name, p.Type, p.Access)
		}
		for _, m := range v.Methods {
			fmt.Fprintf(w, "  method\t%s\t%s\n", m.Signature, m.Modifiers)
		}
	}
	return w.Flush()
}
