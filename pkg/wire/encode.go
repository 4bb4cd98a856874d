// Package wire encodes snapshots and frames them for transmission.
//
// The payload is JSON grammar written by hand in a fixed field order so that
// equal snapshots always produce identical bytes. Only backslash, double
// quote, newline, carriage return and tab are escaped.
package wire

import (
	"bytes"
	"strings"
	"time"

	"typescope/pkg/model"
)

// TimestampFormat is the layout of the "timestamp" field
const TimestampFormat = time.RFC3339Nano

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

type encoder struct {
	buf bytes.Buffer
}

// Encode renders a snapshot as a payload. It never fails.
func Encode(s *model.Snapshot) []byte {
	if s == nil {
		s = &model.Snapshot{}
	}

	e := &encoder{}
	e.buf.WriteByte('{')
	e.key("assemblyName")
	e.str(s.SourceName)
	e.comma()
	e.key("timestamp")
	e.str(s.CapturedAt.Format(TimestampFormat))
	e.comma()
	e.key("types")
	e.buf.WriteByte('[')
	for i := range s.Types {
		if i > 0 {
			e.comma()
		}
		e.typ(&s.Types[i])
	}
	e.buf.WriteString("]}")
	return e.buf.Bytes()
}

func (e *encoder) typ(t *model.TypeDescriptor) {
	e.buf.WriteByte('{')
	e.key("name")
	e.str(t.Name)
	e.comma()
	e.key("fullName")
	e.str(t.FullName)
	e.comma()
	e.key("namespace")
	e.str(t.Namespace)
	e.comma()
	e.key("baseType")
	e.str(t.BaseType)
	e.comma()
	e.key("isClass")
	e.boolean(t.IsClass)
	e.comma()
	e.key("isStruct")
	e.boolean(t.IsStruct)
	e.comma()
	e.key("isEnum")
	e.boolean(t.IsEnum)
	e.comma()
	e.key("isInterface")
	e.boolean(t.IsInterface)
	e.comma()

	e.key("fields")
	e.buf.WriteByte('[')
	for i, f := range t.Fields {
		if i > 0 {
			e.comma()
		}
		e.buf.WriteByte('{')
		e.key("name")
		e.str(f.Name)
		e.comma()
		e.key("fieldType")
		e.str(f.TypeName)
		e.comma()
		e.key("isPublic")
		e.boolean(f.IsPublic)
		e.comma()
		e.key("isStatic")
		e.boolean(f.IsStatic)
		e.comma()
		e.key("isReadOnly")
		e.boolean(f.IsReadOnly)
		e.buf.WriteByte('}')
	}
	e.buf.WriteString("],")

	e.key("methods")
	e.buf.WriteByte('[')
	for i, m := range t.Methods {
		if i > 0 {
			e.comma()
		}
		e.buf.WriteByte('{')
		e.key("name")
		e.str(m.Name)
		e.comma()
		e.key("returnType")
		e.str(m.ReturnType)
		e.comma()
		e.key("isPublic")
		e.boolean(m.IsPublic)
		e.comma()
		e.key("isStatic")
		e.boolean(m.IsStatic)
		e.comma()
		e.key("parameters")
		e.buf.WriteByte('[')
		for j, p := range m.Parameters {
			if j > 0 {
				e.comma()
			}
			e.buf.WriteByte('{')
			e.key("name")
			e.str(p.Name)
			e.comma()
			e.key("parameterType")
			e.str(p.TypeName)
			e.buf.WriteByte('}')
		}
		e.buf.WriteString("]}")
	}
	e.buf.WriteString("],")

	e.key("properties")
	e.buf.WriteByte('[')
	for i, p := range t.Properties {
		if i > 0 {
			e.comma()
		}
		e.buf.WriteByte('{')
		e.key("name")
		e.str(p.Name)
		e.comma()
		e.key("propertyType")
		e.str(p.TypeName)
		e.comma()
		e.key("canRead")
		e.boolean(p.CanRead)
		e.comma()
		e.key("canWrite")
		e.boolean(p.CanWrite)
		e.buf.WriteByte('}')
	}
	e.buf.WriteString("]}")
}

func (e *encoder) key(k string) {
	e.buf.WriteByte('"')
	e.buf.WriteString(k)
	e.buf.WriteString(`":`)
}

func (e *encoder) str(s string) {
	e.buf.WriteByte('"')
	escaper.WriteString(&e.buf, s)
	e.buf.WriteByte('"')
}

func (e *encoder) boolean(b bool) {
	if b {
		e.buf.WriteString("true")
	} else {
		e.buf.WriteString("false")
	}
}

func (e *encoder) comma() {
	e.buf.WriteByte(',')
}
