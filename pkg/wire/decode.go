package wire

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"typescope/pkg/model"
)

// ErrInvalidPayload is returned for payloads that are not well-formed
var ErrInvalidPayload = errors.New("invalid snapshot payload")

// Decode parses a payload produced by Encode.
func Decode(payload []byte) (*model.Snapshot, error) {
	if !gjson.ValidBytes(payload) {
		return nil, ErrInvalidPayload
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level is not an object", ErrInvalidPayload)
	}

	s := &model.Snapshot{
		SourceName: root.Get("assemblyName").String(),
		Types:      []model.TypeDescriptor{},
	}
	if ts := root.Get("timestamp").String(); ts != "" {
		at, err := time.Parse(TimestampFormat, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: timestamp: %v", ErrInvalidPayload, err)
		}
		s.CapturedAt = at
	}

	types := root.Get("types")
	if !types.IsArray() {
		return nil, fmt.Errorf("%w: types is not an array", ErrInvalidPayload)
	}
	for _, t := range types.Array() {
		s.Types = append(s.Types, decodeType(t))
	}
	return s, nil
}

func decodeType(t gjson.Result) model.TypeDescriptor {
	desc := model.TypeDescriptor{
		Name:        t.Get("name").String(),
		FullName:    t.Get("fullName").String(),
		Namespace:   t.Get("namespace").String(),
		BaseType:    t.Get("baseType").String(),
		IsClass:     t.Get("isClass").Bool(),
		IsStruct:    t.Get("isStruct").Bool(),
		IsEnum:      t.Get("isEnum").Bool(),
		IsInterface: t.Get("isInterface").Bool(),
		Fields:      []model.FieldDescriptor{},
		Methods:     []model.MethodDescriptor{},
		Properties:  []model.PropertyDescriptor{},
	}

	for _, f := range t.Get("fields").Array() {
		desc.Fields = append(desc.Fields, model.FieldDescriptor{
			Name:       f.Get("name").String(),
			TypeName:   f.Get("fieldType").String(),
			IsPublic:   f.Get("isPublic").Bool(),
			IsStatic:   f.Get("isStatic").Bool(),
			IsReadOnly: f.Get("isReadOnly").Bool(),
		})
	}

	for _, m := range t.Get("methods").Array() {
		method := model.MethodDescriptor{
			Name:       m.Get("name").String(),
			ReturnType: m.Get("returnType").String(),
			IsPublic:   m.Get("isPublic").Bool(),
			IsStatic:   m.Get("isStatic").Bool(),
			Parameters: []model.ParameterDescriptor{},
		}
		for _, p := range m.Get("parameters").Array() {
			method.Parameters = append(method.Parameters, model.ParameterDescriptor{
				Name:     p.Get("name").String(),
				TypeName: p.Get("parameterType").String(),
			})
		}
		desc.Methods = append(desc.Methods, method)
	}

	for _, p := range t.Get("properties").Array() {
		desc.Properties = append(desc.Properties, model.PropertyDescriptor{
			Name:     p.Get("name").String(),
			TypeName: p.Get("propertyType").String(),
			CanRead:  p.Get("canRead").Bool(),
			CanWrite: p.Get("canWrite").Bool(),
		})
	}

	return desc
}
