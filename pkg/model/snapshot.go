// Package model holds the plain data captured by one extraction pass.
//
// A Snapshot and its member tree are built fresh for every pass and are not
// shared between snapshots.
package model

import "time"

// Snapshot is one captured view of a type-system unit.
type Snapshot struct {
	SourceName string
	CapturedAt time.Time
	Types      []TypeDescriptor
}

// TypeDescriptor describes a single type and the members declared directly on it.
type TypeDescriptor struct {
	Name        string
	FullName    string
	Namespace   string
	BaseType    string
	IsClass     bool
	IsStruct    bool
	IsEnum      bool
	IsInterface bool
	Fields      []FieldDescriptor
	Methods     []MethodDescriptor
	Properties  []PropertyDescriptor
}

// FieldDescriptor describes a declared field.
type FieldDescriptor struct {
	Name       string
	TypeName   string
	IsPublic   bool
	IsStatic   bool
	IsReadOnly bool
}

// MethodDescriptor describes a declared method. Accessor methods never appear here.
type MethodDescriptor struct {
	Name       string
	ReturnType string
	IsPublic   bool
	IsStatic   bool
	Parameters []ParameterDescriptor
}

// ParameterDescriptor describes one method parameter.
type ParameterDescriptor struct {
	Name     string
	TypeName string
}

// PropertyDescriptor describes a property backed by accessor methods.
type PropertyDescriptor struct {
	Name     string
	TypeName string
	CanRead  bool
	CanWrite bool
}

// Stats summarizes the size of a snapshot
type Stats struct {
	Types      int `json:"types"`
	Fields     int `json:"fields"`
	Methods    int `json:"methods"`
	Properties int `json:"properties"`
}

// Stats counts the types and members in the snapshot.
func (s *Snapshot) Stats() Stats {
	st := Stats{Types: len(s.Types)}
	for i := range s.Types {
		st.Fields += len(s.Types[i].Fields)
		st.Methods += len(s.Types[i].Methods)
		st.Properties += len(s.Types[i].Properties)
	}
	return st
}

// Find returns the type with the given full name, or nil.
func (s *Snapshot) Find(fullName string) *TypeDescriptor {
	for i := range s.Types {
		if s.Types[i].FullName == fullName {
			return &s.Types[i]
		}
	}
	return nil
}
