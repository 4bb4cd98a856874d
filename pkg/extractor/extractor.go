// Package extractor walks a typesys.Provider and builds a model.Snapshot.
//
// One bad type never fails a pass: faults while reading a type's members
// drop that type and are recorded in the Report. A partial enumeration is
// processed with whatever the provider resolved.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"typescope/pkg/model"
	"typescope/pkg/typesys"
)

// FailedSuffix is appended to the source name when nothing could be enumerated.
const FailedSuffix = " (failed to load)"

// TypeFault records a type dropped from a snapshot
type TypeFault struct {
	Type string
	Err  error
}

func (f *TypeFault) Error() string {
	return fmt.Sprintf("extract %s: %v", f.Type, f.Err)
}

func (f *TypeFault) Unwrap() error {
	return f.Err
}

// IsTypeFault checks if an error is a TypeFault
func IsTypeFault(err error) bool {
	var f *TypeFault
	return errors.As(err, &f)
}

// Report describes how a pass went. Partial holds the provider's partial
// enumeration error, Failed the error that prevented any enumeration.
type Report struct {
	Partial  error
	Failed   error
	Dropped  []TypeFault
	Duration time.Duration
}

// Option configures an Extractor
type Option func(*Extractor)

// WithLogger sets the logger used for fault reporting
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithClock overrides the capture timestamp source
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// Extractor produces snapshots from a provider
type Extractor struct {
	provider typesys.Provider
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates an extractor over provider
func New(provider typesys.Provider, opts ...Option) *Extractor {
	e := &Extractor{
		provider: provider,
		logger:   log.Logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs one pass. It always returns a snapshot.
func (e *Extractor) Extract(ctx context.Context) (*model.Snapshot, Report) {
	start := time.Now()
	unit := e.provider.UnitName()
	snap := &model.Snapshot{
		SourceName: unit,
		CapturedAt: e.now(),
		Types:      []model.TypeDescriptor{},
	}
	var report Report

	types, err := e.provider.Types(ctx)
	switch {
	case err == nil:
	case typesys.IsPartialEnumeration(err):
		report.Partial = err
		e.logger.Warn().
			Err(err).
			Str("unit", unit).
			Int("resolved", len(types)).
			Msg("Partial type enumeration, continuing with resolved types")
	default:
		report.Failed = err
		report.Duration = time.Since(start)
		snap.SourceName = unit + FailedSuffix
		e.logger.Error().Err(err).Str("unit", unit).Msg("Failed to enumerate types")
		return snap, report
	}

	for _, t := range types {
		if ctx.Err() != nil {
			break
		}
		desc, err := extractType(t)
		if err != nil {
			name := safeName(t)
			report.Dropped = append(report.Dropped, TypeFault{Type: name, Err: err})
			e.logger.Warn().Err(err).Str("type", name).Msg("Failed to extract type, dropping it")
			continue
		}
		snap.Types = append(snap.Types, desc)
	}

	report.Duration = time.Since(start)
	return snap, report
}

// extractType builds the descriptor for one type, converting panics from the
// provider into errors.
func extractType(t typesys.Type) (desc model.TypeDescriptor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	fullName := t.FullName()
	if fullName == "" {
		fullName = t.Name()
	}
	kind := t.Kind()
	desc = model.TypeDescriptor{
		Name:        t.Name(),
		FullName:    fullName,
		Namespace:   t.Namespace(),
		BaseType:    typesys.BaseName(t.Base()),
		IsClass:     kind == typesys.KindClass,
		IsStruct:    kind == typesys.KindStruct,
		IsEnum:      kind == typesys.KindEnum,
		IsInterface: kind == typesys.KindInterface,
	}

	fields, err := t.Fields()
	if err != nil {
		return model.TypeDescriptor{}, fmt.Errorf("fields: %w", err)
	}
	desc.Fields = make([]model.FieldDescriptor, 0, len(fields))
	for _, f := range fields {
		desc.Fields = append(desc.Fields, model.FieldDescriptor{
			Name:       f.Name,
			TypeName:   typesys.RenderName(f.Type),
			IsPublic:   f.Public,
			IsStatic:   f.Static,
			IsReadOnly: f.ReadOnly,
		})
	}

	methods, err := t.Methods()
	if err != nil {
		return model.TypeDescriptor{}, fmt.Errorf("methods: %w", err)
	}
	desc.Methods = make([]model.MethodDescriptor, 0, len(methods))
	for _, m := range methods {
		if m.SpecialName {
			continue
		}
		params := make([]model.ParameterDescriptor, 0, len(m.Params))
		for _, p := range m.Params {
			params = append(params, model.ParameterDescriptor{
				Name:     p.Name,
				TypeName: typesys.RenderName(p.Type),
			})
		}
		desc.Methods = append(desc.Methods, model.MethodDescriptor{
			Name:       m.Name,
			ReturnType: typesys.RenderName(m.Return),
			IsPublic:   m.Public,
			IsStatic:   m.Static,
			Parameters: params,
		})
	}

	props, err := t.Properties()
	if err != nil {
		return model.TypeDescriptor{}, fmt.Errorf("properties: %w", err)
	}
	desc.Properties = make([]model.PropertyDescriptor, 0, len(props))
	for _, p := range props {
		desc.Properties = append(desc.Properties, model.PropertyDescriptor{
			Name:     p.Name,
			TypeName: typesys.RenderName(p.Type),
			CanRead:  p.CanRead,
			CanWrite: p.CanWrite,
		})
	}

	return desc, nil
}

func safeName(t typesys.Type) (name string) {
	defer func() {
		if recover() != nil {
			name = "<unknown>"
		}
	}()
	if name = t.FullName(); name == "" {
		name = t.Name()
	}
	return name
}
