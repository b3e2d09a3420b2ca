package schema

import (
	"context"
	"log/slog"
	"strings"

	"heritage-catalog/internal/metadata"
	"heritage-catalog/internal/metrics"
)

// Synthesizer derives the output and input shapes of one entity. Its
// methods are deterministic: the same entity always yields equal types.
type Synthesizer struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewSynthesizer(opts ...Option) *Synthesizer {
	o := newOptions(opts)
	return &Synthesizer{logger: o.logger, metrics: o.metrics}
}

// SynthesizeOutput builds the read shape: every stored column followed by
// the detected computed fields. Stored fields resolve from the record by
// column name; computed fields invoke their accessor and resolve to null
// when it fails.
func (s *Synthesizer) SynthesizeOutput(e *metadata.Entity) *Object {
	obj := &Object{Name: e.Name, Description: e.Description}
	for _, f := range e.Fields {
		st := metadata.InferType(e, f)
		t := s.scalarRef(e, f, st)
		if e.IsKey(f.Name) || (f.Required && !f.Nullable) {
			t = t.Required()
		}
		obj.Fields = append(obj.Fields, Field{
			Name:        f.Name,
			Type:        t,
			Description: f.Description,
			Resolve:     storedResolver(f.Name),
		})
	}
	if e.SoftDelete && !e.HasField(metadata.DeletedAtField) {
		obj.Fields = append(obj.Fields, Field{
			Name:    metadata.DeletedAtField,
			Type:    Named(ScalarDateTime),
			Resolve: storedResolver(metadata.DeletedAtField),
		})
	}
	for _, d := range e.ComputedFields() {
		obj.Fields = append(obj.Fields, Field{
			Name:        d.Name,
			Type:        kindRef(d.Type.Kind),
			Description: d.Description,
			Resolve:     s.computedResolver(e, d),
		})
	}
	return obj
}

// SynthesizeCreateInput builds the create shape. The key appears only when
// nothing generates it. Fields without a default that are required become
// non-null; everything else is optional. Engine-managed columns are absent.
// Returns nil when the entity has no client-writable field.
func (s *Synthesizer) SynthesizeCreateInput(e *metadata.Entity) *InputObject {
	in := &InputObject{Name: e.Name + "CreateInput"}
	for _, f := range e.WritableFields() {
		t := s.scalarRef(e, f, metadata.InferType(e, f))
		if e.IsKey(f.Name) || (f.Required && !f.Nullable && !f.HasDefault()) {
			t = t.Required()
		}
		in.Fields = append(in.Fields, InputField{Name: f.Name, Type: t, Description: f.Description})
	}
	if len(in.Fields) == 0 {
		return nil
	}
	return in
}

// SynthesizeUpdateInput builds the update shape: every updatable field,
// all optional. The key is the mutation's selector and never part of it.
func (s *Synthesizer) SynthesizeUpdateInput(e *metadata.Entity) *InputObject {
	in := &InputObject{Name: e.Name + "UpdateInput"}
	for _, f := range e.UpdatableFields() {
		in.Fields = append(in.Fields, InputField{
			Name:        f.Name,
			Type:        s.scalarRef(e, f, metadata.InferType(e, f)),
			Description: f.Description,
		})
	}
	if len(in.Fields) == 0 {
		return nil
	}
	return in
}

// SynthesizeEnums returns one enum type per enum field with usable values.
func (s *Synthesizer) SynthesizeEnums(e *metadata.Entity) []*Enum {
	var out []*Enum
	for _, f := range e.Fields {
		st := metadata.InferType(e, f)
		if st.Kind != metadata.KindEnum {
			continue
		}
		out = append(out, &Enum{
			Name:        enumName(e, f),
			Description: f.Description,
			Values:      st.Values,
		})
	}
	return out
}

func (s *Synthesizer) scalarRef(e *metadata.Entity, f metadata.Field, st metadata.ScalarType) TypeRef {
	if st.Kind == metadata.KindEnum {
		return Named(enumName(e, f))
	}
	return kindRef(st.Kind)
}

func (s *Synthesizer) computedResolver(e *metadata.Entity, d metadata.ComputedDescriptor) Resolver {
	return func(ctx context.Context, source any, _ map[string]any) (any, error) {
		rec, ok := source.(metadata.Record)
		if !ok {
			return nil, nil
		}
		v, err := d.Resolve(ctx, rec)
		if err != nil {
			s.logger.Warn("computed field failed",
				slog.String("entity", e.Name),
				slog.String("field", d.Name),
				slog.Any("error", err))
			s.metrics.IncrementComputedFailure(e.Name, d.Name)
			return nil, nil
		}
		return v, nil
	}
}

func storedResolver(name string) Resolver {
	return func(_ context.Context, source any, _ map[string]any) (any, error) {
		rec, ok := source.(metadata.Record)
		if !ok {
			return nil, nil
		}
		return rec[name], nil
	}
}

func kindRef(k metadata.Kind) TypeRef {
	switch k {
	case metadata.KindIdentifier:
		return Named(ScalarID)
	case metadata.KindInteger:
		return Named(ScalarInt)
	case metadata.KindBoolean:
		return Named(ScalarBoolean)
	case metadata.KindFloat:
		return Named(ScalarFloat)
	case metadata.KindDecimal:
		return Named(ScalarDecimal)
	case metadata.KindDate:
		return Named(ScalarDate)
	case metadata.KindDateTime:
		return Named(ScalarDateTime)
	case metadata.KindJSON:
		return Named(ScalarJSON)
	case metadata.KindList:
		return ListOf(Named(ScalarJSON))
	default:
		return Named(ScalarString)
	}
}

func enumName(e *metadata.Entity, f metadata.Field) string {
	return e.Name + pascal(f.Name)
}

// pascal converts snake_case to PascalCase.
func pascal(s string) string {
	var b strings.Builder
	for _, part := range strings.Split(s, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	return b.String()
}
