// Package schema turns entity descriptors into an abstract API schema: one
// output type per entity, create and update inputs, paged list envelopes and
// the query and mutation roots with their resolvers bound to the generic
// CRUD engine. The result is runtime independent; internal/gql compiles it
// into an executable GraphQL schema.
package schema

import (
	"context"
	"strings"
)

// Built-in and custom scalar names.
const (
	ScalarID       = "ID"
	ScalarString   = "String"
	ScalarInt      = "Int"
	ScalarFloat    = "Float"
	ScalarBoolean  = "Boolean"
	ScalarDate     = "Date"
	ScalarDateTime = "DateTime"
	ScalarDecimal  = "Decimal"
	ScalarJSON     = "JSON"
)

// CustomScalars are the scalars the serving layer must provide.
var CustomScalars = []string{ScalarDate, ScalarDateTime, ScalarDecimal, ScalarJSON}

// TypeRef references a named type or a list of another reference.
type TypeRef struct {
	Name    string
	Elem    *TypeRef
	NonNull bool
}

func Named(name string) TypeRef { return TypeRef{Name: name} }

func ListOf(elem TypeRef) TypeRef { return TypeRef{Elem: &elem} }

// Required returns a non-null copy of t.
func (t TypeRef) Required() TypeRef {
	t.NonNull = true
	return t
}

// String renders t in SDL notation, e.g. "[Property!]!".
func (t TypeRef) String() string {
	var b strings.Builder
	if t.Elem != nil {
		b.WriteString("[" + t.Elem.String() + "]")
	} else {
		b.WriteString(t.Name)
	}
	if t.NonNull {
		b.WriteString("!")
	}
	return b.String()
}

// Resolver produces the value of one field. source is the parent value: a
// metadata.Record for entity fields, an *engine.Page for page fields and nil
// on the roots.
type Resolver func(ctx context.Context, source any, args map[string]any) (any, error)

type Argument struct {
	Name        string
	Type        TypeRef
	Default     any
	Description string
}

type Field struct {
	Name        string
	Type        TypeRef
	Args        []Argument
	Description string
	Resolve     Resolver
}

type Object struct {
	Name        string
	Description string
	Fields      []Field
}

// Field returns the named field, or nil.
func (o *Object) Field(name string) *Field {
	for i := range o.Fields {
		if o.Fields[i].Name == name {
			return &o.Fields[i]
		}
	}
	return nil
}

type InputField struct {
	Name        string
	Type        TypeRef
	Default     any
	Description string
}

type InputObject struct {
	Name        string
	Description string
	Fields      []InputField
}

// Field returns the named input field, or nil.
func (o *InputObject) Field(name string) *InputField {
	for i := range o.Fields {
		if o.Fields[i].Name == name {
			return &o.Fields[i]
		}
	}
	return nil
}

// Enum values are used verbatim as both the GraphQL name and the internal
// value.
type Enum struct {
	Name        string
	Description string
	Values      []string
}
