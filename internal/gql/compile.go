// Package gql serves an assembled schema over GraphQL: it compiles the
// abstract schema into a graphql-go schema, renders it as SDL and exposes
// both through fiber handlers.
package gql

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"heritage-catalog/internal/schema"
)

var builtinScalars = map[string]*graphql.Scalar{
	schema.ScalarID:      graphql.ID,
	schema.ScalarString:  graphql.String,
	schema.ScalarInt:     graphql.Int,
	schema.ScalarFloat:   graphql.Float,
	schema.ScalarBoolean: graphql.Boolean,
}

type compiler struct {
	types map[string]graphql.Type
	err   error
}

// Compile builds an executable graphql-go schema. Type references are
// resolved lazily so declaration order does not matter; a reference to an
// unknown type fails the compilation.
func Compile(s *schema.Schema) (graphql.Schema, error) {
	c := &compiler{types: make(map[string]graphql.Type)}
	for name, t := range builtinScalars {
		c.types[name] = t
	}
	for name, t := range customScalars() {
		c.types[name] = t
	}
	for _, e := range s.Enums {
		c.types[e.Name] = compileEnum(e)
	}
	for _, in := range s.Inputs {
		c.types[in.Name] = c.compileInput(in)
	}
	for _, o := range s.Objects {
		c.types[o.Name] = c.compileObject(o)
	}

	query := c.compileObject(s.Query)
	var mutation *graphql.Object
	if len(s.Mutation.Fields) > 0 {
		mutation = c.compileObject(s.Mutation)
	}

	out, err := graphql.NewSchema(graphql.SchemaConfig{Query: query, Mutation: mutation})
	if c.err != nil {
		return graphql.Schema{}, c.err
	}
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("build graphql schema: %w", err)
	}
	return out, nil
}

func compileEnum(e *schema.Enum) *graphql.Enum {
	values := make(graphql.EnumValueConfigMap, len(e.Values))
	for _, v := range e.Values {
		values[v] = &graphql.EnumValueConfig{Value: v}
	}
	return graphql.NewEnum(graphql.EnumConfig{
		Name:        e.Name,
		Description: e.Description,
		Values:      values,
	})
}

func (c *compiler) compileInput(in *schema.InputObject) *graphql.InputObject {
	return graphql.NewInputObject(graphql.InputObjectConfig{
		Name:        in.Name,
		Description: in.Description,
		Fields: graphql.InputObjectConfigFieldMapThunk(func() graphql.InputObjectConfigFieldMap {
			fields := make(graphql.InputObjectConfigFieldMap, len(in.Fields))
			for _, f := range in.Fields {
				fields[f.Name] = &graphql.InputObjectFieldConfig{
					Type:         c.ref(f.Type),
					DefaultValue: f.Default,
					Description:  f.Description,
				}
			}
			return fields
		}),
	})
}

func (c *compiler) compileObject(o *schema.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name:        o.Name,
		Description: o.Description,
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			fields := make(graphql.Fields, len(o.Fields))
			for _, f := range o.Fields {
				fields[f.Name] = c.compileField(f)
			}
			return fields
		}),
	})
}

func (c *compiler) compileField(f schema.Field) *graphql.Field {
	var args graphql.FieldConfigArgument
	if len(f.Args) > 0 {
		args = make(graphql.FieldConfigArgument, len(f.Args))
		for _, a := range f.Args {
			args[a.Name] = &graphql.ArgumentConfig{
				Type:         c.ref(a.Type),
				DefaultValue: a.Default,
				Description:  a.Description,
			}
		}
	}
	field := &graphql.Field{
		Name:        f.Name,
		Type:        c.ref(f.Type),
		Args:        args,
		Description: f.Description,
	}
	if resolve := f.Resolve; resolve != nil {
		field.Resolve = func(p graphql.ResolveParams) (any, error) {
			return resolve(p.Context, p.Source, p.Args)
		}
	}
	return field
}

func (c *compiler) ref(t schema.TypeRef) graphql.Type {
	var out graphql.Type
	if t.Elem != nil {
		out = graphql.NewList(c.ref(*t.Elem))
	} else {
		named, ok := c.types[t.Name]
		if !ok {
			if c.err == nil {
				c.err = fmt.Errorf("unknown type %q", t.Name)
			}
			named = graphql.String
		}
		out = named
	}
	if t.NonNull {
		return graphql.NewNonNull(out)
	}
	return out
}
