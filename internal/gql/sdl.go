package gql

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"

	"heritage-catalog/internal/schema"
)

// SDL renders the schema in GraphQL schema definition language, in the
// order the types were assembled.
func SDL(s *schema.Schema) string {
	enums := make(map[string]bool, len(s.Enums))
	for _, e := range s.Enums {
		enums[e.Name] = true
	}

	doc := &ast.SchemaDocument{}
	for _, name := range schema.CustomScalars {
		doc.Definitions = append(doc.Definitions, &ast.Definition{Kind: ast.Scalar, Name: name})
	}
	for _, e := range s.Enums {
		def := &ast.Definition{Kind: ast.Enum, Name: e.Name, Description: e.Description}
		for _, v := range e.Values {
			def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{Name: v})
		}
		doc.Definitions = append(doc.Definitions, def)
	}
	for _, in := range s.Inputs {
		def := &ast.Definition{Kind: ast.InputObject, Name: in.Name, Description: in.Description}
		for _, f := range in.Fields {
			def.Fields = append(def.Fields, &ast.FieldDefinition{
				Name:         f.Name,
				Description:  f.Description,
				Type:         astType(f.Type),
				DefaultValue: astValue(f.Default, f.Type, enums),
			})
		}
		doc.Definitions = append(doc.Definitions, def)
	}
	objects := append(append([]*schema.Object(nil), s.Objects...), s.Query)
	if len(s.Mutation.Fields) > 0 {
		objects = append(objects, s.Mutation)
	}
	for _, o := range objects {
		def := &ast.Definition{Kind: ast.Object, Name: o.Name, Description: o.Description}
		for _, f := range o.Fields {
			fd := &ast.FieldDefinition{Name: f.Name, Description: f.Description, Type: astType(f.Type)}
			for _, a := range f.Args {
				fd.Arguments = append(fd.Arguments, &ast.ArgumentDefinition{
					Name:         a.Name,
					Description:  a.Description,
					Type:         astType(a.Type),
					DefaultValue: astValue(a.Default, a.Type, enums),
				})
			}
			def.Fields = append(def.Fields, fd)
		}
		doc.Definitions = append(doc.Definitions, def)
	}

	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchemaDocument(doc)
	return buf.String()
}

func astType(t schema.TypeRef) *ast.Type {
	if t.Elem != nil {
		return &ast.Type{Elem: astType(*t.Elem), NonNull: t.NonNull}
	}
	return &ast.Type{NamedType: t.Name, NonNull: t.NonNull}
}

func astValue(v any, t schema.TypeRef, enums map[string]bool) *ast.Value {
	switch val := v.(type) {
	case nil:
		return nil
	case bool:
		return &ast.Value{Kind: ast.BooleanValue, Raw: strconv.FormatBool(val)}
	case int:
		return &ast.Value{Kind: ast.IntValue, Raw: strconv.Itoa(val)}
	case float64:
		return &ast.Value{Kind: ast.FloatValue, Raw: strconv.FormatFloat(val, 'f', -1, 64)}
	case string:
		if enums[t.Name] {
			return &ast.Value{Kind: ast.EnumValue, Raw: val}
		}
		return &ast.Value{Kind: ast.StringValue, Raw: val}
	default:
		return &ast.Value{Kind: ast.StringValue, Raw: fmt.Sprint(val)}
	}
}
