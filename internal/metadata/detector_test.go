package metadata

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInferComputedKind(t *testing.T) {
	cases := map[string]Kind{
		"is_protected":        KindBoolean,
		"has_coordinates":     KindBoolean,
		"tiene_documentos":    KindBoolean,
		"get_owners":          KindList,
		"owner_list":          KindList,
		"transmission_count":  KindInteger,
		"total_price":         KindInteger,
		"last_datetime":       KindDateTime,
		"declaration_date":    KindDate,
		"fecha_inscripcion":   KindDate,
		"display_name":        KindString,
	}
	for name, want := range cases {
		assert.Equal(t, want, InferComputedKind(name, ""), name)
	}
	assert.Equal(t, KindFloat, InferComputedKind("is_weird", KindFloat), "declared kind wins")
}

func TestDetectComputed(t *testing.T) {
	e := &Entity{
		Name:       "Property",
		Table:      "properties",
		PrimaryKey: PrimaryKey{Field: "id", Type: "uuid"},
		Fields: []Field{
			{Name: "id", Type: "uuid"},
			{Name: "name", Type: "string", Nullable: true},
		},
		Computed: []ComputedField{
			{Name: "display_name", Expression: `name ?? "Unnamed"`},
			{Name: "name", Expression: `"shadowed"`},
			{Name: "_internal", Expression: `1`},
			{Name: "query_helper", Expression: `1`},
			{Name: "has_name", Kind: ComputedMethod, Func: func(_ context.Context, rec Record) (any, error) {
				return rec["name"] != nil, nil
			}},
		},
	}

	got, err := DetectComputed(e, discardLogger())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "display_name", got[0].Name)
	assert.Equal(t, ComputedProperty, got[0].Kind)
	assert.Equal(t, KindString, got[0].Type.Kind)
	assert.True(t, got[0].Type.Optional)

	v, err := got[0].Resolve(context.Background(), Record{"name": nil})
	require.NoError(t, err)
	assert.Equal(t, "Unnamed", v)

	v, err = got[0].Resolve(context.Background(), Record{"name": "San Juan"})
	require.NoError(t, err)
	assert.Equal(t, "San Juan", v)

	assert.Equal(t, "has_name", got[1].Name)
	assert.Equal(t, ComputedMethod, got[1].Kind)
	assert.Equal(t, KindBoolean, got[1].Type.Kind)
}

func TestDetectComputed_Errors(t *testing.T) {
	base := func(c ComputedField) *Entity {
		return &Entity{
			Name: "Thing", Table: "things",
			PrimaryKey: PrimaryKey{Field: "id", Type: "int"},
			Fields:     []Field{{Name: "id", Type: "int"}},
			Computed:   []ComputedField{c},
		}
	}

	_, err := DetectComputed(base(ComputedField{Name: "broken", Expression: "1 +"}), discardLogger())
	assert.Error(t, err)

	_, err = DetectComputed(base(ComputedField{Name: "empty"}), discardLogger())
	assert.True(t, errors.Is(err, errNoAccessor))

	_, err = DetectComputed(base(ComputedField{
		Name:       "both",
		Expression: "1",
		Func:       func(context.Context, Record) (any, error) { return 1, nil },
	}), discardLogger())
	assert.Error(t, err)
}

func TestComputedExpression_RuntimeFailure(t *testing.T) {
	e := &Entity{
		Name: "Thing", Table: "things",
		PrimaryKey: PrimaryKey{Field: "id", Type: "int"},
		Fields:     []Field{{Name: "id", Type: "int"}},
		Computed:   []ComputedField{{Name: "first_owner", Expression: `owners[0]`}},
	}
	got, err := DetectComputed(e, discardLogger())
	require.NoError(t, err)

	_, err = got[0].Resolve(context.Background(), Record{"owners": []any{}})
	assert.Error(t, err)
}
