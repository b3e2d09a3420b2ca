package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func region() *Entity {
	return &Entity{
		Name:       "Region",
		Table:      "regions",
		PrimaryKey: PrimaryKey{Field: "id"},
		Fields: []Field{
			{Name: "id", Type: "string"},
			{Name: "name", Type: "string", Required: true},
		},
	}
}

func TestRegistry_LoadKeepsOrder(t *testing.T) {
	r := NewRegistry(discardLogger())
	prov := &Entity{
		Name:       "Province",
		Table:      "provinces",
		PrimaryKey: PrimaryKey{Field: "id", Type: "string"},
		Fields:     []Field{{Name: "id", Type: "string"}, {Name: "region_id", Type: "string"}},
		Computed:   []ComputedField{{Name: "label", Expression: `id + " (" + region_id + ")"`}},
	}
	require.NoError(t, r.Load([]*Entity{region(), prov}))

	all := r.AllEntities()
	require.Len(t, all, 2)
	assert.Equal(t, "Region", all[0].Name)
	assert.Equal(t, "Province", all[1].Name)
	assert.Equal(t, "string", r.GetEntity("Region").PrimaryKey.Type, "key type defaults to the key field type")

	computed := r.GetEntity("Province").ComputedFields()
	require.Len(t, computed, 1)
	v, err := computed[0].Resolve(context.Background(), Record{"id": "P1", "region_id": "R1"})
	require.NoError(t, err)
	assert.Equal(t, "P1 (R1)", v)
	assert.Nil(t, r.GetEntity("Missing"))
}

func TestRegistry_LoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		entities func() []*Entity
	}{
		{"duplicate name", func() []*Entity { return []*Entity{region(), region()} }},
		{"shared table", func() []*Entity {
			other := region()
			other.Name = "Zone"
			return []*Entity{region(), other}
		}},
		{"missing key field", func() []*Entity {
			e := region()
			e.PrimaryKey.Field = "code"
			return []*Entity{e}
		}},
		{"generated string key", func() []*Entity {
			e := region()
			e.PrimaryKey.Generated = true
			return []*Entity{e}
		}},
		{"duplicate field", func() []*Entity {
			e := region()
			e.Fields = append(e.Fields, Field{Name: "name", Type: "text"})
			return []*Entity{e}
		}},
		{"invalid computed name", func() []*Entity {
			e := region()
			e.Computed = []ComputedField{{Name: "display-name", Expression: "name"}}
			return []*Entity{e}
		}},
		{"invalid table", func() []*Entity {
			e := region()
			e.Table = "regions; drop"
			return []*Entity{e}
		}},
		{"broken computed expression", func() []*Entity {
			e := region()
			e.Computed = []ComputedField{{Name: "label", Expression: "name +"}}
			return []*Entity{e}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(discardLogger())
			require.NoError(t, r.Load([]*Entity{{
				Name: "Keep", Table: "keeps",
				PrimaryKey: PrimaryKey{Field: "id", Type: "int", Generated: true},
				Fields:     []Field{{Name: "id", Type: "int"}},
			}}))

			assert.Error(t, r.Load(tt.entities()))
			assert.NotNil(t, r.GetEntity("Keep"), "failed load leaves previous state")
		})
	}
}

func TestEntity_WritableFields(t *testing.T) {
	e := &Entity{
		Name:       "Property",
		Table:      "properties",
		PrimaryKey: PrimaryKey{Field: "id", Type: "uuid"},
		SoftDelete: true,
		Fields: []Field{
			{Name: "id", Type: "uuid"},
			{Name: "name", Type: "string"},
			{Name: "created_at", Type: "timestamp", Auto: "create"},
			{Name: "deleted_by_id", Type: "string", Nullable: true},
		},
	}
	var names []string
	for _, f := range e.WritableFields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"name"}, names)
	assert.Equal(t, []string{"id", "name", "created_at", "deleted_by_id", "deleted_at"}, e.Columns())

	e.PrimaryKey.Type = "string"
	assert.False(t, e.KeyHasGenerator())
	assert.Len(t, e.WritableFields(), 2)
}

func TestParseDefinitionAndMerge(t *testing.T) {
	def := []byte(`{
		"name": "Chapel",
		"table": "chapels",
		"primary_key": {"field": "id", "type": "int", "generated": true},
		"fields": [{"name": "id", "type": "int"}, {"name": "name", "type": "string"}],
		"computed": [{"name": "title", "expression": "upper(name)"}]
	}`)
	e, err := ParseDefinition(def)
	require.NoError(t, err)
	assert.Equal(t, "chapels", e.Table)
	assert.True(t, e.PrimaryKey.Generated)

	_, err = ParseDefinition([]byte(`{"name": "X", "computed": [{"name": "y"}]}`))
	assert.Error(t, err)

	_, err = ParseDefinition([]byte(`{`))
	assert.Error(t, err)

	shadow := region()
	merged := Merge([]*Entity{region()}, []*Entity{shadow, e}, discardLogger())
	require.Len(t, merged, 2)
	assert.Equal(t, "Chapel", merged[1].Name)
}
