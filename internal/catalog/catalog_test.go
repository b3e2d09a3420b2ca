package catalog

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heritage-catalog/internal/config"
	"heritage-catalog/internal/engine"
	"heritage-catalog/internal/gql"
	"heritage-catalog/internal/metadata"
	"heritage-catalog/internal/schema"
	"heritage-catalog/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loaded(t *testing.T) *metadata.Registry {
	t.Helper()
	reg := metadata.NewRegistry(discardLogger())
	require.NoError(t, reg.Load(Entities()))
	return reg
}

func computed(t *testing.T, e *metadata.Entity, name string) metadata.ComputedDescriptor {
	t.Helper()
	for _, d := range e.ComputedFields() {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("%s has no computed field %s", e.Name, name)
	return metadata.ComputedDescriptor{}
}

func TestEntities_Load(t *testing.T) {
	reg := loaded(t)
	require.Len(t, reg.AllEntities(), 11)

	for _, e := range reg.AllEntities() {
		assert.True(t, e.SoftDelete, e.Name)
		assert.True(t, e.ClientGeneratedKey(), e.Name)
		assert.Equal(t, metadata.KindBoolean, computed(t, e, "is_deleted").Type.Kind, e.Name)
	}

	prop := reg.GetEntity("Property")
	require.NotNil(t, prop)
	assert.Equal(t, metadata.KindBoolean, computed(t, prop, "has_coordinates").Type.Kind)
	assert.Equal(t, metadata.KindString, computed(t, prop, "display_name").Type.Kind)
	assert.Equal(t, metadata.KindInteger, computed(t, reg.GetEntity("Transmission"), "year").Type.Kind)
}

func TestEntities_FreshCopies(t *testing.T) {
	a, b := Entities(), Entities()
	a[0].Fields[1].Name = "renamed"
	assert.Equal(t, "name", b[0].Fields[1].Name)
}

func TestEntities_Assemble(t *testing.T) {
	reg := loaded(t)
	s, err := schema.NewBuilder(&store.SQLiteDialect{}, schema.WithLogger(discardLogger())).Assemble(reg.AllEntities())
	require.NoError(t, err)

	names := make([]string, len(s.Entities))
	for i, api := range s.Entities {
		names[i] = api.Name
	}
	assert.Equal(t, []string{
		"region", "province", "locality", "diocese", "property", "transmission", "protection",
		"propertyosmext", "propertywikidataext", "historiographicsource", "citation",
	}, names)

	stats := s.Stats()
	assert.Equal(t, 11, stats.Entities)
	assert.Equal(t, 44, stats.Queries)
	assert.Equal(t, 44, stats.Mutations)

	_, err = gql.Compile(s)
	require.NoError(t, err)
}

func TestComputed_Property(t *testing.T) {
	ctx := context.Background()
	prop := loaded(t).GetEntity("Property")

	rec := metadata.Record{"id": "p1", "name": "San Millán", "address": "Calle Mayor 1", "latitude": 42.3261, "longitude": -2.8594}
	label, err := computed(t, prop, "coordinates_label").Resolve(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, "42.32610, -2.85940", label)

	display, err := computed(t, prop, "display_name").Resolve(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, "San Millán (Calle Mayor 1)", display)

	bare := metadata.Record{"id": "p2", "name": "Ermita", "address": nil, "latitude": nil, "longitude": nil}
	display, err = computed(t, prop, "display_name").Resolve(ctx, bare)
	require.NoError(t, err)
	assert.Equal(t, "Ermita", display)

	_, err = computed(t, prop, "coordinates_label").Resolve(ctx, bare)
	assert.ErrorIs(t, err, errNoCoordinates)

	has, err := computed(t, prop, "has_coordinates").Resolve(ctx, bare)
	require.NoError(t, err)
	assert.Equal(t, false, has)
}

func TestComputed_Sources(t *testing.T) {
	ctx := context.Background()
	reg := loaded(t)

	tests := []struct {
		entity string
		field  string
		rec    metadata.Record
		want   any
		err    bool
	}{
		{"Transmission", "year", metadata.Record{"transmission_date": "1987-03-12"}, 1987, false},
		{"Transmission", "year", metadata.Record{"transmission_date": nil}, nil, false},
		{"Transmission", "year", metadata.Record{"transmission_date": "abcd-01-01"}, nil, true},
		{"Transmission", "is_registration", metadata.Record{"kind": "registration"}, true, false},
		{"PropertyOSMExt", "osm_url", metadata.Record{"osm_type": "way", "osm_id": int64(123)}, "https://www.openstreetmap.org/way/123", false},
		{"PropertyOSMExt", "osm_url", metadata.Record{"osm_type": nil, "osm_id": nil}, nil, true},
		{"PropertyWikidataExt", "wikidata_url", metadata.Record{"wikidata_qid": "Q1163213"}, "https://www.wikidata.org/wiki/Q1163213", false},
		{"PropertyWikidataExt", "wikidata_url", metadata.Record{"wikidata_qid": "x"}, nil, true},
		{"PropertyWikidataExt", "commons_url", metadata.Record{"commons_category": "Iglesia de Santa María"}, "https://commons.wikimedia.org/wiki/Category:Iglesia_de_Santa_María", false},
		{"Diocese", "wikidata_url", metadata.Record{"wikidata_qid": nil}, nil, false},
		{"HistoriographicSource", "reference", metadata.Record{"title": "Arte románico", "author": nil, "publication_year": int64(1979)}, "Anon., Arte románico (1979)", false},
		{"Protection", "is_bic", metadata.Record{"figure": "inventoried"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.entity+"/"+tt.field, func(t *testing.T) {
			got, err := computed(t, reg.GetEntity(tt.entity), tt.field).Resolve(ctx, tt.rec)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEntities_MigrateAndWrite(t *testing.T) {
	ctx := context.Background()
	db, err := store.New(ctx, config.DatabaseConfig{Driver: "sqlite", Name: config.InMemory})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := loaded(t)
	require.NoError(t, store.NewMigrator(db, discardLogger()).MigrateAll(ctx, reg.AllEntities()))

	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	crud := engine.NewCRUD(reg.GetEntity("Transmission"), db.Dialect,
		engine.WithLogger(discardLogger()), engine.WithClock(func() time.Time { return now }))

	rec, err := crud.Create(ctx, db.DB, map[string]any{
		"property_id":       "p1",
		"transmission_date": "1911-07-01",
		"sale_price":        "15000.00",
	})
	require.NoError(t, err)
	assert.Equal(t, "sale", rec["kind"])
	assert.Equal(t, "15000.00", rec["sale_price"])
	require.IsType(t, time.Time{}, rec["created_at"])
	assert.WithinDuration(t, now, rec["created_at"].(time.Time), time.Millisecond)

	year, err := computed(t, crud.Entity(), "year").Resolve(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, 1911, year)

	props := engine.NewCRUD(reg.GetEntity("Property"), db.Dialect, engine.WithLogger(discardLogger()))
	p, err := props.Create(ctx, db.DB, map[string]any{"name": "Colegiata"})
	require.NoError(t, err)
	assert.Equal(t, false, p["is_bic"])
	assert.Equal(t, false, p["is_ruin"])
}
