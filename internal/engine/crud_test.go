package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heritage-catalog/internal/config"
	"heritage-catalog/internal/metadata"
	"heritage-catalog/internal/metrics"
	"heritage-catalog/internal/store"
)

func citationEntity() *metadata.Entity {
	return &metadata.Entity{
		Name:       "Citation",
		Table:      "citations",
		PrimaryKey: metadata.PrimaryKey{Field: "id", Type: "int", Generated: true},
		Fields: []metadata.Field{
			{Name: "id", Type: "int"},
			{Name: "label", Type: "string", Required: true},
			{Name: "code", Type: "string", Unique: true, Nullable: true},
		},
	}
}

// testClock advances one second per call.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	db       *store.Store
	clock    *testClock
	property *CRUD
	citation *CRUD
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s, err := store.New(ctx, config.DatabaseConfig{Driver: "sqlite", Name: config.InMemory})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	prop, cit := propertyEntity(), citationEntity()
	require.NoError(t, store.NewMigrator(s, discardLogger()).MigrateAll(ctx, []*metadata.Entity{prop, cit}))

	clock := &testClock{t: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	m := metrics.New(prometheus.NewRegistry())
	opts := []Option{WithLogger(discardLogger()), WithClock(clock.Now), WithMetrics(m)}
	return &fixture{
		db:       s,
		clock:    clock,
		property: NewCRUD(prop, s.Dialect, opts...),
		citation: NewCRUD(cit, s.Dialect, opts...),
		metrics:  m,
	}
}

func (f *fixture) createProperty(t *testing.T, data map[string]any) metadata.Record {
	t.Helper()
	rec, err := f.property.Create(context.Background(), f.db.DB, data)
	require.NoError(t, err)
	return rec
}

func TestCRUD_ListScopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []any
	for i := 0; i < 5; i++ {
		rec := f.createProperty(t, map[string]any{"name": fmt.Sprintf("Iglesia %d", i), "region_id": "R1"})
		ids = append(ids, rec["id"])
	}
	f.createProperty(t, map[string]any{"name": "Otra", "region_id": "R2"})
	for _, id := range ids[3:] {
		ok, err := f.property.Delete(ctx, f.db.DB, id)
		require.NoError(t, err)
		require.True(t, ok)
	}

	byRegion := []FilterCondition{{Field: "region_id", Operator: OpEq, Value: "R1"}}

	page, err := f.property.List(ctx, f.db.DB, ListRequest{Filters: byRegion})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalCount)
	assert.Len(t, page.Items, 3)
	for _, item := range page.Items {
		assert.Nil(t, item["deleted_at"])
	}

	deleted, err := f.property.ListDeleted(ctx, f.db.DB, ListRequest{Filters: byRegion})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted.TotalCount)
	for _, item := range deleted.Items {
		assert.NotNil(t, item["deleted_at"])
	}

	all, err := f.property.ListAll(ctx, f.db.DB, ListRequest{Filters: byRegion})
	require.NoError(t, err)
	assert.Equal(t, 5, all.TotalCount)

	included, err := f.property.List(ctx, f.db.DB, ListRequest{Filters: byRegion, IncludeDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, 5, included.TotalCount)
}

func TestCRUD_SoftDeleteLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := metadata.WithUser(context.Background(), &metadata.UserContext{ID: "curator-7"})

	rec, err := f.property.Create(ctx, f.db.DB, map[string]any{"name": "San Roque"})
	require.NoError(t, err)
	id := rec["id"]
	assert.Equal(t, "curator-7", rec["created_by_id"])

	ok, err := f.property.Delete(ctx, f.db.DB, id)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := f.property.Get(ctx, f.db.DB, id)
	require.NoError(t, err, "get returns soft-deleted records")
	assert.IsType(t, time.Time{}, got["deleted_at"])
	assert.Equal(t, "curator-7", got["deleted_by_id"])

	page, err := f.property.List(ctx, f.db.DB, ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalCount)

	ok, err = f.property.Delete(ctx, f.db.DB, id)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.property.Update(ctx, f.db.DB, id, map[string]any{"name": "Renamed"})
	assert.ErrorIs(t, err, ErrNotFound, "deleted records are not updatable")

	restored, err := f.property.Restore(ctx, f.db.DB, id)
	require.NoError(t, err)
	assert.Nil(t, restored["deleted_at"])
	assert.Nil(t, restored["deleted_by_id"])

	_, err = f.property.Restore(ctx, f.db.DB, id)
	assert.ErrorIs(t, err, ErrNotFound, "restoring an active record is a no-op")

	page, err = f.property.List(ctx, f.db.DB, ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)
}

func TestCRUD_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		f.createProperty(t, map[string]any{"name": fmt.Sprintf("P%02d", i)})
	}
	order := []OrderClause{{Field: "name", Direction: Asc}}

	tests := []struct {
		name      string
		page      *Pagination
		wantItems int
		wantPage  Pagination
		wantPages int
		next      bool
		prev      bool
		first     string
	}{
		{"default window", nil, 20, Pagination{1, 20}, 2, true, false, "P00"},
		{"last partial page", &Pagination{3, 10}, 5, Pagination{3, 10}, 3, false, true, "P20"},
		{"past the end", &Pagination{4, 10}, 0, Pagination{4, 10}, 3, false, true, ""},
		{"clamped size", &Pagination{1, 1000}, 25, Pagination{1, 100}, 1, false, false, "P00"},
		{"clamped page", &Pagination{0, 5}, 5, Pagination{1, 5}, 5, true, false, "P00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.property.List(ctx, f.db.DB, ListRequest{Order: order, Pagination: tt.page})
			require.NoError(t, err)
			assert.Equal(t, 25, page.TotalCount, "total is independent of the page window")
			assert.Len(t, page.Items, tt.wantItems)
			assert.Equal(t, tt.wantPage.Page, page.Page)
			assert.Equal(t, tt.wantPage.PageSize, page.PageSize)
			assert.Equal(t, tt.wantPages, page.TotalPages)
			assert.Equal(t, tt.next, page.HasNext)
			assert.Equal(t, tt.prev, page.HasPrevious)
			if tt.first != "" {
				assert.Equal(t, tt.first, page.Items[0]["name"])
			}
		})
	}
}

func TestCRUD_CreateGetUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.createProperty(t, map[string]any{
		"name":        "Monasterio de Santa María",
		"region_id":   "R1",
		"latitude":    42.1,
		"price":       "1500.5",
		"kind":        "monastery",
		"tags":        map[string]any{"heritage": "yes"},
		"declared_on": "1931-06-03",
		"unknown":     "ignored",
	})
	assert.NotEmpty(t, created["id"])
	assert.Equal(t, "1500.50", created["price"])
	assert.Equal(t, false, created["is_bic"])
	assert.Equal(t, map[string]any{"heritage": "yes"}, created["tags"])
	assert.Equal(t, "1931-06-03", created["declared_on"])
	assert.Nil(t, created["created_by_id"])
	require.IsType(t, time.Time{}, created["created_at"])

	got, err := f.property.Get(ctx, f.db.DB, created["id"])
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := f.property.Update(ctx, f.db.DB, created["id"], map[string]any{
		"name":      "Monasterio de Santa María la Real",
		"region_id": nil,
		"id":        "00000000-0000-0000-0000-000000000000",
	})
	require.NoError(t, err)
	for k, v := range created {
		switch k {
		case "name":
			assert.Equal(t, "Monasterio de Santa María la Real", updated[k])
		case "updated_at":
			assert.True(t, updated[k].(time.Time).After(v.(time.Time)))
		default:
			assert.Equal(t, v, updated[k], k)
		}
	}

	_, err = f.property.Update(ctx, f.db.DB, "4f1c3a1e-93c2-4d2b-9ad1-0c8f5b3d6e71", map[string]any{"name": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCRUD_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.property.Create(ctx, f.db.DB, map[string]any{"name": "Castillo", "kind": "castle"})
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VALIDATION_FAILED", appErr.Code)
	assert.Equal(t, "kind", appErr.Details[0].Field)

	_, err = f.property.Create(ctx, f.db.DB, map[string]any{"region_id": "R1"})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "required", appErr.Details[0].Rule)

	_, err = f.property.Create(ctx, f.db.DB, map[string]any{"name": "X", "latitude": "north"})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "latitude", appErr.Details[0].Field)

	_, err = f.citation.Create(ctx, f.db.DB, map[string]any{"label": "Madoz", "code": "M-1"})
	require.NoError(t, err)
	_, err = f.citation.Create(ctx, f.db.DB, map[string]any{"label": "Madoz bis", "code": "M-1"})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CONFLICT", appErr.Code)
	assert.NotContains(t, appErr.Message, "UNIQUE", "driver details are not exposed")
}

func TestCRUD_HardDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.citation.Create(ctx, f.db.DB, map[string]any{"label": "Catastro de Ensenada"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec["id"])

	ok, err := f.citation.Delete(ctx, f.db.DB, "1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.citation.Get(ctx, f.db.DB, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err = f.citation.Delete(ctx, f.db.DB, 1)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.citation.ListDeleted(ctx, f.db.DB, ListRequest{})
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = f.citation.Restore(ctx, f.db.DB, 1)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestCRUD_InvalidIdentifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.property.Get(ctx, f.db.DB, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.citation.Get(ctx, f.db.DB, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
	ok, err := f.property.Delete(ctx, f.db.DB, "")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Positive(t, testutil.CollectAndCount(f.metrics.OperationLatency))
}

func TestCRUD_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed := []map[string]any{
		{"name": "San Juan", "region_id": "R1", "latitude": 40.1, "price": "100.50", "kind": "church"},
		{"name": "Santa Ana", "region_id": "R1", "price": "250", "kind": "chapel"},
		{"name": "Ermita de san Roque", "region_id": "R2", "latitude": 38.5, "kind": "chapel"},
		{"name": "Catedral", "region_id": "R3", "latitude": 41.0, "price": "1000", "kind": "church"},
	}
	for _, s := range seed {
		f.createProperty(t, s)
	}

	tests := []struct {
		name  string
		conds []FilterCondition
		want  int
	}{
		{"like is case sensitive", []FilterCondition{{Field: "name", Operator: OpLike, Value: "San"}}, 2},
		{"ilike ignores case", []FilterCondition{{Field: "name", Operator: OpILike, Value: "san"}}, 3},
		{"like matches underscore literally", []FilterCondition{{Field: "name", Operator: OpLike, Value: "S_n"}}, 0},
		{"ilike matches underscore literally", []FilterCondition{{Field: "name", Operator: OpILike, Value: "s_n"}}, 0},
		{"ilike matches percent literally", []FilterCondition{{Field: "name", Operator: OpILike, Value: "s%a"}}, 0},
		{"in", []FilterCondition{{Field: "region_id", Operator: OpIn, Values: []any{"R1", "R2"}}}, 3},
		{"not in", []FilterCondition{{Field: "region_id", Operator: OpNotIn, Values: []any{"R1"}}}, 2},
		{"gt", []FilterCondition{{Field: "latitude", Operator: OpGt, Value: 40}}, 2},
		{"is null", []FilterCondition{{Field: "latitude", Operator: OpIsNull, Value: true}}, 1},
		{"is not null", []FilterCondition{{Field: "latitude", Operator: OpIsNull, Value: false}}, 3},
		{"between", []FilterCondition{{Field: "price", Operator: OpBetween, Values: []any{"100", "300"}}}, 2},
		{"enum eq", []FilterCondition{{Field: "kind", Operator: OpEq, Value: "chapel"}}, 2},
		{"conditions combine with AND", []FilterCondition{
			{Field: "kind", Operator: OpEq, Value: "chapel"},
			{Field: "region_id", Operator: OpEq, Value: "R1"},
		}, 1},
		{"unknown field is dropped", []FilterCondition{{Field: "colour", Operator: OpEq, Value: "red"}}, 4},
		{"uncoercible value is dropped", []FilterCondition{{Field: "latitude", Operator: OpGt, Value: "north"}}, 4},
		{"empty in list is a no-op", []FilterCondition{{Field: "region_id", Operator: OpIn}}, 4},
		{"between needs two values", []FilterCondition{{Field: "price", Operator: OpBetween, Values: []any{"1"}}}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.property.List(ctx, f.db.DB, ListRequest{Filters: tt.conds})
			require.NoError(t, err)
			assert.Equal(t, tt.want, page.TotalCount)
			assert.Len(t, page.Items, tt.want)
		})
	}

	page, err := f.property.List(ctx, f.db.DB, ListRequest{Order: []OrderClause{{Field: "name", Direction: Desc}}})
	require.NoError(t, err)
	var names []any
	for _, item := range page.Items {
		names = append(names, item["name"])
	}
	assert.Equal(t, []any{"Santa Ana", "San Juan", "Ermita de san Roque", "Catedral"}, names)

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.DroppedConditions.WithLabelValues("Property", "filter")))
}
