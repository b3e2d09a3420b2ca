package admin

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heritage-catalog/internal/auth"
	"heritage-catalog/internal/catalog"
	"heritage-catalog/internal/config"
	"heritage-catalog/internal/gql"
	"heritage-catalog/internal/metadata"
	"heritage-catalog/internal/store"
)

const secret = "admin-test-secret"

type fixture struct {
	app *fiber.App
	db  *store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := store.New(ctx, config.DatabaseConfig{Driver: "sqlite", Name: config.InMemory})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Bootstrap(ctx))

	builtin := catalog.Entities()
	reg := metadata.NewRegistry(logger)
	require.NoError(t, reg.Load(builtin))

	migrator := store.NewMigrator(db, logger)
	require.NoError(t, migrator.MigrateAll(ctx, reg.AllEntities()))

	h := NewHandler(db, reg, migrator, builtin, logger)
	app := fiber.New(fiber.Config{ErrorHandler: gql.ErrorHandler(logger)})
	h.Register(app, auth.Middleware(secret), auth.RequireRole("admin"))
	return &fixture{app: app, db: db}
}

func (f *fixture) call(t *testing.T, method, path, body string, roles ...string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if roles != nil {
		token, err := auth.GenerateAccessToken("curator", roles, secret, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

const bellTower = `{
	"table": "bell_towers",
	"primary_key": {"field": "id", "type": "uuid"},
	"soft_delete": true,
	"fields": [
		{"name": "id", "type": "uuid"},
		{"name": "property_id", "type": "string", "required": true},
		{"name": "bells", "type": "int", "nullable": true}
	],
	"computed": [{"name": "has_bells", "expression": "bells != nil && bells > 0"}]
}`

func TestAdmin_RequiresAdminRole(t *testing.T) {
	f := newFixture(t)

	status, _ := f.call(t, http.MethodGet, "/admin/entities", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, out := f.call(t, http.MethodGet, "/admin/entities", "", "editor")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", out["error"].(map[string]any)["code"])
}

func TestAdmin_DefinitionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status, out := f.call(t, http.MethodPut, "/admin/entities/BellTower", bellTower, "admin")
	require.Equal(t, http.StatusOK, status, out)
	assert.Equal(t, true, out["restart_required"])

	exists, err := f.db.Dialect.TableExists(ctx, f.db.DB, "bell_towers")
	require.NoError(t, err)
	assert.True(t, exists)

	stored, err := metadata.LoadDefinitions(ctx, f.db.DB, nil)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "BellTower", stored[0].Name)

	status, out = f.call(t, http.MethodGet, "/admin/entities", "", "admin")
	require.Equal(t, http.StatusOK, status)
	data := out["data"].(map[string]any)
	assert.Contains(t, data["active"], "Property")
	assert.NotContains(t, data["active"], "BellTower")
	assert.Len(t, data["stored"], 1)

	// a pending definition also owns its table and API name
	status, out = f.call(t, http.MethodPut, "/admin/entities/BellTowers", strings.Replace(bellTower, "bell_towers", "towers", 1), "admin")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", out["error"].(map[string]any)["code"])
	status, _ = f.call(t, http.MethodPut, "/admin/entities/Belfry", bellTower, "admin")
	assert.Equal(t, http.StatusConflict, status)

	// redefining the same entity keeps its own claims
	status, _ = f.call(t, http.MethodPut, "/admin/entities/BellTower", bellTower, "admin")
	assert.Equal(t, http.StatusOK, status)

	status, _ = f.call(t, http.MethodDelete, "/admin/entities/BellTower", "", "admin")
	assert.Equal(t, http.StatusOK, status)
	status, out = f.call(t, http.MethodDelete, "/admin/entities/BellTower", "", "admin")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", out["error"].(map[string]any)["code"])
}

func TestAdmin_Rejections(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"built-in", "/admin/entities/Property", bellTower, http.StatusConflict, "CONFLICT"},
		{"malformed json", "/admin/entities/Bell", `{"table":`, http.StatusBadRequest, "INVALID_PAYLOAD"},
		{"func computed", "/admin/entities/Bell", `{"table": "bells", "primary_key": {"field": "id"}, "fields": [{"name": "id", "type": "int"}], "computed": [{"name": "x"}]}`, http.StatusBadRequest, "INVALID_PAYLOAD"},
		{"missing key", "/admin/entities/Bell", `{"table": "bells", "primary_key": {"field": "id"}, "fields": [{"name": "name", "type": "string"}]}`, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{"table owned by built-in", "/admin/entities/Chapel", strings.Replace(bellTower, "bell_towers", "properties", 1), http.StatusConflict, "CONFLICT"},
		{"canonical name of built-in", "/admin/entities/Properties", bellTower, http.StatusConflict, "CONFLICT"},
		{"invalid computed name", "/admin/entities/Bell", `{"table": "bells", "primary_key": {"field": "id"}, "fields": [{"name": "id", "type": "int"}], "computed": [{"name": "has-bells", "expression": "true"}]}`, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{"bad expression", "/admin/entities/Bell", `{"table": "bells", "primary_key": {"field": "id"}, "fields": [{"name": "id", "type": "int"}], "computed": [{"name": "x", "expression": "(("}]}`, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := f.call(t, http.MethodPut, tt.path, tt.body, "admin")
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, out["error"].(map[string]any)["code"])
		})
	}

	cols, err := f.db.Dialect.GetColumns(context.Background(), f.db.DB, "properties")
	require.NoError(t, err)
	assert.Contains(t, cols, "name")
	assert.NotContains(t, cols, "bells")

	status, out := f.call(t, http.MethodGet, "/admin/entities/Citation", "", "admin")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "citations", out["data"].(map[string]any)["table"])
}
