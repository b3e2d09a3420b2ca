package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Queryer is the subset of *sql.DB used to read stored definitions.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// LoadDefinitions reads entity definitions stored as JSON in the _entities
// system table. Rows with invalid JSON are skipped with a warning.
func LoadDefinitions(ctx context.Context, q Queryer, logger *slog.Logger) ([]*Entity, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rows, err := q.QueryContext(ctx, "SELECT name, definition FROM _entities ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	defer rows.Close()

	var entities []*Entity
	for rows.Next() {
		var name string
		var defJSON []byte
		if err := rows.Scan(&name, &defJSON); err != nil {
			return nil, fmt.Errorf("scan entity row: %w", err)
		}

		entity, err := ParseDefinition(defJSON)
		if err != nil {
			logger.Warn("skipping stored entity definition",
				slog.String("entity", name), slog.Any("error", err))
			continue
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// ParseDefinition decodes one JSON entity definition.
func ParseDefinition(data []byte) (*Entity, error) {
	var entity Entity
	if err := json.Unmarshal(data, &entity); err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}
	for _, c := range entity.Computed {
		if c.Expression == "" {
			return nil, fmt.Errorf("computed field %s: stored definitions need an expression", c.Name)
		}
	}
	return &entity, nil
}

// Merge appends stored definitions to the built-in set. Built-in entities
// win when names collide.
func Merge(builtin, stored []*Entity, logger *slog.Logger) []*Entity {
	if logger == nil {
		logger = slog.Default()
	}
	names := make(map[string]bool, len(builtin))
	out := make([]*Entity, 0, len(builtin)+len(stored))
	for _, e := range builtin {
		names[e.Name] = true
		out = append(out, e)
	}
	for _, e := range stored {
		if names[e.Name] {
			logger.Warn("stored definition ignored: built-in entity has the same name",
				slog.String("entity", e.Name))
			continue
		}
		names[e.Name] = true
		out = append(out, e)
	}
	return out
}
