package store

import (
	"context"
	"encoding/json"
	"fmt"

	"heritage-catalog/internal/metadata"
)

// Bootstrap creates the system tables.
func (s *Store) Bootstrap(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, s.Dialect.SystemTablesSQL()); err != nil {
		return fmt.Errorf("bootstrap system tables: %w", err)
	}
	return nil
}

// SaveDefinition stores an entity definition in _entities, replacing any
// existing definition with the same name.
func (s *Store) SaveDefinition(ctx context.Context, q Querier, e *metadata.Entity) error {
	def, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal definition %s: %w", e.Name, err)
	}
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		`INSERT INTO _entities (name, table_name, definition) VALUES (%s, %s, %s)
ON CONFLICT (name) DO UPDATE SET table_name = EXCLUDED.table_name, definition = EXCLUDED.definition, updated_at = CURRENT_TIMESTAMP`,
		pb.Add(e.Name), pb.Add(e.Table), pb.Add(string(def)))
	if _, err := q.ExecContext(ctx, query, pb.Params()...); err != nil {
		return MapError(s.Dialect, fmt.Errorf("save definition %s: %w", e.Name, err))
	}
	return nil
}

// DeleteDefinition removes a stored entity definition. The table is kept.
func (s *Store) DeleteDefinition(ctx context.Context, q Querier, name string) error {
	pb := s.Dialect.NewParamBuilder()
	n, err := Exec(ctx, q, "DELETE FROM _entities WHERE name = "+pb.Add(name), pb.Params()...)
	if err != nil {
		return fmt.Errorf("delete definition %s: %w", name, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
