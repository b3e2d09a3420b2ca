package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"heritage-catalog/internal/metadata"
)

type Migrator struct {
	store  *Store
	logger *slog.Logger
}

func NewMigrator(store *Store, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{store: store, logger: logger}
}

// MigrateAll migrates every entity in order.
func (m *Migrator) MigrateAll(ctx context.Context, entities []*metadata.Entity) error {
	for _, e := range entities {
		if err := m.Migrate(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Migrate ensures the table matches the entity metadata.
// Creates the table if it doesn't exist, or adds missing columns.
func (m *Migrator) Migrate(ctx context.Context, entity *metadata.Entity) error {
	exists, err := m.store.Dialect.TableExists(ctx, m.store.DB, entity.Table)
	if err != nil {
		return fmt.Errorf("check table exists: %w", err)
	}

	if !exists {
		return m.createTable(ctx, entity)
	}

	return m.alterTable(ctx, entity)
}

func (m *Migrator) createTable(ctx context.Context, entity *metadata.Entity) error {
	var cols []string
	for _, f := range entity.Fields {
		cols = append(cols, m.buildColumnDef(entity, f))
	}

	// Add deleted_at if soft delete is enabled and not already in fields
	if entity.SoftDelete && !entity.HasField(metadata.DeletedAtField) {
		cols = append(cols, metadata.DeletedAtField+" "+m.store.Dialect.ColumnType("timestamp", 0))
	}

	ddl := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", entity.Table, strings.Join(cols, ",\n  "))
	if _, err := m.store.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", entity.Table, err)
	}
	m.logger.Info("created table", slog.String("entity", entity.Name), slog.String("table", entity.Table))

	if err := m.createIndexes(ctx, entity); err != nil {
		return fmt.Errorf("create indexes for %s: %w", entity.Table, err)
	}
	return nil
}

func (m *Migrator) alterTable(ctx context.Context, entity *metadata.Entity) error {
	existing, err := m.store.Dialect.GetColumns(ctx, m.store.DB, entity.Table)
	if err != nil {
		return fmt.Errorf("get columns for %s: %w", entity.Table, err)
	}

	for _, f := range entity.Fields {
		if _, ok := existing[f.Name]; ok {
			continue
		}
		colType := m.store.Dialect.ColumnType(f.Type, f.Precision)
		notNull := ""
		if f.Required && !f.Nullable && colType == "TEXT" {
			notNull = " NOT NULL DEFAULT ''" // safe default for existing rows
		}
		ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s%s", entity.Table, f.Name, colType, notNull)
		if _, err := m.store.DB.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("add column %s.%s: %w", entity.Table, f.Name, err)
		}
		m.logger.Info("added column", slog.String("table", entity.Table), slog.String("column", f.Name))
	}

	if entity.SoftDelete {
		if _, ok := existing[metadata.DeletedAtField]; !ok {
			ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
				entity.Table, metadata.DeletedAtField, m.store.Dialect.ColumnType("timestamp", 0))
			if _, err := m.store.DB.ExecContext(ctx, ddl); err != nil {
				return fmt.Errorf("add deleted_at column to %s: %w", entity.Table, err)
			}
		}
	}

	if err := m.createIndexes(ctx, entity); err != nil {
		return fmt.Errorf("create indexes for %s: %w", entity.Table, err)
	}
	return nil
}

func (m *Migrator) buildColumnDef(entity *metadata.Entity, f metadata.Field) string {
	d := m.store.Dialect
	if entity.IsKey(f.Name) {
		pk := entity.PrimaryKey
		switch {
		case pk.Generated && (pk.Type == "int" || pk.Type == "bigint"):
			return f.Name + " " + d.SerialKeyType(pk.Type) + " PRIMARY KEY"
		case pk.Generated && pk.Type == "uuid" && d.UUIDDefault() != "":
			return f.Name + " " + d.ColumnType("uuid", 0) + " PRIMARY KEY " + d.UUIDDefault()
		default:
			return f.Name + " " + d.ColumnType(pk.Type, 0) + " PRIMARY KEY"
		}
	}

	col := f.Name + " " + d.ColumnType(f.Type, f.Precision)
	if f.Required && !f.Nullable {
		col += " NOT NULL"
	}
	if f.Default != nil {
		col += " DEFAULT " + defaultLiteral(f.Default)
	}
	return col
}

func defaultLiteral(v any) string {
	switch val := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case float64, float32, int, int32, int64:
		return fmt.Sprintf("%v", val)
	default:
		return "'" + strings.ReplaceAll(fmt.Sprintf("%v", val), "'", "''") + "'"
	}
}

func (m *Migrator) createIndexes(ctx context.Context, entity *metadata.Entity) error {
	for _, f := range entity.Fields {
		if f.Unique {
			ddl := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)",
				entity.Table, f.Name, entity.Table, f.Name)
			if _, err := m.store.DB.ExecContext(ctx, ddl); err != nil {
				return fmt.Errorf("create unique index on %s.%s: %w", entity.Table, f.Name, err)
			}
		}
	}

	if entity.SoftDelete {
		if _, err := m.store.DB.ExecContext(ctx, m.store.Dialect.SoftDeleteIndexSQL(entity.Table)); err != nil {
			return fmt.Errorf("create soft delete index on %s: %w", entity.Table, err)
		}
	}
	return nil
}
