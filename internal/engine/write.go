package engine

import (
	"fmt"
	"strings"

	"heritage-catalog/internal/metadata"
	"heritage-catalog/internal/store"
)

// column is one column assignment of an INSERT or UPDATE, kept in field
// declaration order so generated SQL is deterministic.
type column struct {
	name  string
	value any
}

// BuildInsertSQL inserts the given columns and returns the primary key.
func BuildInsertSQL(entity *metadata.Entity, dialect store.Dialect, cols []column) (string, []any) {
	pb := dialect.NewParamBuilder()
	if len(cols) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", entity.Table, entity.PrimaryKey.Field), nil
	}
	names := make([]string, len(cols))
	phs := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
		phs[i] = pb.Add(c.value)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		entity.Table, strings.Join(names, ", "), strings.Join(phs, ", "), entity.PrimaryKey.Field)
	return sql, pb.Params()
}

// BuildUpdateSQL updates the given columns of one record. Soft-deleted
// records are not updatable.
func BuildUpdateSQL(entity *metadata.Entity, dialect store.Dialect, id any, cols []column) (string, []any) {
	if len(cols) == 0 {
		return "", nil
	}
	pb := dialect.NewParamBuilder()
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = %s", c.name, pb.Add(c.value))
	}
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		entity.Table, strings.Join(sets, ", "), entity.PrimaryKey.Field, pb.Add(id))
	if entity.SoftDelete {
		sql += " AND " + metadata.DeletedAtField + " IS NULL"
	}
	return sql, pb.Params()
}
