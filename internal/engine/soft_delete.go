package engine

import (
	"fmt"

	"heritage-catalog/internal/metadata"
	"heritage-catalog/internal/store"
)

// BuildSoftDeleteSQL marks an active record as deleted, recording the actor
// when the entity has a deleted_by_id column.
func BuildSoftDeleteSQL(entity *metadata.Entity, dialect store.Dialect, id any, at any, actor *metadata.UserContext) (string, []any) {
	pb := dialect.NewParamBuilder()
	set := fmt.Sprintf("%s = %s", metadata.DeletedAtField, pb.Add(at))
	if entity.HasField(metadata.DeletedByField) && actor != nil {
		set += fmt.Sprintf(", %s = %s", metadata.DeletedByField, pb.Add(actor.ID))
	}
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s AND %s IS NULL",
		entity.Table, set, entity.PrimaryKey.Field, pb.Add(id), metadata.DeletedAtField)
	return sql, pb.Params()
}

// BuildRestoreSQL clears the deletion marker of a soft-deleted record.
func BuildRestoreSQL(entity *metadata.Entity, dialect store.Dialect, id any) (string, []any) {
	pb := dialect.NewParamBuilder()
	set := metadata.DeletedAtField + " = NULL"
	if entity.HasField(metadata.DeletedByField) {
		set += ", " + metadata.DeletedByField + " = NULL"
	}
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s AND %s IS NOT NULL",
		entity.Table, set, entity.PrimaryKey.Field, pb.Add(id), metadata.DeletedAtField)
	return sql, pb.Params()
}

// BuildHardDeleteSQL permanently removes a record.
func BuildHardDeleteSQL(entity *metadata.Entity, dialect store.Dialect, id any) (string, []any) {
	pb := dialect.NewParamBuilder()
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", entity.Table, entity.PrimaryKey.Field, pb.Add(id))
	return sql, pb.Params()
}
