package metadata

// Reserved column names managed by the engine.
const (
	DeletedAtField = "deleted_at"
	DeletedByField = "deleted_by_id"
	CreatedByField = "created_by_id"
	UpdatedByField = "updated_by_id"
)

type Entity struct {
	Name        string          `json:"name"`
	Table       string          `json:"table"`
	Description string          `json:"description,omitempty"`
	PrimaryKey  PrimaryKey      `json:"primary_key"`
	SoftDelete  bool            `json:"soft_delete"`
	Fields      []Field         `json:"fields"`
	Computed    []ComputedField `json:"computed,omitempty"`

	detected []ComputedDescriptor
}

type PrimaryKey struct {
	Field     string `json:"field"`
	Type      string `json:"type"`      // uuid, int, bigint, string
	Generated bool   `json:"generated"` // assigned by the database
}

// GetField returns a pointer to the field with the given name, or nil.
func (e *Entity) GetField(name string) *Field {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i]
		}
	}
	return nil
}

// HasField returns true if the entity has a stored field with the given name.
func (e *Entity) HasField(name string) bool {
	return e.GetField(name) != nil
}

// FieldNames returns all stored field names in declaration order.
func (e *Entity) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Name
	}
	return names
}

// KeyField returns the primary key field descriptor.
func (e *Entity) KeyField() *Field {
	return e.GetField(e.PrimaryKey.Field)
}

// IsKey reports whether name is the primary key column.
func (e *Entity) IsKey(name string) bool {
	return name == e.PrimaryKey.Field
}

// ClientGeneratedKey reports whether create must mint the key itself.
func (e *Entity) ClientGeneratedKey() bool {
	return !e.PrimaryKey.Generated && e.PrimaryKey.Type == "uuid"
}

// KeyHasGenerator reports whether the key is assigned by the database or the engine.
func (e *Entity) KeyHasGenerator() bool {
	return e.PrimaryKey.Generated || e.ClientGeneratedKey()
}

// IsManaged reports whether the engine owns writes to the field.
func (e *Entity) IsManaged(f Field) bool {
	if f.IsAuto() {
		return true
	}
	switch f.Name {
	case DeletedAtField, DeletedByField, CreatedByField, UpdatedByField:
		return true
	}
	return false
}

// WritableFields returns fields that can be set by the client on create.
// Excludes generated keys and engine-managed fields.
func (e *Entity) WritableFields() []Field {
	var fields []Field
	for _, f := range e.Fields {
		if e.IsKey(f.Name) && e.KeyHasGenerator() {
			continue
		}
		if e.IsManaged(f) {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

// UpdatableFields returns fields that can be set on UPDATE.
// Excludes the key and engine-managed fields.
func (e *Entity) UpdatableFields() []Field {
	var fields []Field
	for _, f := range e.Fields {
		if e.IsKey(f.Name) {
			continue
		}
		if e.IsManaged(f) {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

// Columns returns the stored columns, including the soft delete marker when
// the entity declares soft delete without listing the column explicitly.
func (e *Entity) Columns() []string {
	cols := e.FieldNames()
	if e.SoftDelete && !e.HasField(DeletedAtField) {
		cols = append(cols, DeletedAtField)
	}
	return cols
}

// ComputedFields returns the computed descriptors resolved by DetectComputed.
// Populated when the entity is loaded into a Registry.
func (e *Entity) ComputedFields() []ComputedDescriptor {
	return e.detected
}
