package metadata

type Field struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Required    bool     `json:"required,omitempty"`
	Unique      bool     `json:"unique,omitempty"`
	Default     any      `json:"default,omitempty"`
	Nullable    bool     `json:"nullable,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Precision   int      `json:"precision,omitempty"`
	Auto        string   `json:"auto,omitempty"` // "create" or "update"
	Description string   `json:"description,omitempty"`
}

// IsAuto returns true if the field is auto-managed by the engine.
func (f Field) IsAuto() bool {
	return f.Auto == "create" || f.Auto == "update"
}

// HasDefault reports whether the store or engine supplies a value when the
// client omits it.
func (f Field) HasDefault() bool {
	return f.Default != nil || f.IsAuto()
}

// IsTemporal reports whether the field holds a date or timestamp.
func (f Field) IsTemporal() bool {
	return f.Type == "timestamp" || f.Type == "date"
}
