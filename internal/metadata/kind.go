package metadata

import "regexp"

// Kind is the abstract scalar kind a field is surfaced as, independent of
// how the column is stored.
type Kind string

const (
	KindInteger    Kind = "integer"
	KindString     Kind = "string"
	KindBoolean    Kind = "boolean"
	KindFloat      Kind = "float"
	KindDate       Kind = "date"
	KindDateTime   Kind = "datetime"
	KindDecimal    Kind = "decimal"
	KindIdentifier Kind = "identifier"
	KindJSON       Kind = "json"
	KindEnum       Kind = "enum"
	KindList       Kind = "list"
)

// ScalarType is the result of type inference for one field.
type ScalarType struct {
	Kind     Kind
	Optional bool
	Values   []string // enum values, only for KindEnum
}

var enumValuePattern = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

// InferType maps a stored field to its abstract scalar kind. Keys and fields
// named "id" are always identifiers; unknown native types degrade to string.
func InferType(e *Entity, f Field) ScalarType {
	st := ScalarType{Kind: nativeKind(f), Optional: f.Nullable}
	if (e != nil && e.IsKey(f.Name)) || f.Name == "id" {
		st.Kind = KindIdentifier
		st.Optional = false
		return st
	}
	if st.Kind == KindEnum {
		if !validEnumValues(f.Enum) {
			st.Kind = KindString
		} else {
			st.Values = append([]string(nil), f.Enum...)
		}
	}
	return st
}

func nativeKind(f Field) Kind {
	switch f.Type {
	case "int", "integer", "bigint":
		return KindInteger
	case "string", "text":
		return KindString
	case "boolean", "bool":
		return KindBoolean
	case "float":
		return KindFloat
	case "decimal":
		return KindDecimal
	case "uuid":
		return KindIdentifier
	case "timestamp", "datetime":
		return KindDateTime
	case "date":
		return KindDate
	case "json":
		return KindJSON
	case "enum":
		return KindEnum
	default:
		return KindString
	}
}

func validEnumValues(values []string) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if !enumValuePattern.MatchString(v) {
			return false
		}
		switch v {
		case "true", "false", "null":
			return false
		}
	}
	return true
}
