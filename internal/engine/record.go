package engine

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"heritage-catalog/internal/metadata"
)

// decodeRecord converts a raw driver row into a Record whose values follow
// the declared field types, so that SQLite and PostgreSQL rows look alike.
func decodeRecord(entity *metadata.Entity, row map[string]any) metadata.Record {
	rec := make(metadata.Record, len(row))
	for col, v := range row {
		f := entity.GetField(col)
		switch {
		case f != nil:
			rec[col] = decodeValue(*f, v)
		case col == metadata.DeletedAtField:
			rec[col] = decodeValue(metadata.Field{Name: col, Type: "timestamp"}, v)
		default:
			rec[col] = v
		}
	}
	return rec
}

func decodeValue(f metadata.Field, v any) any {
	if v == nil {
		return nil
	}
	switch f.Type {
	case "boolean", "bool":
		if b, err := toBool(v); err == nil {
			return b
		}
	case "int", "integer", "bigint":
		if n, err := toInt64(v); err == nil {
			return n
		}
	case "float":
		if n, err := toFloat64(v); err == nil {
			return n
		}
	case "decimal":
		switch n := v.(type) {
		case float64:
			if f.Precision > 0 {
				return strconv.FormatFloat(n, 'f', f.Precision, 64)
			}
			return strconv.FormatFloat(n, 'f', -1, 64)
		case int64:
			return strconv.FormatInt(n, 10)
		}
	case "uuid":
		switch u := v.(type) {
		case [16]byte:
			return uuid.UUID(u).String()
		case uuid.UUID:
			return u.String()
		}
	case "timestamp", "datetime":
		if t, err := toTime(v); err == nil {
			return t.UTC()
		}
	case "date":
		switch t := v.(type) {
		case time.Time:
			return t.Format(dateLayout)
		case string:
			if len(t) > len(dateLayout) {
				if parsed, err := toTime(t); err == nil {
					return parsed.Format(dateLayout)
				}
			}
		}
	case "json":
		if s, ok := v.(string); ok {
			var out any
			if err := json.Unmarshal([]byte(s), &out); err == nil {
				return out
			}
		}
	}
	return v
}
