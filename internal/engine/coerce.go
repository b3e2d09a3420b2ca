package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"heritage-catalog/internal/metadata"
	"heritage-catalog/internal/store"
)

const dateLayout = "2006-01-02"

var errNilValue = errors.New("value is null")

// CoerceKey converts a caller-supplied identifier into the native key
// representation of the entity.
func CoerceKey(entity *metadata.Entity, id any) (any, error) {
	if id == nil {
		return nil, errNilValue
	}
	switch entity.PrimaryKey.Type {
	case "uuid":
		u, err := uuid.Parse(strings.TrimSpace(fmt.Sprint(id)))
		if err != nil {
			return nil, fmt.Errorf("invalid uuid %q: %w", id, err)
		}
		return u.String(), nil
	case "int", "bigint":
		return toInt64(id)
	default:
		s := fmt.Sprint(id)
		if s == "" {
			return nil, errors.New("empty key")
		}
		return s, nil
	}
}

// coerceValue converts a loosely typed input (GraphQL variables, JSON) into
// the parameter value the dialect expects for the field.
func coerceValue(d store.Dialect, f metadata.Field, v any) (any, error) {
	if v == nil {
		return nil, errNilValue
	}
	switch f.Type {
	case "int", "integer", "bigint":
		return toInt64(v)
	case "float":
		return toFloat64(v)
	case "decimal":
		n, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s), nil
		}
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	case "boolean", "bool":
		return toBool(v)
	case "uuid":
		u, err := uuid.Parse(fmt.Sprint(v))
		if err != nil {
			return nil, fmt.Errorf("invalid uuid %q", v)
		}
		return u.String(), nil
	case "timestamp", "datetime":
		t, err := toTime(v)
		if err != nil {
			return nil, err
		}
		return d.EncodeTime(t), nil
	case "date":
		t, err := toTime(v)
		if err != nil {
			return nil, err
		}
		return t.Format(dateLayout), nil
	case "json":
		if s, ok := v.(string); ok && json.Valid([]byte(s)) {
			return s, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return string(b), nil
	case "enum":
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("enum value must be a string, got %T", v)
		}
		return s, nil
	default:
		switch val := v.(type) {
		case string:
			return val, nil
		case fmt.Stringer:
			return val.String(), nil
		case map[string]any, []any:
			return nil, fmt.Errorf("expected a scalar, got %T", v)
		default:
			return fmt.Sprint(val), nil
		}
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		if n >= 0x1p63 || n < -0x1p63 {
			return 0, fmt.Errorf("%v is out of integer range", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("cannot use %T as integer", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot use %T as number", v)
	}
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case int:
		return b != 0, nil
	case int64:
		return b != 0, nil
	case float64:
		return b != 0, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, fmt.Errorf("invalid boolean %q", b)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("cannot use %T as boolean", v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	store.TimeLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	dateLayout,
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid time %q", t)
	default:
		return time.Time{}, fmt.Errorf("cannot use %T as time", v)
	}
}
