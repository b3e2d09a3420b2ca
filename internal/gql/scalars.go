package gql

import (
	"math"
	"strconv"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"heritage-catalog/internal/schema"
)

const dateLayout = "2006-01-02"

// JSON passes arbitrary values through unchanged.
var JSON = graphql.NewScalar(graphql.ScalarConfig{
	Name:         schema.ScalarJSON,
	Description:  "Arbitrary JSON value",
	Serialize:    func(v any) any { return v },
	ParseValue:   func(v any) any { return v },
	ParseLiteral: parseJSONLiteral,
})

// Date is a calendar date in YYYY-MM-DD form.
var Date = graphql.NewScalar(graphql.ScalarConfig{
	Name:        schema.ScalarDate,
	Description: "Calendar date, YYYY-MM-DD",
	Serialize: func(v any) any {
		switch t := v.(type) {
		case time.Time:
			return t.Format(dateLayout)
		case *time.Time:
			if t == nil {
				return nil
			}
			return t.Format(dateLayout)
		case string:
			return t
		}
		return nil
	},
	ParseValue: parseDate,
	ParseLiteral: func(v ast.Value) any {
		if s, ok := v.(*ast.StringValue); ok {
			return parseDate(s.Value)
		}
		return nil
	},
})

// DateTime is an RFC 3339 timestamp, always rendered in UTC.
var DateTime = graphql.NewScalar(graphql.ScalarConfig{
	Name:        schema.ScalarDateTime,
	Description: "RFC 3339 timestamp",
	Serialize: func(v any) any {
		switch t := v.(type) {
		case time.Time:
			return t.UTC().Format(time.RFC3339Nano)
		case *time.Time:
			if t == nil {
				return nil
			}
			return t.UTC().Format(time.RFC3339Nano)
		case string:
			return t
		}
		return nil
	},
	ParseValue: parseDateTime,
	ParseLiteral: func(v ast.Value) any {
		if s, ok := v.(*ast.StringValue); ok {
			return parseDateTime(s.Value)
		}
		return nil
	},
})

// Decimal is an exact number transported as a string.
var Decimal = graphql.NewScalar(graphql.ScalarConfig{
	Name:        schema.ScalarDecimal,
	Description: "Exact decimal number encoded as a string",
	Serialize: func(v any) any {
		switch n := v.(type) {
		case string:
			return n
		case float64:
			return strconv.FormatFloat(n, 'f', -1, 64)
		case int64:
			return strconv.FormatInt(n, 10)
		case int:
			return strconv.Itoa(n)
		}
		return nil
	},
	ParseValue: parseDecimal,
	ParseLiteral: func(v ast.Value) any {
		switch lit := v.(type) {
		case *ast.StringValue:
			return parseDecimal(lit.Value)
		case *ast.IntValue:
			return parseDecimal(lit.Value)
		case *ast.FloatValue:
			return parseDecimal(lit.Value)
		}
		return nil
	},
})

func customScalars() map[string]*graphql.Scalar {
	return map[string]*graphql.Scalar{
		schema.ScalarJSON:     JSON,
		schema.ScalarDate:     Date,
		schema.ScalarDateTime: DateTime,
		schema.ScalarDecimal:  Decimal,
	}
}

func parseDate(v any) any {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return nil
	}
	return s
}

func parseDateTime(v any) any {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return t.UTC()
}

func parseDecimal(v any) any {
	switch n := v.(type) {
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil
		}
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	}
	return nil
}

func parseJSONLiteral(v ast.Value) any {
	switch lit := v.(type) {
	case *ast.StringValue:
		return lit.Value
	case *ast.BooleanValue:
		return lit.Value
	case *ast.IntValue:
		if n, err := strconv.ParseInt(lit.Value, 10, 64); err == nil {
			return n
		}
		return nil
	case *ast.FloatValue:
		if f, err := strconv.ParseFloat(lit.Value, 64); err == nil {
			return f
		}
		return nil
	case *ast.EnumValue:
		return lit.Value
	case *ast.ListValue:
		out := make([]any, len(lit.Values))
		for i, item := range lit.Values {
			out[i] = parseJSONLiteral(item)
		}
		return out
	case *ast.ObjectValue:
		out := make(map[string]any, len(lit.Fields))
		for _, f := range lit.Fields {
			out[f.Name.Value] = parseJSONLiteral(f.Value)
		}
		return out
	}
	return nil
}
