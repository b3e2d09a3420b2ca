package schema

import (
	"heritage-catalog/internal/engine"
)

// Argument names of the generated root fields.
const (
	argID             = "id"
	argData           = "data"
	argFilters        = "filters"
	argOrderBy        = "order_by"
	argPagination     = "pagination"
	argIncludeDeleted = "include_deleted"
)

func listArguments(withIncludeDeleted bool) []Argument {
	args := []Argument{
		{Name: argFilters, Type: ListOf(Named(FilterConditionType).Required())},
		{Name: argOrderBy, Type: ListOf(Named(OrderByType).Required())},
		{Name: argPagination, Type: Named(PaginationType)},
	}
	if withIncludeDeleted {
		args = append(args, Argument{Name: argIncludeDeleted, Type: Named(ScalarBoolean), Default: false})
	}
	return args
}

// listRequest decodes the list arguments as delivered by the GraphQL
// runtime: input objects as maps, lists as []any. Malformed entries are
// skipped; the query builder handles unknown fields and operators.
func listRequest(args map[string]any) engine.ListRequest {
	var req engine.ListRequest
	for _, raw := range asList(args[argFilters]) {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		field, _ := m["field"].(string)
		op, _ := m["operator"].(string)
		req.Filters = append(req.Filters, engine.FilterCondition{
			Field:    field,
			Operator: engine.FilterOperator(op),
			Value:    m["value"],
			Values:   asList(m["values"]),
		})
	}
	for _, raw := range asList(args[argOrderBy]) {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		field, _ := m["field"].(string)
		dir, _ := m["direction"].(string)
		if dir == "" {
			dir = string(engine.Asc)
		}
		req.Order = append(req.Order, engine.OrderClause{Field: field, Direction: engine.OrderDirection(dir)})
	}
	if m, ok := args[argPagination].(map[string]any); ok {
		p := engine.Pagination{Page: engine.DefaultPage, PageSize: engine.DefaultPageSize}
		if v, ok := asInt(m["page"]); ok {
			p.Page = v
		}
		if v, ok := asInt(m["page_size"]); ok {
			p.PageSize = v
		}
		req.Pagination = &p
	}
	req.IncludeDeleted, _ = args[argIncludeDeleted].(bool)
	return req
}

func asList(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case nil:
		return nil
	default:
		return []any{l}
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
