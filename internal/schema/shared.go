package schema

import (
	"context"

	"heritage-catalog/internal/engine"
)

// Names of the types shared by every entity.
const (
	FilterOperatorEnum  = "FilterOperator"
	OrderDirectionEnum  = "OrderDirection"
	FilterConditionType = "FilterCondition"
	OrderByType         = "OrderBy"
	PaginationType      = "PaginationInput"
)

func sharedEnums() []*Enum {
	ops := make([]string, len(engine.FilterOperators))
	for i, op := range engine.FilterOperators {
		ops[i] = string(op)
	}
	return []*Enum{
		{Name: FilterOperatorEnum, Description: "Comparison applied by a filter condition", Values: ops},
		{Name: OrderDirectionEnum, Values: []string{string(engine.Asc), string(engine.Desc)}},
	}
}

func sharedInputs() []*InputObject {
	return []*InputObject{
		{
			Name:        FilterConditionType,
			Description: "One predicate; all conditions of a request are combined with AND",
			Fields: []InputField{
				{Name: "field", Type: Named(ScalarString).Required()},
				{Name: "operator", Type: Named(FilterOperatorEnum).Required()},
				{Name: "value", Type: Named(ScalarJSON)},
				{Name: "values", Type: ListOf(Named(ScalarJSON)), Description: "Operands of in, not_in and between"},
			},
		},
		{
			Name: OrderByType,
			Fields: []InputField{
				{Name: "field", Type: Named(ScalarString).Required()},
				{Name: "direction", Type: Named(OrderDirectionEnum), Default: string(engine.Asc)},
			},
		},
		{
			Name: PaginationType,
			Fields: []InputField{
				{Name: "page", Type: Named(ScalarInt), Default: engine.DefaultPage},
				{Name: "page_size", Type: Named(ScalarInt), Default: engine.DefaultPageSize},
			},
		},
	}
}

// pageObject builds the list envelope of one entity.
func pageObject(output *Object) *Object {
	return &Object{
		Name:        output.Name + "Page",
		Description: "A page of " + output.Name + " records",
		Fields: []Field{
			{Name: "items", Type: ListOf(Named(output.Name).Required()).Required(), Resolve: pageResolver(func(p *engine.Page) any { return p.Items })},
			{Name: "total_count", Type: Named(ScalarInt).Required(), Resolve: pageResolver(func(p *engine.Page) any { return p.TotalCount })},
			{Name: "page", Type: Named(ScalarInt).Required(), Resolve: pageResolver(func(p *engine.Page) any { return p.Page })},
			{Name: "page_size", Type: Named(ScalarInt).Required(), Resolve: pageResolver(func(p *engine.Page) any { return p.PageSize })},
			{Name: "total_pages", Type: Named(ScalarInt).Required(), Resolve: pageResolver(func(p *engine.Page) any { return p.TotalPages })},
			{Name: "has_next", Type: Named(ScalarBoolean).Required(), Resolve: pageResolver(func(p *engine.Page) any { return p.HasNext })},
			{Name: "has_previous", Type: Named(ScalarBoolean).Required(), Resolve: pageResolver(func(p *engine.Page) any { return p.HasPrevious })},
		},
	}
}

func pageResolver(get func(*engine.Page) any) Resolver {
	return func(_ context.Context, source any, _ map[string]any) (any, error) {
		p, ok := source.(*engine.Page)
		if !ok || p == nil {
			return nil, nil
		}
		return get(p), nil
	}
}
