package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"heritage-catalog/internal/metadata"
	"heritage-catalog/internal/store"
)

type FilterOperator string

const (
	OpEq      FilterOperator = "eq"
	OpNe      FilterOperator = "ne"
	OpGt      FilterOperator = "gt"
	OpGte     FilterOperator = "gte"
	OpLt      FilterOperator = "lt"
	OpLte     FilterOperator = "lte"
	OpLike    FilterOperator = "like"
	OpILike   FilterOperator = "ilike"
	OpIn      FilterOperator = "in"
	OpNotIn   FilterOperator = "not_in"
	OpIsNull  FilterOperator = "is_null"
	OpBetween FilterOperator = "between"
)

// FilterOperators lists every supported operator in declaration order.
var FilterOperators = []FilterOperator{
	OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpLike, OpILike, OpIn, OpNotIn, OpIsNull, OpBetween,
}

var comparisonSQL = map[FilterOperator]string{
	OpEq: "=", OpNe: "!=", OpGt: ">", OpGte: ">=", OpLt: "<", OpLte: "<=",
}

// FilterCondition is one caller-supplied predicate. Values is used by in,
// not_in and between; Value by every other operator.
type FilterCondition struct {
	Field    string         `json:"field"`
	Operator FilterOperator `json:"operator"`
	Value    any            `json:"value,omitempty"`
	Values   []any          `json:"values,omitempty"`
}

type OrderDirection string

const (
	Asc  OrderDirection = "asc"
	Desc OrderDirection = "desc"
)

type OrderClause struct {
	Field     string         `json:"field"`
	Direction OrderDirection `json:"direction"`
}

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Normalize clamps page to >= 1 and page size to [1, MaxPageSize].
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 1
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// DeletedScope selects records by soft-delete state.
type DeletedScope int

const (
	ScopeActive DeletedScope = iota
	ScopeDeleted
	ScopeAll
)

// QueryPlan is a resolved query: every clause refers to a real column and
// every value is coerced.
type QueryPlan struct {
	Entity     *metadata.Entity
	Scope      DeletedScope
	Filters    []WhereClause
	Sorts      []SortClause
	Pagination Pagination
	paginate   bool
}

type WhereClause struct {
	Column   string
	Operator FilterOperator
	Value    any
	Values   []any
}

type SortClause struct {
	Column string
	Dir    string // ASC or DESC
}

type QueryResult struct {
	SQL    string
	Params []any
}

// QueryBuilder translates generic filter, order and pagination requests into
// SQL for one entity.
type QueryBuilder struct {
	entity  *metadata.Entity
	dialect store.Dialect
	columns map[string]metadata.Field
	selects string
	opts    options
}

// NewQueryBuilder validates the entity columns once and returns a builder.
func NewQueryBuilder(entity *metadata.Entity, dialect store.Dialect, opts ...Option) *QueryBuilder {
	o := newOptions(opts)
	cols := make(map[string]metadata.Field, len(entity.Fields)+1)
	for _, f := range entity.Fields {
		cols[f.Name] = f
	}
	if entity.SoftDelete && !entity.HasField(metadata.DeletedAtField) {
		cols[metadata.DeletedAtField] = metadata.Field{Name: metadata.DeletedAtField, Type: "timestamp", Nullable: true}
	}
	return &QueryBuilder{
		entity:  entity,
		dialect: dialect,
		columns: cols,
		selects: strings.Join(entity.Columns(), ", "),
		opts:    o,
	}
}

// NewPlan starts a plan for the given soft-delete scope. Entities without
// soft delete ignore the scope.
func (qb *QueryBuilder) NewPlan(scope DeletedScope) *QueryPlan {
	if !qb.entity.SoftDelete {
		scope = ScopeAll
	}
	return &QueryPlan{Entity: qb.entity, Scope: scope}
}

// ApplyFilters resolves conditions into the plan. Conditions on unknown
// fields, with unsupported operators, or with values that cannot be coerced
// are dropped and logged. Empty value lists make in / not_in a no-op and a
// between without exactly two values is a no-op.
func (qb *QueryBuilder) ApplyFilters(plan *QueryPlan, conds []FilterCondition) {
	for _, c := range conds {
		f, ok := qb.columns[c.Field]
		if !ok {
			qb.drop("filter", c.Field, "unknown field")
			continue
		}
		clause := WhereClause{Column: f.Name, Operator: c.Operator}
		switch c.Operator {
		case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
			v, err := coerceValue(qb.dialect, f, c.Value)
			if err != nil {
				qb.drop("filter", c.Field, err.Error())
				continue
			}
			clause.Value = v
		case OpLike, OpILike:
			if c.Value == nil {
				qb.drop("filter", c.Field, errNilValue.Error())
				continue
			}
			clause.Value = fmt.Sprint(c.Value)
		case OpIn, OpNotIn:
			if len(c.Values) == 0 {
				continue
			}
			values, err := qb.coerceAll(f, c.Values)
			if err != nil {
				qb.drop("filter", c.Field, err.Error())
				continue
			}
			clause.Values = values
		case OpIsNull:
			want := true
			if c.Value != nil {
				b, err := toBool(c.Value)
				if err != nil {
					qb.drop("filter", c.Field, err.Error())
					continue
				}
				want = b
			}
			clause.Value = want
		case OpBetween:
			if len(c.Values) != 2 {
				continue
			}
			values, err := qb.coerceAll(f, c.Values)
			if err != nil {
				qb.drop("filter", c.Field, err.Error())
				continue
			}
			clause.Values = values
		default:
			qb.drop("filter", c.Field, fmt.Sprintf("unsupported operator %q", c.Operator))
			continue
		}
		plan.Filters = append(plan.Filters, clause)
	}
}

func (qb *QueryBuilder) coerceAll(f metadata.Field, in []any) ([]any, error) {
	out := make([]any, len(in))
	for i, v := range in {
		c, err := coerceValue(qb.dialect, f, v)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// ApplyOrdering appends sort clauses in the given order, skipping unknown
// fields. The primary key is always the final tiebreaker.
func (qb *QueryBuilder) ApplyOrdering(plan *QueryPlan, clauses []OrderClause) {
	for _, o := range clauses {
		f, ok := qb.columns[o.Field]
		if !ok {
			qb.drop("order", o.Field, "unknown field")
			continue
		}
		dir := "ASC"
		if strings.EqualFold(string(o.Direction), string(Desc)) {
			dir = "DESC"
		}
		plan.Sorts = append(plan.Sorts, SortClause{Column: f.Name, Dir: dir})
	}
}

// ApplyPagination sets the page window, defaulting to page 1 of 20.
func (qb *QueryBuilder) ApplyPagination(plan *QueryPlan, p *Pagination) {
	if p == nil {
		plan.Pagination = Pagination{Page: DefaultPage, PageSize: DefaultPageSize}
	} else {
		plan.Pagination = p.Normalize()
	}
	plan.paginate = true
}

// BuildSelectSQL builds a parameterized SELECT statement from the query plan.
func (qb *QueryBuilder) BuildSelectSQL(plan *QueryPlan) QueryResult {
	pb := qb.dialect.NewParamBuilder()

	sql := fmt.Sprintf("SELECT %s FROM %s", qb.selects, qb.entity.Table)
	if where := qb.buildWhere(plan, pb); where != "" {
		sql += " WHERE " + where
	}
	sql += " ORDER BY " + qb.orderBy(plan)

	if plan.paginate {
		limit := pb.Add(plan.Pagination.PageSize)
		offset := pb.Add(plan.Pagination.Offset())
		sql += fmt.Sprintf(" LIMIT %s OFFSET %s", limit, offset)
	}
	return QueryResult{SQL: sql, Params: pb.Params()}
}

// BuildCountSQL builds a COUNT query with the same filters as the select.
func (qb *QueryBuilder) BuildCountSQL(plan *QueryPlan) QueryResult {
	pb := qb.dialect.NewParamBuilder()
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s", qb.entity.Table)
	if where := qb.buildWhere(plan, pb); where != "" {
		sql += " WHERE " + where
	}
	return QueryResult{SQL: sql, Params: pb.Params()}
}

// BuildGetSQL selects one record by key regardless of soft-delete state.
func (qb *QueryBuilder) BuildGetSQL(id any) QueryResult {
	pb := qb.dialect.NewParamBuilder()
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		qb.selects, qb.entity.Table, qb.entity.PrimaryKey.Field, pb.Add(id))
	return QueryResult{SQL: sql, Params: pb.Params()}
}

func (qb *QueryBuilder) buildWhere(plan *QueryPlan, pb store.ParamBuilder) string {
	var where []string
	switch plan.Scope {
	case ScopeActive:
		where = append(where, metadata.DeletedAtField+" IS NULL")
	case ScopeDeleted:
		where = append(where, metadata.DeletedAtField+" IS NOT NULL")
	}
	for _, f := range plan.Filters {
		where = append(where, qb.buildWhereClause(f, pb))
	}
	return strings.Join(where, " AND ")
}

func (qb *QueryBuilder) buildWhereClause(f WhereClause, pb store.ParamBuilder) string {
	switch f.Operator {
	case OpLike:
		return qb.dialect.LikeExpr(f.Column, pb, f.Value.(string), false)
	case OpILike:
		return qb.dialect.LikeExpr(f.Column, pb, f.Value.(string), true)
	case OpIn:
		return qb.dialect.InExpr(f.Column, pb, f.Values)
	case OpNotIn:
		return qb.dialect.NotInExpr(f.Column, pb, f.Values)
	case OpIsNull:
		if f.Value == true {
			return f.Column + " IS NULL"
		}
		return f.Column + " IS NOT NULL"
	case OpBetween:
		lo := pb.Add(f.Values[0])
		hi := pb.Add(f.Values[1])
		return fmt.Sprintf("%s BETWEEN %s AND %s", f.Column, lo, hi)
	default:
		return fmt.Sprintf("%s %s %s", f.Column, comparisonSQL[f.Operator], pb.Add(f.Value))
	}
}

func (qb *QueryBuilder) orderBy(plan *QueryPlan) string {
	key := qb.entity.PrimaryKey.Field
	parts := make([]string, 0, len(plan.Sorts)+1)
	hasKey := false
	for _, s := range plan.Sorts {
		parts = append(parts, s.Column+" "+s.Dir)
		if s.Column == key {
			hasKey = true
		}
	}
	if !hasKey {
		parts = append(parts, key+" ASC")
	}
	return strings.Join(parts, ", ")
}

func (qb *QueryBuilder) drop(kind, field, reason string) {
	qb.opts.logger.Warn("query clause dropped",
		slog.String("entity", qb.entity.Name),
		slog.String("kind", kind),
		slog.String("field", field),
		slog.String("reason", reason))
	qb.opts.metrics.IncrementDropped(qb.entity.Name, kind)
}
