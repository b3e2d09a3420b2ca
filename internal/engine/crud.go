package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"heritage-catalog/internal/metadata"
	"heritage-catalog/internal/store"
)

// Page is the envelope returned by list operations.
type Page struct {
	Items       []metadata.Record `json:"items"`
	TotalCount  int               `json:"total_count"`
	Page        int               `json:"page"`
	PageSize    int               `json:"page_size"`
	TotalPages  int               `json:"total_pages"`
	HasNext     bool              `json:"has_next"`
	HasPrevious bool              `json:"has_previous"`
}

// ListRequest carries the generic list arguments. A nil Pagination selects
// the default window.
type ListRequest struct {
	Filters        []FilterCondition
	Order          []OrderClause
	Pagination     *Pagination
	IncludeDeleted bool
}

// CRUD implements the generic record lifecycle for one entity. It holds no
// per-request state; the data-access handle is passed to every call.
type CRUD struct {
	entity  *metadata.Entity
	dialect store.Dialect
	qb      *QueryBuilder
	opts    options
}

func NewCRUD(entity *metadata.Entity, dialect store.Dialect, opts ...Option) *CRUD {
	return &CRUD{
		entity:  entity,
		dialect: dialect,
		qb:      NewQueryBuilder(entity, dialect, opts...),
		opts:    newOptions(opts),
	}
}

func (c *CRUD) Entity() *metadata.Entity { return c.entity }

// Get returns one record by key regardless of soft-delete state. An id that
// cannot be coerced to the key type is reported as not found.
func (c *CRUD) Get(ctx context.Context, q store.Querier, id any) (rec metadata.Record, err error) {
	defer c.observe("get", time.Now(), &err)

	key, err := c.coerceKey(id)
	if err != nil {
		return nil, err
	}
	return c.fetch(ctx, q, key)
}

// List returns active records, or all records when IncludeDeleted is set.
func (c *CRUD) List(ctx context.Context, q store.Querier, req ListRequest) (page *Page, err error) {
	defer c.observe("list", time.Now(), &err)

	scope := ScopeActive
	if req.IncludeDeleted {
		scope = ScopeAll
	}
	return c.list(ctx, q, scope, req)
}

// ListDeleted returns only soft-deleted records.
func (c *CRUD) ListDeleted(ctx context.Context, q store.Querier, req ListRequest) (page *Page, err error) {
	defer c.observe("list_deleted", time.Now(), &err)

	if !c.entity.SoftDelete {
		return nil, UnsupportedError(c.entity.Name, "listing deleted records")
	}
	return c.list(ctx, q, ScopeDeleted, req)
}

// ListAll returns active and soft-deleted records.
func (c *CRUD) ListAll(ctx context.Context, q store.Querier, req ListRequest) (page *Page, err error) {
	defer c.observe("list_all", time.Now(), &err)
	return c.list(ctx, q, ScopeAll, req)
}

func (c *CRUD) list(ctx context.Context, q store.Querier, scope DeletedScope, req ListRequest) (*Page, error) {
	plan := c.qb.NewPlan(scope)
	c.qb.ApplyFilters(plan, req.Filters)
	c.qb.ApplyOrdering(plan, req.Order)
	c.qb.ApplyPagination(plan, req.Pagination)

	// Count before fetching the page so paging never distorts the total.
	cr := c.qb.BuildCountSQL(plan)
	total, err := store.QueryCount(ctx, q, cr.SQL, cr.Params...)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", c.entity.Name, err)
	}

	sr := c.qb.BuildSelectSQL(plan)
	rows, err := store.QueryRows(ctx, q, sr.SQL, sr.Params...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.entity.Name, err)
	}

	items := make([]metadata.Record, 0, len(rows))
	for _, row := range rows {
		items = append(items, decodeRecord(c.entity, row))
	}
	return newPage(items, total, plan.Pagination), nil
}

func newPage(items []metadata.Record, total int, p Pagination) *Page {
	pages := 0
	if total > 0 {
		pages = (total + p.PageSize - 1) / p.PageSize
	}
	return &Page{
		Items:       items,
		TotalCount:  total,
		Page:        p.Page,
		PageSize:    p.PageSize,
		TotalPages:  pages,
		HasNext:     p.Page < pages,
		HasPrevious: p.Page > 1,
	}
}

// Create inserts a record and returns it as stored. Unknown and null keys in
// data are ignored; engine-managed columns are filled in.
func (c *CRUD) Create(ctx context.Context, q store.Querier, data map[string]any) (rec metadata.Record, err error) {
	defer c.observe("create", time.Now(), &err)

	cols, details := c.assign(c.entity.WritableFields(), data)
	for _, f := range c.entity.WritableFields() {
		mandatory := f.Required && !f.Nullable && !f.HasDefault()
		if (mandatory || c.entity.IsKey(f.Name)) && !hasColumn(cols, f.Name) {
			details = append(details, ErrorDetail{Field: f.Name, Rule: "required", Message: f.Name + " is required"})
		}
	}
	if len(details) > 0 {
		return nil, ValidationError(details)
	}

	if c.needsClientKey() {
		cols = append([]column{{name: c.entity.PrimaryKey.Field, value: c.opts.newID()}}, cols...)
	}
	now := c.opts.now()
	user := metadata.UserFrom(ctx)
	for _, f := range c.entity.Fields {
		switch {
		case f.IsAuto():
			v, err := coerceValue(c.dialect, f, now)
			if err != nil {
				return nil, fmt.Errorf("auto field %s: %w", f.Name, err)
			}
			cols = append(cols, column{name: f.Name, value: v})
		case user != nil && (f.Name == metadata.CreatedByField || f.Name == metadata.UpdatedByField):
			cols = append(cols, column{name: f.Name, value: user.ID})
		}
	}

	sql, params := BuildInsertSQL(c.entity, c.dialect, cols)
	row, err := store.QueryRow(ctx, q, sql, params...)
	if err != nil {
		return nil, c.writeError("create", err)
	}
	return c.fetch(ctx, q, row[c.entity.PrimaryKey.Field])
}

// Update applies the non-null updatable keys in data to an active record and
// returns the refreshed record.
func (c *CRUD) Update(ctx context.Context, q store.Querier, id any, data map[string]any) (rec metadata.Record, err error) {
	defer c.observe("update", time.Now(), &err)

	key, err := c.coerceKey(id)
	if err != nil {
		return nil, err
	}
	cols, details := c.assign(c.entity.UpdatableFields(), data)
	if len(details) > 0 {
		return nil, ValidationError(details)
	}
	if len(cols) == 0 {
		return c.fetchActive(ctx, q, key)
	}

	now := c.opts.now()
	user := metadata.UserFrom(ctx)
	for _, f := range c.entity.Fields {
		switch {
		case f.Auto == "update":
			v, err := coerceValue(c.dialect, f, now)
			if err != nil {
				return nil, fmt.Errorf("auto field %s: %w", f.Name, err)
			}
			cols = append(cols, column{name: f.Name, value: v})
		case user != nil && f.Name == metadata.UpdatedByField:
			cols = append(cols, column{name: f.Name, value: user.ID})
		}
	}

	sql, params := BuildUpdateSQL(c.entity, c.dialect, key, cols)
	affected, err := store.Exec(ctx, q, sql, params...)
	if err != nil {
		return nil, c.writeError("update", err)
	}
	if affected == 0 {
		return nil, NotFoundError(c.entity.Name, id)
	}
	return c.fetch(ctx, q, key)
}

// Delete soft-deletes an active record when the entity supports it and
// removes it permanently otherwise. It reports whether a record changed.
func (c *CRUD) Delete(ctx context.Context, q store.Querier, id any) (ok bool, err error) {
	defer c.observe("delete", time.Now(), &err)

	key, err := c.coerceKey(id)
	if err != nil {
		return false, err
	}

	var sql string
	var params []any
	if c.entity.SoftDelete {
		at := c.dialect.EncodeTime(c.opts.now())
		sql, params = BuildSoftDeleteSQL(c.entity, c.dialect, key, at, metadata.UserFrom(ctx))
	} else {
		sql, params = BuildHardDeleteSQL(c.entity, c.dialect, key)
	}

	affected, err := store.Exec(ctx, q, sql, params...)
	if err != nil {
		return false, c.writeError("delete", err)
	}
	if affected == 0 {
		return false, NotFoundError(c.entity.Name, id)
	}
	return true, nil
}

// Restore clears the deletion marker of a soft-deleted record.
func (c *CRUD) Restore(ctx context.Context, q store.Querier, id any) (rec metadata.Record, err error) {
	defer c.observe("restore", time.Now(), &err)

	if !c.entity.SoftDelete {
		return nil, UnsupportedError(c.entity.Name, "restore")
	}
	key, err := c.coerceKey(id)
	if err != nil {
		return nil, err
	}
	sql, params := BuildRestoreSQL(c.entity, c.dialect, key)
	affected, err := store.Exec(ctx, q, sql, params...)
	if err != nil {
		return nil, c.writeError("restore", err)
	}
	if affected == 0 {
		return nil, NotFoundError(c.entity.Name, id)
	}
	return c.fetch(ctx, q, key)
}

func (c *CRUD) coerceKey(id any) (any, error) {
	key, err := CoerceKey(c.entity, id)
	if err != nil {
		c.opts.logger.Info("identifier rejected",
			slog.String("entity", c.entity.Name),
			slog.Any("id", id),
			slog.Any("error", err))
		return nil, NotFoundError(c.entity.Name, id)
	}
	return key, nil
}

func (c *CRUD) fetch(ctx context.Context, q store.Querier, key any) (metadata.Record, error) {
	qr := c.qb.BuildGetSQL(key)
	row, err := store.QueryRow(ctx, q, qr.SQL, qr.Params...)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NotFoundError(c.entity.Name, key)
		}
		return nil, fmt.Errorf("get %s/%v: %w", c.entity.Name, key, err)
	}
	return decodeRecord(c.entity, row), nil
}

func (c *CRUD) fetchActive(ctx context.Context, q store.Querier, key any) (metadata.Record, error) {
	rec, err := c.fetch(ctx, q, key)
	if err != nil {
		return nil, err
	}
	if c.entity.SoftDelete && rec[metadata.DeletedAtField] != nil {
		return nil, NotFoundError(c.entity.Name, key)
	}
	return rec, nil
}

// assign coerces the non-null keys of data that match the allowed fields.
func (c *CRUD) assign(allowed []metadata.Field, data map[string]any) ([]column, []ErrorDetail) {
	var cols []column
	var details []ErrorDetail
	for _, f := range allowed {
		v, present := data[f.Name]
		if !present || v == nil {
			continue
		}
		if f.Type == "enum" && len(f.Enum) > 0 {
			s, _ := v.(string)
			if !slices.Contains(f.Enum, s) {
				details = append(details, ErrorDetail{
					Field:   f.Name,
					Rule:    "enum",
					Message: fmt.Sprintf("%s must be one of %v", f.Name, f.Enum),
				})
				continue
			}
		}
		coerced, err := coerceValue(c.dialect, f, v)
		if err != nil {
			details = append(details, ErrorDetail{Field: f.Name, Rule: "type", Message: err.Error()})
			continue
		}
		cols = append(cols, column{name: f.Name, value: coerced})
	}
	for k := range data {
		if !slices.ContainsFunc(allowed, func(f metadata.Field) bool { return f.Name == k }) {
			c.opts.logger.Debug("ignoring unknown input key",
				slog.String("entity", c.entity.Name), slog.String("field", k))
		}
	}
	return cols, details
}

func hasColumn(cols []column, name string) bool {
	for _, c := range cols {
		if c.name == name {
			return true
		}
	}
	return false
}

// needsClientKey reports whether the engine must mint a uuid key because
// neither the caller nor the database supplies one.
func (c *CRUD) needsClientKey() bool {
	pk := c.entity.PrimaryKey
	if c.entity.ClientGeneratedKey() {
		return true
	}
	return pk.Generated && pk.Type == "uuid" && c.dialect.UUIDDefault() == ""
}

// writeError maps driver failures to sanitized application errors.
func (c *CRUD) writeError(op string, err error) error {
	mapped := store.MapError(c.dialect, err)
	switch {
	case errors.Is(mapped, store.ErrUniqueViolation):
		return ConflictError("A record with this value already exists")
	case errors.Is(mapped, store.ErrForeignKeyViolation):
		return ValidationError([]ErrorDetail{{Rule: "reference", Message: "A referenced record does not exist"}})
	case errors.Is(mapped, store.ErrNotNullViolation):
		return ValidationError([]ErrorDetail{{Rule: "required", Message: "A required value is missing"}})
	}
	return fmt.Errorf("%s %s: %w", op, c.entity.Name, err)
}

func (c *CRUD) observe(op string, start time.Time, err *error) {
	outcome := "ok"
	switch {
	case *err == nil:
	case errors.Is(*err, ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	c.opts.metrics.ObserveOperation(c.entity.Name, op, outcome, time.Since(start))
}
