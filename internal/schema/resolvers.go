package schema

import (
	"context"
	"errors"
	"log/slog"

	"heritage-catalog/internal/engine"
	"heritage-catalog/internal/metrics"
	"heritage-catalog/internal/store"
)

// ErrNoQuerier is returned when a request reaches a root resolver without a
// data-access handle on its context.
var ErrNoQuerier = errors.New("no data-access handle on request context")

// rootResolvers binds the root fields of one entity to its CRUD engine.
// Failures are recovered here: a missing record resolves to null, a
// sanitized application error becomes a field error and anything else is
// logged and degraded so sibling fields of the response still resolve.
type rootResolvers struct {
	crud    *engine.CRUD
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func (r *rootResolvers) get(ctx context.Context, _ any, args map[string]any) (any, error) {
	q, err := querier(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := r.crud.Get(ctx, q, args[argID])
	if err != nil {
		return nil, r.classify("get", err)
	}
	return rec, nil
}

func (r *rootResolvers) list(ctx context.Context, _ any, args map[string]any) (any, error) {
	return r.page(ctx, "list", args, r.crud.List)
}

func (r *rootResolvers) listDeleted(ctx context.Context, _ any, args map[string]any) (any, error) {
	return r.page(ctx, "list_deleted", args, r.crud.ListDeleted)
}

func (r *rootResolvers) listAll(ctx context.Context, _ any, args map[string]any) (any, error) {
	return r.page(ctx, "list_all", args, r.crud.ListAll)
}

type listFunc func(context.Context, store.Querier, engine.ListRequest) (*engine.Page, error)

func (r *rootResolvers) page(ctx context.Context, op string, args map[string]any, fn listFunc) (any, error) {
	q, err := querier(ctx)
	if err != nil {
		return nil, err
	}
	page, err := fn(ctx, q, listRequest(args))
	if err != nil {
		return nil, r.classify(op, err)
	}
	return page, nil
}

func (r *rootResolvers) create(ctx context.Context, _ any, args map[string]any) (any, error) {
	q, err := querier(ctx)
	if err != nil {
		return nil, err
	}
	data, _ := args[argData].(map[string]any)
	rec, err := r.crud.Create(ctx, q, data)
	if err != nil {
		return nil, r.classify("create", err)
	}
	return rec, nil
}

func (r *rootResolvers) update(ctx context.Context, _ any, args map[string]any) (any, error) {
	q, err := querier(ctx)
	if err != nil {
		return nil, err
	}
	data, _ := args[argData].(map[string]any)
	rec, err := r.crud.Update(ctx, q, args[argID], data)
	if err != nil {
		return nil, r.classify("update", err)
	}
	return rec, nil
}

// delete never fails the field: every failure reads as false.
func (r *rootResolvers) delete(ctx context.Context, _ any, args map[string]any) (any, error) {
	q, err := querier(ctx)
	if err != nil {
		return false, err
	}
	ok, err := r.crud.Delete(ctx, q, args[argID])
	if err != nil {
		var appErr *engine.AppError
		if errors.As(err, &appErr) {
			r.logger.Info("delete rejected",
				slog.String("entity", r.crud.Entity().Name),
				slog.Any("id", args[argID]),
				slog.String("code", appErr.Code))
			return false, nil
		}
		r.degrade("delete", err)
		return false, nil
	}
	return ok, nil
}

func (r *rootResolvers) restore(ctx context.Context, _ any, args map[string]any) (any, error) {
	q, err := querier(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := r.crud.Restore(ctx, q, args[argID])
	if err != nil {
		if errors.Is(err, engine.ErrUnsupported) {
			return nil, nil
		}
		return nil, r.classify("restore", err)
	}
	return rec, nil
}

// classify sorts an operation error. It returns nil when the field
// should resolve to null without an error.
func (r *rootResolvers) classify(op string, err error) error {
	var appErr *engine.AppError
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return nil
	case errors.As(err, &appErr):
		return appErr
	}
	r.degrade(op, err)
	return nil
}

func (r *rootResolvers) degrade(op string, err error) {
	entity := r.crud.Entity().Name
	r.logger.Error("operation degraded",
		slog.String("entity", entity),
		slog.String("operation", op),
		slog.Any("error", err))
	r.metrics.IncrementDegraded(entity, op)
}

func querier(ctx context.Context) (store.Querier, error) {
	q, ok := store.QuerierFrom(ctx)
	if !ok {
		return nil, ErrNoQuerier
	}
	return q, nil
}
