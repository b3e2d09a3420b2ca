package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
)

// Record is one materialized row keyed by column name.
type Record = map[string]any

// Accessor computes a derived value from a materialized record. Accessors
// report failure through the returned error; callers decide how to degrade.
type Accessor func(ctx context.Context, rec Record) (any, error)

type ComputedKind string

const (
	ComputedProperty ComputedKind = "property"
	ComputedMethod   ComputedKind = "method"
)

// ComputedField declares a derived field on an entity. Exactly one of
// Expression or Func must be set; Expression is evaluated with expr-lang
// against the record, which makes it storable in JSON definitions.
type ComputedField struct {
	Name        string       `json:"name"`
	Kind        ComputedKind `json:"kind,omitempty"`
	Returns     Kind         `json:"returns,omitempty"`
	Expression  string       `json:"expression,omitempty"`
	Description string       `json:"description,omitempty"`
	Func        Accessor     `json:"-"`
}

// ComputedDescriptor is a computed field after detection: kind inferred and
// accessor bound.
type ComputedDescriptor struct {
	Name        string
	Kind        ComputedKind
	Type        ScalarType
	Description string

	accessor Accessor
}

// Resolve invokes the bound accessor.
func (d ComputedDescriptor) Resolve(ctx context.Context, rec Record) (any, error) {
	if d.accessor == nil {
		return nil, fmt.Errorf("computed field %s has no accessor", d.Name)
	}
	return d.accessor(ctx, rec)
}

var errNoAccessor = errors.New("computed field needs an expression or a func")

func (c ComputedField) bind() (Accessor, error) {
	switch {
	case c.Func != nil && c.Expression != "":
		return nil, fmt.Errorf("computed field %s: expression and func are exclusive", c.Name)
	case c.Func != nil:
		return c.Func, nil
	case c.Expression != "":
		prog, err := expr.Compile(c.Expression, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("compile computed field %s: %w", c.Name, err)
		}
		return func(_ context.Context, rec Record) (any, error) {
			out, err := expr.Run(prog, rec)
			if err != nil {
				return nil, fmt.Errorf("evaluate %s: %w", c.Name, err)
			}
			return out, nil
		}, nil
	default:
		return nil, fmt.Errorf("computed field %s: %w", c.Name, errNoAccessor)
	}
}
