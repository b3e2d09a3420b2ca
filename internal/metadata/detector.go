package metadata

import (
	"fmt"
	"log/slog"
	"strings"
)

// Prefixes reserved for persistence-layer primitives; computed fields with
// these names are never exposed.
var excludedPrefixes = []string{"_", "query", "metadata", "register", "sa_", "test_"}

// DetectComputed resolves the computed fields declared on an entity into
// descriptors with an inferred kind and a bound accessor. Excluded names and
// names shadowed by a stored field are skipped and logged. A declaration
// whose accessor cannot be bound is an error.
func DetectComputed(e *Entity, logger *slog.Logger) ([]ComputedDescriptor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	seen := make(map[string]bool, len(e.Computed))
	var out []ComputedDescriptor
	for _, c := range e.Computed {
		if c.Name == "" {
			return nil, fmt.Errorf("entity %s: computed field without name", e.Name)
		}
		if isExcluded(c.Name) {
			logger.Warn("computed field skipped: reserved prefix",
				slog.String("entity", e.Name), slog.String("field", c.Name))
			continue
		}
		if e.HasField(c.Name) {
			logger.Warn("computed field shadowed by stored field",
				slog.String("entity", e.Name), slog.String("field", c.Name))
			continue
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("entity %s: duplicate computed field %s", e.Name, c.Name)
		}
		seen[c.Name] = true

		accessor, err := c.bind()
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", e.Name, err)
		}
		kind := c.Kind
		if kind == "" {
			kind = ComputedProperty
		}
		out = append(out, ComputedDescriptor{
			Name:        c.Name,
			Kind:        kind,
			Type:        ScalarType{Kind: InferComputedKind(c.Name, c.Returns), Optional: true},
			Description: c.Description,
			accessor:    accessor,
		})
	}
	return out, nil
}

// InferComputedKind returns the declared kind when present, otherwise guesses
// from the name.
func InferComputedKind(name string, declared Kind) Kind {
	if declared != "" {
		return declared
	}
	n := strings.ToLower(name)
	switch {
	case strings.HasPrefix(n, "is_"), strings.HasPrefix(n, "has_"), strings.HasPrefix(n, "tiene_"):
		return KindBoolean
	case strings.HasPrefix(n, "get_"), strings.HasSuffix(n, "_list"):
		return KindList
	case strings.Contains(n, "count"), strings.Contains(n, "total"):
		return KindInteger
	case strings.Contains(n, "datetime"):
		return KindDateTime
	case strings.Contains(n, "date"), strings.Contains(n, "fecha"):
		return KindDate
	default:
		return KindString
	}
}

func isExcluded(name string) bool {
	for _, p := range excludedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
