package metadata

import (
	"fmt"
	"log/slog"
	"regexp"
	"sync"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Registry holds the validated entity set. It is written once during startup
// and read concurrently afterwards.
type Registry struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	entities map[string]*Entity
	order    []string
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:   logger,
		entities: make(map[string]*Entity),
	}
}

// GetEntity returns the entity with the given name, or nil.
func (r *Registry) GetEntity(name string) *Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entities[name]
}

// AllEntities returns all registered entities in registration order.
func (r *Registry) AllEntities() []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entities := make([]*Entity, 0, len(r.order))
	for _, name := range r.order {
		entities = append(entities, r.entities[name])
	}
	return entities
}

// Load validates and replaces all entities in the registry. Entities are
// validated before any state changes, so a failed Load leaves the registry
// untouched.
func (r *Registry) Load(entities []*Entity) error {
	byName := make(map[string]*Entity, len(entities))
	tables := make(map[string]string, len(entities))
	order := make([]string, 0, len(entities))
	for _, e := range entities {
		if err := Validate(e); err != nil {
			return err
		}
		if _, dup := byName[e.Name]; dup {
			return fmt.Errorf("duplicate entity %s", e.Name)
		}
		if other, dup := tables[e.Table]; dup {
			return fmt.Errorf("entities %s and %s share table %s", other, e.Name, e.Table)
		}
		detected, err := DetectComputed(e, r.logger)
		if err != nil {
			return err
		}
		e.detected = detected
		byName[e.Name] = e
		tables[e.Table] = e.Name
		order = append(order, e.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities = byName
	r.order = order
	return nil
}

// Validate checks the structural invariants of one entity descriptor.
func Validate(e *Entity) error {
	if e == nil {
		return fmt.Errorf("nil entity")
	}
	if !identPattern.MatchString(e.Name) {
		return fmt.Errorf("invalid entity name %q", e.Name)
	}
	if !identPattern.MatchString(e.Table) {
		return fmt.Errorf("entity %s: invalid table name %q", e.Name, e.Table)
	}
	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if !identPattern.MatchString(f.Name) {
			return fmt.Errorf("entity %s: invalid field name %q", e.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("entity %s: duplicate field %s", e.Name, f.Name)
		}
		seen[f.Name] = true
	}
	for _, c := range e.Computed {
		if !identPattern.MatchString(c.Name) {
			return fmt.Errorf("entity %s: invalid computed field name %q", e.Name, c.Name)
		}
	}
	key := e.KeyField()
	if key == nil {
		return fmt.Errorf("entity %s: primary key field %q not declared", e.Name, e.PrimaryKey.Field)
	}
	if e.PrimaryKey.Type == "" {
		e.PrimaryKey.Type = key.Type
	}
	switch e.PrimaryKey.Type {
	case "uuid", "int", "bigint", "string":
	default:
		return fmt.Errorf("entity %s: unsupported key type %q", e.Name, e.PrimaryKey.Type)
	}
	if e.PrimaryKey.Generated && e.PrimaryKey.Type == "string" {
		return fmt.Errorf("entity %s: string keys cannot be generated", e.Name)
	}
	return nil
}
