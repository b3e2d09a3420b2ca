package schema

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-openapi/inflect"

	"heritage-catalog/internal/engine"
	"heritage-catalog/internal/metadata"
	"heritage-catalog/internal/store"
)

var (
	// ErrNoEntities is returned when Assemble is given an empty entity set.
	ErrNoEntities = errors.New("no entities to assemble")
	// ErrNameCollision is returned when two generated names coincide.
	ErrNameCollision = errors.New("generated name collision")
)

// Schema is the assembled API: two roots plus every named type they
// reference. It is built once and only read afterwards.
type Schema struct {
	Query    *Object
	Mutation *Object
	Objects  []*Object
	Inputs   []*InputObject
	Enums    []*Enum
	Entities []EntityAPI
}

// EntityAPI records what was generated for one entity.
type EntityAPI struct {
	Entity      *metadata.Entity
	Name        string // canonical name
	Output      *Object
	Page        *Object
	CreateInput *InputObject
	UpdateInput *InputObject
	CRUD        *engine.CRUD
}

// Stats summarizes the schema for startup reporting.
type Stats struct {
	Entities  int
	Queries   int
	Mutations int
	Types     int
}

func (s *Schema) Stats() Stats {
	return Stats{
		Entities:  len(s.Entities),
		Queries:   len(s.Query.Fields),
		Mutations: len(s.Mutation.Fields),
		Types:     len(s.Objects) + len(s.Inputs) + len(s.Enums),
	}
}

// Builder assembles a Schema for a fixed dialect.
type Builder struct {
	dialect store.Dialect
	opts    options
	synth   *Synthesizer
}

func NewBuilder(dialect store.Dialect, opts ...Option) *Builder {
	o := newOptions(opts)
	return &Builder{
		dialect: dialect,
		opts:    o,
		synth:   &Synthesizer{logger: o.logger, metrics: o.metrics},
	}
}

// CanonicalName is the lower-cased singular form of an entity name, the
// stem of every root field generated for it.
func CanonicalName(entityName string) string {
	return strings.ToLower(inflect.Singularize(entityName))
}

// Assemble generates the types and root fields of every entity. Entities
// are processed in the given order, which fixes the order of root fields.
// Duplicate type or root field names fail the whole build.
func (b *Builder) Assemble(entities []*metadata.Entity) (*Schema, error) {
	if len(entities) == 0 {
		return nil, ErrNoEntities
	}

	s := &Schema{
		Query:    &Object{Name: "Query"},
		Mutation: &Object{Name: "Mutation"},
		Enums:    sharedEnums(),
		Inputs:   sharedInputs(),
	}
	names := newNameSet()
	names.reserve("Query", "Mutation", ScalarID, ScalarString, ScalarInt, ScalarFloat, ScalarBoolean)
	names.reserve(CustomScalars...)
	for _, e := range s.Enums {
		names.reserve(e.Name)
	}
	for _, in := range s.Inputs {
		names.reserve(in.Name)
	}
	roots := newNameSet()

	engineOpts := append([]engine.Option{
		engine.WithLogger(b.opts.logger),
		engine.WithMetrics(b.opts.metrics),
	}, b.opts.engineOpts...)

	for _, e := range entities {
		api, err := b.entityAPI(e, engineOpts)
		if err != nil {
			return nil, err
		}
		typeNames := []string{api.Output.Name, api.Page.Name}
		if api.CreateInput != nil {
			typeNames = append(typeNames, api.CreateInput.Name)
		}
		if api.UpdateInput != nil {
			typeNames = append(typeNames, api.UpdateInput.Name)
		}
		enums := b.synth.SynthesizeEnums(e)
		for _, en := range enums {
			typeNames = append(typeNames, en.Name)
		}
		for _, n := range typeNames {
			if err := names.claim(n, e.Name); err != nil {
				return nil, err
			}
		}

		queries, mutations := b.rootFields(api)
		for _, f := range append(append([]Field(nil), queries...), mutations...) {
			if err := roots.claim(f.Name, e.Name); err != nil {
				return nil, err
			}
		}

		s.Query.Fields = append(s.Query.Fields, queries...)
		s.Mutation.Fields = append(s.Mutation.Fields, mutations...)
		s.Objects = append(s.Objects, api.Output, api.Page)
		if api.CreateInput != nil {
			s.Inputs = append(s.Inputs, api.CreateInput)
		}
		if api.UpdateInput != nil {
			s.Inputs = append(s.Inputs, api.UpdateInput)
		}
		s.Enums = append(s.Enums, enums...)
		s.Entities = append(s.Entities, api)

		b.opts.logger.Debug("entity assembled",
			slog.String("entity", e.Name),
			slog.String("name", api.Name),
			slog.Int("fields", len(api.Output.Fields)))
	}
	return s, nil
}

func (b *Builder) entityAPI(e *metadata.Entity, engineOpts []engine.Option) (EntityAPI, error) {
	name := CanonicalName(e.Name)
	if name == "" {
		return EntityAPI{}, fmt.Errorf("entity %q has no canonical name", e.Name)
	}
	output := b.synth.SynthesizeOutput(e)
	return EntityAPI{
		Entity:      e,
		Name:        name,
		Output:      output,
		Page:        pageObject(output),
		CreateInput: b.synth.SynthesizeCreateInput(e),
		UpdateInput: b.synth.SynthesizeUpdateInput(e),
		CRUD:        engine.NewCRUD(e, b.dialect, engineOpts...),
	}, nil
}

func (b *Builder) rootFields(api EntityAPI) (queries, mutations []Field) {
	r := &rootResolvers{crud: api.CRUD, logger: b.opts.logger, metrics: b.opts.metrics}
	entity := api.Entity.Name
	idArg := Argument{Name: argID, Type: Named(ScalarID).Required()}
	pageType := Named(api.Page.Name)

	queries = []Field{
		{
			Name:        api.Name,
			Type:        Named(api.Output.Name),
			Args:        []Argument{idArg},
			Description: "Fetch one " + entity + " by id, including soft-deleted records",
			Resolve:     r.get,
		},
		{
			Name:        api.Name + "s",
			Type:        pageType,
			Args:        listArguments(true),
			Description: "List " + entity + " records",
			Resolve:     r.list,
		},
		{
			Name:        api.Name + "sDeleted",
			Type:        pageType,
			Args:        listArguments(false),
			Description: "List soft-deleted " + entity + " records",
			Resolve:     r.listDeleted,
		},
		{
			Name:        api.Name + "sAll",
			Type:        pageType,
			Args:        listArguments(false),
			Description: "List active and soft-deleted " + entity + " records",
			Resolve:     r.listAll,
		},
	}

	stem := strings.ToUpper(api.Name[:1]) + api.Name[1:]
	create := Field{Name: "create" + stem, Type: Named(api.Output.Name), Resolve: r.create}
	if api.CreateInput != nil {
		create.Args = []Argument{{Name: argData, Type: Named(api.CreateInput.Name).Required()}}
	}
	update := Field{Name: "update" + stem, Type: Named(api.Output.Name), Args: []Argument{idArg}, Resolve: r.update}
	if api.UpdateInput != nil {
		update.Args = append(update.Args, Argument{Name: argData, Type: Named(api.UpdateInput.Name).Required()})
	}
	mutations = []Field{
		create,
		update,
		{Name: "delete" + stem, Type: Named(ScalarBoolean).Required(), Args: []Argument{idArg}, Resolve: r.delete},
		{Name: "restore" + stem, Type: Named(api.Output.Name), Args: []Argument{idArg}, Resolve: r.restore},
	}
	return queries, mutations
}

// nameSet tracks which entity claimed each generated name.
type nameSet map[string]string

func newNameSet() nameSet { return nameSet{} }

func (n nameSet) reserve(names ...string) {
	for _, name := range names {
		n[name] = ""
	}
}

func (n nameSet) claim(name, entity string) error {
	if owner, taken := n[name]; taken {
		if owner == "" {
			return fmt.Errorf("%w: %s (entity %s) is a reserved type name", ErrNameCollision, name, entity)
		}
		return fmt.Errorf("%w: %s generated for both %s and %s", ErrNameCollision, name, owner, entity)
	}
	n[name] = entity
	return nil
}
