// Package admin exposes the stored entity definitions over HTTP. Stored
// definitions extend the built-in catalog and take effect on the next
// schema assembly, that is, on restart.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"heritage-catalog/internal/engine"
	"heritage-catalog/internal/metadata"
	"heritage-catalog/internal/schema"
	"heritage-catalog/internal/store"
)

type Handler struct {
	store    *store.Store
	registry *metadata.Registry
	migrator *store.Migrator
	builtin  map[string]bool
	logger   *slog.Logger
}

// NewHandler creates the definitions handler. builtin lists the entities
// that cannot be overridden; migrator may be nil to leave tables untouched.
func NewHandler(s *store.Store, reg *metadata.Registry, mig *store.Migrator, builtin []*metadata.Entity, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	names := make(map[string]bool, len(builtin))
	for _, e := range builtin {
		names[e.Name] = true
	}
	return &Handler{store: s, registry: reg, migrator: mig, builtin: names, logger: logger}
}

func (h *Handler) Register(r fiber.Router, mw ...fiber.Handler) {
	admin := r.Group("/admin", mw...)

	admin.Get("/entities", h.ListEntities)
	admin.Get("/entities/:name", h.GetEntity)
	admin.Put("/entities/:name", h.PutEntity)
	admin.Delete("/entities/:name", h.DeleteEntity)
}

// ListEntities returns the entities currently served and the stored
// definitions, which may include ones not yet active.
func (h *Handler) ListEntities(c *fiber.Ctx) error {
	stored, err := metadata.LoadDefinitions(c.UserContext(), h.store.DB, h.logger)
	if err != nil {
		return fmt.Errorf("list definitions: %w", err)
	}
	if stored == nil {
		stored = []*metadata.Entity{}
	}
	active := make([]string, 0)
	for _, e := range h.registry.AllEntities() {
		active = append(active, e.Name)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"active": active, "stored": stored}})
}

func (h *Handler) GetEntity(c *fiber.Ctx) error {
	name := c.Params("name")
	e := h.registry.GetEntity(name)
	if e == nil {
		return engine.NewAppError("NOT_FOUND", fiber.StatusNotFound, "Entity not found: "+name)
	}
	return c.JSON(fiber.Map{"data": e})
}

// PutEntity validates and stores a definition, migrating its table when a
// migrator is configured.
func (h *Handler) PutEntity(c *fiber.Ctx) error {
	name := c.Params("name")
	if h.builtin[name] {
		return engine.ConflictError("Built-in entity cannot be redefined: " + name)
	}

	entity, err := metadata.ParseDefinition(c.Body())
	if err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", fiber.StatusBadRequest, err.Error())
	}
	entity.Name = name
	if err := metadata.Validate(entity); err != nil {
		return validationFailed(err)
	}
	if _, err := metadata.DetectComputed(entity, h.logger); err != nil {
		return validationFailed(err)
	}
	if err := h.checkClaims(c.UserContext(), entity); err != nil {
		return err
	}

	if err := h.store.SaveDefinition(c.UserContext(), h.store.DB, entity); err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return engine.ConflictError("Table already claimed by another definition: " + entity.Table)
		}
		return err
	}
	if h.migrator != nil {
		if err := h.migrator.Migrate(c.UserContext(), entity); err != nil {
			return fmt.Errorf("migrate entity %s: %w", entity.Name, err)
		}
	}
	h.logger.Info("entity definition stored", slog.String("entity", entity.Name), slog.String("table", entity.Table))
	return c.JSON(fiber.Map{"data": entity, "restart_required": true})
}

func (h *Handler) DeleteEntity(c *fiber.Ctx) error {
	name := c.Params("name")
	err := h.store.DeleteDefinition(c.UserContext(), h.store.DB, name)
	if errors.Is(err, store.ErrNotFound) {
		return engine.NewAppError("NOT_FOUND", fiber.StatusNotFound, "Stored definition not found: "+name)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"name": name, "deleted": true}, "restart_required": true})
}

// checkClaims rejects a definition whose table or generated API name is
// already owned by an active entity or another stored definition.
func (h *Handler) checkClaims(ctx context.Context, entity *metadata.Entity) error {
	stored, err := metadata.LoadDefinitions(ctx, h.store.DB, h.logger)
	if err != nil {
		return fmt.Errorf("load definitions: %w", err)
	}
	canonical := schema.CanonicalName(entity.Name)
	for _, other := range append(h.registry.AllEntities(), stored...) {
		if other.Name == entity.Name {
			continue
		}
		if other.Table == entity.Table {
			return engine.ConflictError(fmt.Sprintf("Table %s already belongs to %s", entity.Table, other.Name))
		}
		if schema.CanonicalName(other.Name) == canonical {
			return engine.ConflictError(fmt.Sprintf("%s generates the same API name as %s", entity.Name, other.Name))
		}
	}
	return nil
}

func validationFailed(err error) error {
	return engine.ValidationError([]engine.ErrorDetail{{Rule: "definition", Message: err.Error()}})
}
