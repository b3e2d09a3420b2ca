package gql

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"heritage-catalog/internal/engine"
	"heritage-catalog/internal/schema"
	"heritage-catalog/internal/store"
)

// Request is the standard GraphQL-over-HTTP request body.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// Handler executes GraphQL requests against a compiled schema. Each request
// gets its own connection from the pool as its data-access handle, released
// when the response is written.
type Handler struct {
	schema graphql.Schema
	sdl    string
	db     *sql.DB
	logger *slog.Logger
}

func NewHandler(s *schema.Schema, db *sql.DB, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	compiled, err := Compile(s)
	if err != nil {
		return nil, err
	}
	return &Handler{schema: compiled, sdl: SDL(s), db: db, logger: logger}, nil
}

// Register mounts POST path for queries and GET path/schema for the SDL.
// Middleware applies to the query endpoint only.
func (h *Handler) Register(r fiber.Router, path string, mw ...fiber.Handler) {
	r.Post(path, append(mw, h.Serve)...)
	r.Get(path+"/schema", h.Schema)
}

// Serve handles POST /graphql.
func (h *Handler) Serve(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil || req.Query == "" {
		return engine.NewAppError("BAD_REQUEST", fiber.StatusBadRequest, "Request body must contain a GraphQL query")
	}

	ctx := c.UserContext()
	conn, err := h.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        store.WithQuerier(ctx, conn),
	})
	if len(result.Errors) > 0 {
		h.logger.Debug("graphql request returned errors",
			slog.String("operation", req.OperationName),
			slog.Int("errors", len(result.Errors)),
			slog.String("first", result.Errors[0].Message))
	}
	return c.JSON(result)
}

// Schema handles GET /graphql/schema.
func (h *Handler) Schema(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(h.sdl)
}

// SDL returns the rendered schema.
func (h *Handler) SDL() string { return h.sdl }

// ErrorHandler renders application errors as JSON with their status and
// hides the detail of anything else behind a 500.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *engine.AppError
		if errors.As(err, &appErr) {
			return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) && fiberErr.Code < fiber.StatusInternalServerError {
			return c.Status(fiberErr.Code).JSON(engine.ErrorResponse{
				Error: engine.NewAppError("HTTP_ERROR", fiberErr.Code, fiberErr.Message),
			})
		}

		logger.Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(engine.ErrorResponse{
			Error: engine.NewAppError("INTERNAL_ERROR", fiber.StatusInternalServerError, "Internal server error"),
		})
	}
}
