package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"heritage-catalog/internal/admin"
	"heritage-catalog/internal/auth"
	"heritage-catalog/internal/catalog"
	"heritage-catalog/internal/config"
	"heritage-catalog/internal/gql"
	"heritage-catalog/internal/metadata"
	"heritage-catalog/internal/metrics"
	"heritage-catalog/internal/schema"
	"heritage-catalog/internal/store"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg.Log)
	slog.SetDefault(log)
	log.Info("config loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("driver", cfg.Database.Driver),
		slog.String("database", cfg.Database.Name))

	// 2. Connect to database
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	// 3. Bootstrap system tables
	if err := db.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap system tables: %w", err)
	}

	// 4. Load entities: built-in catalog plus stored definitions
	builtin := catalog.Entities()
	entities := builtin
	if cfg.Catalog.LoadDefinitions {
		stored, err := metadata.LoadDefinitions(ctx, db.DB, log)
		if err != nil {
			log.Warn("stored definitions unavailable", slog.Any("error", err))
		}
		entities = metadata.Merge(entities, stored, log)
	}
	reg := metadata.NewRegistry(log)
	if err := reg.Load(entities); err != nil {
		return fmt.Errorf("load entities: %w", err)
	}

	// 5. Create or extend tables
	var migrator *store.Migrator
	if cfg.Database.AutoMigrate {
		migrator = store.NewMigrator(db, log)
		if err := migrator.MigrateAll(ctx, reg.AllEntities()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// 6. Metrics
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promReg)

	// 7. Assemble the API
	s, err := schema.NewBuilder(db.Dialect, schema.WithLogger(log), schema.WithMetrics(m)).
		Assemble(reg.AllEntities())
	if err != nil {
		return fmt.Errorf("assemble schema: %w", err)
	}
	handler, err := gql.NewHandler(s, db.DB, log)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	stats := s.Stats()
	log.Info("schema assembled",
		slog.Int("entities", stats.Entities),
		slog.Int("queries", stats.Queries),
		slog.Int("mutations", stats.Mutations),
		slog.Int("types", stats.Types))

	// 8. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          gql.ErrorHandler(log),
		DisableStartupMessage: true,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	// 9. Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := db.DB.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))
	authMW := auth.Middleware(cfg.JWTSecret)
	handler.Register(app, cfg.GraphQL.Path, authMW)
	admin.NewHandler(db, reg, migrator, builtin, log).Register(app, authMW, auth.RequireRole("admin"))

	// 10. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("starting server", slog.String("addr", addr), slog.String("graphql", cfg.GraphQL.Path))
	return app.Listen(addr)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
