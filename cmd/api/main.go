package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fleetdocs/internal/config"
	"fleetdocs/internal/database"
	"fleetdocs/internal/database/migration"
	handlers "fleetdocs/internal/http/handler"
	"fleetdocs/internal/http/middleware"
	"fleetdocs/internal/otel"
	"fleetdocs/internal/repository/postgres"
	"fleetdocs/internal/service"
	"fleetdocs/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	loc, err := time.LoadLocation(os.Getenv("APP_TIMEZONE"))
	if err != nil {
		loc = time.UTC
	}

	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Tracing degrades to noop when the collector is unreachable or disabled.
	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	files, err := newFileStore(cfg.Storage, logger)
	if err != nil {
		log.Fatalf("failed to initialize file storage: %v", err)
	}

	// Initialize repositories and services
	docRepo := postgres.NewDocumentPostgres(db, files)
	policyRepo := postgres.NewPolicyPostgres(db, files)
	attachments := service.NewAttachmentService(docRepo, policyRepo, files, service.Whitelists{
		DocumentTypes: cfg.Attachments.DocumentTypes,
		CoverageTypes: cfg.Attachments.CoverageTypes,
	})
	stats := service.NewStatsService(docRepo, policyRepo)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    int(cfg.Attachments.MaxUploadBytes) + 1<<20,
	})

	// Register global middleware
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to register prometheus metrics: %v", err)
	}
	app.Use(promMiddleware.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected services
	h := handlers.New(attachments, stats, files, cfg.Attachments.MaxUploadBytes)
	h.Register(app, db)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

// newFileStore selects the storage backend: local disk by default, an
// S3-compatible bucket when STORAGE_BACKEND=s3.
func newFileStore(cfg config.StorageConfig, logger *slog.Logger) (storage.FileStore, error) {
	if cfg.Backend == "s3" {
		return storage.NewObjectStore(cfg.MinIO, logger)
	}
	return storage.NewDiskStore(cfg.UploadDir, logger)
}
