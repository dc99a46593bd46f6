package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/derxankvs/dataai-api/internal/backup"
	"github.com/derxankvs/dataai-api/internal/config"
	handlers "github.com/derxankvs/dataai-api/internal/http/handler"
	"github.com/derxankvs/dataai-api/internal/http/middleware"
	"github.com/derxankvs/dataai-api/internal/keystore"
	"github.com/derxankvs/dataai-api/internal/ledger"
	"github.com/derxankvs/dataai-api/internal/lookup"
	"github.com/derxankvs/dataai-api/internal/otel"
	"github.com/derxankvs/dataai-api/internal/payment"
	"github.com/derxankvs/dataai-api/internal/storage"
)

func main() {
	// Load configuration from config.json and environment (.env auto-loaded
	// if present)
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, nil)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	if err := bootstrapDataDir(cfg.DataDir); err != nil {
		log.Fatalf("failed to prepare data directory: %v", err)
	}

	// Off-site snapshot storage is optional; the backup job keeps local
	// archives either way.
	var objStore storage.Storage
	if cfg.MinIO.Endpoint != "" {
		objStore, err = storage.NewMinIO(cfg.MinIO)
		if err != nil {
			log.Fatalf("failed to initialize object storage: %v", err)
		}
	}

	store := keystore.New(cfg.DataDir)
	consultations := ledger.New(filepath.Join(cfg.DataDir, ledger.ConsultationsFile))
	payments := ledger.New(filepath.Join(cfg.DataDir, ledger.PaymentsFile))
	users := ledger.NewUserRegistry(ledger.New(filepath.Join(cfg.DataDir, ledger.UsersFile)))

	lookupSvc, err := lookup.NewService()
	if err != nil {
		log.Fatalf("invalid lookup registry: %v", err)
	}
	paymentSvc := payment.NewService(cfg.InfinitePayHandle, cfg.WebhookSecret, payments)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    5 * 1024 * 1024,
	})

	// Register global middleware
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New())
	app.Use(limiter.New(limiter.Config{Max: 120}))
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	app.Use(prom.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	publicDir := publicDirPath()
	app.Static("/public", publicDir)

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, handlers.Deps{
		Store:         store,
		Consultations: consultations,
		Users:         users,
		Lookup:        lookupSvc,
		Payment:       paymentSvc,
		PublicDir:     publicDir,
	})

	// Daily snapshot loop runs for the lifetime of the process.
	job := backup.NewJob(cfg.DataDir, cfg.Backup, objStore)
	go job.Run(ctx)

	addr := ":" + cfg.Port

	go func() {
		if err := app.Listen(addr); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	if err := app.Shutdown(); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}

// bootstrapDataDir creates the data layout expected on first run: the data
// and backup directories plus empty ledger files.
func bootstrapDataDir(dataDir string) error {
	if err := os.MkdirAll(filepath.Join(dataDir, backup.DirName), 0o755); err != nil {
		return err
	}
	for _, name := range []string{ledger.ConsultationsFile, ledger.PaymentsFile} {
		path := filepath.Join(dataDir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}

func publicDirPath() string {
	if dir := os.Getenv("PUBLIC_DIR"); dir != "" {
		return dir
	}
	return "public"
}
