package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"coiapi/internal/config"
	"coiapi/internal/database"
	"coiapi/internal/database/migration"
	"coiapi/internal/discount"
	"coiapi/internal/extractor"
	handlers "coiapi/internal/http/handler"
	"coiapi/internal/http/middleware"
	"coiapi/internal/logger"
	"coiapi/internal/metrics"
	"coiapi/internal/notify"
	"coiapi/internal/otel"
	"coiapi/internal/reminder"
	"coiapi/internal/repository/postgres"
	"coiapi/internal/resilience"
	"coiapi/internal/service"
	"coiapi/internal/storage"
)

// @title COI Compliance API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid LOG_LEVEL %q: %v\n", cfg.LogLevel, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	objStore, err := storage.NewMinIO(ctx, cfg.MinIO, log)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipeline, err := metrics.NewPipeline(reg)
	if err != nil {
		return fmt.Errorf("register pipeline metrics: %w", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg.Breaker), log)

	notifier, closeNotifier := newNotifier(cfg.NATS, executor, log)
	defer closeNotifier()

	ledger, closeLedger := newLedger(ctx, cfg.Redis, log)
	defer closeLedger()

	docRepo := postgres.NewDocumentPostgres(db)
	vendorRepo := postgres.NewVendorPostgres(db)
	billRepo := postgres.NewBillPostgres(db)
	accountRepo := postgres.NewAccountPostgres(db)

	discounts := discount.NewEngine(vendorRepo, billRepo, notifier, pipeline, log, nil)
	docSvc := service.NewDocumentService(service.Deps{
		Store:         objStore,
		Documents:     docRepo,
		Vendors:       vendorRepo,
		Accounts:      accountRepo,
		Extractor:     extractor.NewGuarded(extractor.NewMux(), cfg.Extraction.Timeout, executor),
		Discounts:     discounts,
		Metrics:       pipeline,
		Logger:        log,
		MaxUploadSize: cfg.Extraction.MaxUploadSize,
	})

	dispatcher := reminder.NewDispatcher(vendorRepo, accountRepo, ledger, notifier, pipeline, log, nil)
	scheduler, err := scheduleReminders(ctx, cfg.Reminder, dispatcher, log)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer func() { <-scheduler.Stop().Done() }()
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Multipart overhead on top of the file itself.
		BodyLimit: int(cfg.Extraction.MaxUploadSize) + 1<<20,
	})

	// Register global middleware
	app.Use(middleware.Recover(log))
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, docSvc)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("http server listening", zap.String("addr", addr))
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func resilienceConfig(c config.BreakerConfig) resilience.Config {
	rc := resilience.DefaultConfig()
	rc.BreakerEnabled = c.Enabled
	rc.RetryMaxAttempts = c.RetryMaxAttempts
	rc.RetryInitialBackoff = c.RetryBackoff
	rc.RetryMaxBackoff = 4 * c.RetryBackoff
	if c.MinRequests > 0 {
		rc.BreakerMinRequests = uint32(c.MinRequests)
	}
	rc.BreakerFailureRatio = c.FailureRatio
	rc.BreakerOpenTimeout = c.OpenTimeout
	return rc
}

// newNotifier publishes to NATS when configured. Without a bus, events are logged.
func newNotifier(c config.NATSConfig, executor *resilience.Executor, log *zap.Logger) (notify.Notifier, func()) {
	if c.URL == "" {
		log.Info("NATS_URL not set; notifications are logged only")
		return notify.NewLogNotifier(log), func() {}
	}
	conn, err := notify.ConnectNATS(c.URL, notify.NATSOptions{Name: c.Name}, log)
	if err != nil {
		log.Warn("nats unavailable; notifications are logged only", zap.Error(err))
		return notify.NewLogNotifier(log), func() {}
	}
	return notify.NewNATSNotifier(conn, c.SubjectPrefix, executor), func() {
		if err := conn.Drain(); err != nil {
			log.Warn("nats drain", zap.Error(err))
		}
	}
}

// newLedger keeps reminder state in Redis when configured so it survives restarts
// and is shared between replicas.
func newLedger(ctx context.Context, c config.RedisConfig, log *zap.Logger) (reminder.Ledger, func()) {
	if c.URL == "" {
		log.Info("REDIS_URL not set; reminder ledger is in memory")
		return reminder.NewMemoryLedger(), func() {}
	}
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		log.Warn("invalid REDIS_URL; reminder ledger is in memory", zap.Error(err))
		return reminder.NewMemoryLedger(), func() {}
	}
	client := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		log.Warn("redis unreachable at startup; ledger will retry per call", zap.Error(err))
	}
	return reminder.NewRedisLedger(client, c.LedgerGrace), func() { _ = client.Close() }
}

func scheduleReminders(ctx context.Context, c config.ReminderConfig, d *reminder.Dispatcher, log *zap.Logger) (*cron.Cron, error) {
	if !c.Enabled {
		log.Info("reminder sweep disabled")
		return nil, nil
	}
	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := sched.AddFunc(c.Cron, func() {
		sent, err := d.RunOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("reminder sweep failed", zap.Int("sent", sent), zap.Error(err))
			return
		}
		log.Info("reminder sweep finished", zap.Int("sent", sent))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_CRON %q: %w", c.Cron, err)
	}
	sched.Start()
	log.Info("reminder sweep scheduled", zap.String("cron", c.Cron))
	return sched, nil
}
