package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	eventapp "github.com/opsdash/purchasing/internal/application/event"
	apppurchasing "github.com/opsdash/purchasing/internal/application/purchasing"
	"github.com/opsdash/purchasing/internal/domain/purchasing"
	"github.com/opsdash/purchasing/internal/domain/shared"
	"github.com/opsdash/purchasing/internal/infrastructure/cache"
	"github.com/opsdash/purchasing/internal/infrastructure/config"
	"github.com/opsdash/purchasing/internal/infrastructure/event"
	"github.com/opsdash/purchasing/internal/infrastructure/integration"
	"github.com/opsdash/purchasing/internal/infrastructure/logger"
	"github.com/opsdash/purchasing/internal/infrastructure/persistence"
	"github.com/opsdash/purchasing/internal/infrastructure/telemetry"
	"github.com/opsdash/purchasing/internal/interfaces/http/handler"
	"github.com/opsdash/purchasing/internal/interfaces/http/middleware"
	"github.com/opsdash/purchasing/internal/interfaces/http/router"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "purchasing: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg := logger.ConfigForEnvironment(cfg.App.Env)
	logCfg.Level = cfg.Log.Level
	logCfg.Format = cfg.Log.Format
	logCfg.Output = cfg.Log.Output
	logCfg.Service = cfg.App.Name
	log, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting purchasing service",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database", cfg.Database.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database
	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg), log).RegisterOtelGorm(db.DB); err != nil {
		return err
	}
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			return err
		}
	}
	log.Info("Database connected", zap.String("driver", db.Driver))

	// Redis-backed or in-process coordination
	coord := cache.NewFactory(cfg.Redis, cache.LockOptions{
		Timeout: cfg.Purchasing.LockTimeout,
		TTL:     cfg.Purchasing.LockTTL,
	}, cache.WithLogger(log))
	if err := coord.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := coord.Close(); err != nil {
			log.Warn("Error closing redis client", zap.Error(err))
		}
	}()
	idempotencyStore := coord.IdempotencyStore()
	defer func() {
		_ = idempotencyStore.Close()
	}()

	// Events: outbox written in the order transaction, relayed to the bus
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	outboxPublisher := event.NewOutboxPublisher(serializer, cfg.Event.MaxRetries)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	orderRepo := persistence.NewGormPurchaseOrderRepository(db.DB)
	orderRepo.SetOutboxEventSaver(outboxPublisher)

	eventBus := event.NewInMemoryEventBus(log)
	clients := integration.New(cfg.Integrations, log)
	handlers := subscribeHandlers(eventBus, clients, idempotencyStore, cfg.Event, log)

	if err := eventBus.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Application
	orderService := apppurchasing.NewPurchaseOrderService(orderRepo, coord.OrderLocker(), log)
	orderService.SetTaxPolicy(purchasing.FlatTax{Rate: cfg.Purchasing.TaxRate})
	orderService.SetCurrency(cfg.Purchasing.Currency)
	orderService.SetTracer(tp.Tracer("purchasing"))
	if clients.Suppliers != nil {
		orderService.SetSupplierDirectory(clients.Suppliers)
	}
	if clients.Catalog != nil {
		orderService.SetProductCatalog(clients.Catalog)
	}
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := router.NewEngine(router.EngineConfig{
		HTTP: cfg.HTTP,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		DefaultActor: cfg.Purchasing.DefaultActor,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion).
		AddCheck("database", handler.PingFunc(db.Ping))
	if coord.Distributed() {
		systemHandler.AddCheck("redis", handler.PingFunc(coord.Ping))
	}
	for _, h := range handlers {
		systemHandler.AddStats(h.Name(), func() any { return h.Stats() })
	}
	engine.GET(router.HealthPath, systemHandler.Health)

	router.NewRouter(engine).
		Register("/purchasing", handler.NewPurchaseOrderHandler(orderService)).
		Register("/system", systemHandler, handler.NewOutboxHandler(outboxService)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Event.ProcessorEnabled {
		processor := event.NewOutboxProcessor(outboxRepo, eventBus, serializer, event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
			CleanupInterval:  cfg.Event.CleanupInterval,
		}, log)
		g.Go(func() error {
			return processor.Run(gctx)
		})
	} else {
		log.Warn("Outbox processor disabled; events stay pending until another instance relays them")
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Server exited gracefully")
	return nil
}

// subscribeHandlers wires the side-effect handlers to the bus. Each handler
// is wrapped so a redelivered outbox entry runs it at most once.
func subscribeHandlers(
	bus *event.InMemoryEventBus,
	clients *integration.Clients,
	store shared.IdempotencyStore,
	cfg config.EventConfig,
	log *zap.Logger,
) []*event.IdempotentHandler {
	idemCfg := shared.DefaultIdempotencyConfig()
	if cfg.IdempotencyTTL > 0 {
		idemCfg.TTL = cfg.IdempotencyTTL
	}

	var subscribed []*event.IdempotentHandler
	subscribe := func(name string, h shared.EventHandler) {
		wrapped := event.NewIdempotentHandler(name, h, store, log, event.WithIdempotencyConfig(idemCfg))
		bus.Subscribe(wrapped)
		subscribed = append(subscribed, wrapped)
	}

	if clients.Inventory != nil {
		subscribe("goods-received", apppurchasing.NewGoodsReceivedHandler(clients.Inventory, log))
	} else {
		log.Warn("No inventory service configured; received goods will not update stock")
	}

	var notifier purchasing.NotificationService = integration.NewLogNotifier(log)
	if clients.Notifications != nil {
		notifier = clients.Notifications
	}
	subscribe("supplier-notification", apppurchasing.NewSupplierNotificationHandler(notifier, log))
	return subscribed
}
