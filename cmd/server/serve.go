package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahmetk3436/chatforge/internal/config"
	"github.com/ahmetk3436/chatforge/internal/database"
	"github.com/ahmetk3436/chatforge/internal/events"
	"github.com/ahmetk3436/chatforge/internal/handlers"
	"github.com/ahmetk3436/chatforge/internal/middleware"
	"github.com/ahmetk3436/chatforge/internal/repository"
	"github.com/ahmetk3436/chatforge/internal/routes"
	"github.com/ahmetk3436/chatforge/internal/services"
	"github.com/ahmetk3436/chatforge/internal/session"
	"github.com/ahmetk3436/chatforge/internal/wizard"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func runServer() error {
	// ─── Config ──────────────────────────────────────────────────────────
	cfg := config.Load()
	setupLogger(cfg)

	slog.Info("Starting chatforge", "version", handlers.Version)

	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	// ─── Storage ─────────────────────────────────────────────────────────
	var store repository.Store
	switch cfg.StorageDriver {
	case "memory":
		slog.Warn("Using in-memory storage, data is lost on restart")
		store = repository.NewMemoryStore()
	case "postgres":
		if err := database.Connect(cfg); err != nil {
			return err
		}
		defer database.Close()
		if err := database.Migrate(); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		store = repository.NewGormStore(database.DB)
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	// ─── Wizard sessions ─────────────────────────────────────────────────
	var (
		sessions    wizard.SessionStore
		locker      wizard.Locker
		redisPinger handlers.Pinger
	)
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := session.NewRedisClient(ctx, session.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		cancel()
		if err != nil {
			return err
		}
		defer client.Close()

		sessions = session.NewRedisStore(client, cfg.WizardSessionTTL)
		locker = session.NewRedisLocker(client, 0)
		redisPinger = handlers.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	} else {
		slog.Warn("REDIS_ADDR not set, wizard sessions are kept in process")
		sessions = session.NewMemoryStore(cfg.WizardSessionTTL)
		locker = session.NewLocalLocker()
	}

	// ─── Events ──────────────────────────────────────────────────────────
	hub := events.NewHub(0)
	publishers := events.Multi{hub, handlers.NewAuditPublisher(store)}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:        cfg.KafkaBrokers,
			Topic:          cfg.KafkaTopic,
			PublishTimeout: cfg.KafkaPublishTimeout,
		})
		defer kafkaPublisher.Close()
		publishers = append(publishers, kafkaPublisher)
	}

	// ─── Usage reconciler ────────────────────────────────────────────────
	reconciler := services.NewUsageReconciler(store, time.Duration(cfg.UsageReconcileInterval)*time.Second)
	reconciler.Start()
	defer reconciler.Stop()

	// ─── Wizard ──────────────────────────────────────────────────────────
	persister := wizard.NewPersister(store, store)
	finalizer := wizard.NewFinalizer(store, store, wizard.FinalizerConfig{
		RetryAttempts: cfg.UsageRetryAttempts,
	}).WithReconciler(reconciler)

	wiz := wizard.New(wizard.Config{
		Store:     store,
		Sessions:  sessions,
		Locker:    locker,
		Persister: persister,
		Finalizer: finalizer,
		Publisher: publishers,
	})

	// ─── Handlers ────────────────────────────────────────────────────────
	authHandler := handlers.NewAuthHandler(store, cfg.JWTSecret)
	wizardHandler := handlers.NewWizardHandler(wiz, hub)
	chatbotHandler := handlers.NewChatbotHandler(store, persister, finalizer, publishers)
	auditHandler := handlers.NewAuditHandler(store)
	systemHandler := handlers.NewSystemHandler(store, redisPinger)

	// ─── Fiber App ───────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      "chatforge v" + handlers.Version,
		ServerHeader: "chatforge",
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: middleware.ErrorHandler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, PATCH, OPTIONS",
	}))

	app.Use(recover.New(recover.Config{
		EnableStackTrace: false,
	}))

	// Security headers
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	app.Use(middleware.RequestLogger())

	// ─── Routes ──────────────────────────────────────────────────────────
	routes.Setup(app, cfg, authHandler, wizardHandler, chatbotHandler, auditHandler, systemHandler)

	// ─── Graceful Shutdown ───────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down chatforge...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			slog.Error("Fiber shutdown error", "error", err)
		}
	}()

	// ─── Start ───────────────────────────────────────────────────────────
	listenAddr := ":" + cfg.Port
	slog.Info("chatforge listening", "addr", listenAddr, "storage", cfg.StorageDriver)

	if err := app.Listen(listenAddr); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
