package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/contact-inbox/internal/api/http"
	"github.com/spec-kit/contact-inbox/internal/api/http/handlers"
	"github.com/spec-kit/contact-inbox/internal/auth"
	"github.com/spec-kit/contact-inbox/internal/config"
	"github.com/spec-kit/contact-inbox/internal/events"
	"github.com/spec-kit/contact-inbox/internal/mailer"
	"github.com/spec-kit/contact-inbox/internal/observability"
	"github.com/spec-kit/contact-inbox/internal/persistence"
	"github.com/spec-kit/contact-inbox/internal/repository"
	"github.com/spec-kit/contact-inbox/internal/service"
	"github.com/spec-kit/contact-inbox/internal/webhook"
	"github.com/spec-kit/contact-inbox/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	contactRepo := repository.NewContactRepository(pool)
	operatorRepo := repository.NewOperatorRepository(pool)

	provider := mailer.NewClient(cfg.Email)
	dispatcher := events.NewInMemoryDispatcher()

	// Whether webhook deliveries are signature-checked is decided once here,
	// not per request. Production config refuses to start without a secret.
	var verifier *webhook.Verifier
	if cfg.Email.WebhookSecret != "" {
		verifier, err = webhook.NewVerifier(cfg.Email.WebhookSecret, cfg.Email.WebhookTolerance())
		if err != nil {
			logger.Fatal("invalid webhook secret", zap.Error(err))
		}
		logger.Info("webhook signature verification enabled")
	} else {
		logger.Warn("webhook signature verification DISABLED; inbound deliveries are trusted as-is")
	}

	authService := service.NewAuthService(*cfg, operatorRepo)
	contactService := service.NewContactService(contactRepo, provider, dispatcher, cfg.Email, logger)
	inboundService := service.NewInboundEmailService(service.InboundEmailDependencies{
		ContactRepo: contactRepo,
		Provider:    provider,
		Verifier:    verifier,
		Dispatcher:  dispatcher,
		Deliveries:  persistence.NewRedisDeliveryLog(redis.Client, cfg.Email.WebhookDedupTTL()),
	}, logger)
	notificationService := service.NewNotificationService(dispatcher, logger)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), operatorRepo)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Contacts:       handlers.NewContactsHandler(contactService),
		Webhooks:       handlers.NewWebhooksHandler(inboundService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
