package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/isp-routing-engine/internal/api/http"
	"github.com/spec-kit/isp-routing-engine/internal/api/http/handlers"
	"github.com/spec-kit/isp-routing-engine/internal/billing"
	"github.com/spec-kit/isp-routing-engine/internal/config"
	"github.com/spec-kit/isp-routing-engine/internal/events"
	"github.com/spec-kit/isp-routing-engine/internal/menu"
	"github.com/spec-kit/isp-routing-engine/internal/nlp"
	"github.com/spec-kit/isp-routing-engine/internal/observability"
	"github.com/spec-kit/isp-routing-engine/internal/persistence"
	"github.com/spec-kit/isp-routing-engine/internal/repository"
	"github.com/spec-kit/isp-routing-engine/internal/service"
	"github.com/spec-kit/isp-routing-engine/internal/session"
	"github.com/spec-kit/isp-routing-engine/internal/stream"
	"github.com/spec-kit/isp-routing-engine/internal/transport"
	"github.com/spec-kit/isp-routing-engine/internal/worker"
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

	redisWrap := persistence.NewRedis(cfg.Redis, logger)
	defer redisWrap.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	menuRepo := repository.NewMenuRepository(pool)
	clientRepo := repository.NewClientRepository(pool)
	receiptRepo := repository.NewReceiptRepository(pool)
	leadRepo := repository.NewLeadRepository(pool)

	if err := menu.Seed(ctx, menuRepo, cfg.Session.MenuSeedPath, logger); err != nil {
		logger.Fatal("failed to seed menu", zap.Error(err))
	}

	store := session.NewStore(redisWrap.Client, cfg.Session.StateTTL())
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	messenger := transport.NewHTTPGateway(cfg.Transport)
	classifier := nlp.NewOpenAIClassifier(cfg.OpenAI)
	qrGateway := billing.NewHTTPQRGateway(cfg.Transport.QRGatewayURL)
	groupPool := service.NewGroupPool(cfg.Transport.PoolGroupIDs)

	sessions := service.NewSessionService(service.SessionDependencies{
		Store:      store,
		Pool:       groupPool,
		TicketRepo: ticketRepo,
		Messenger:  messenger,
		Classifier: classifier,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
		Timeout:    cfg.Session.InactivityTimeout(),
	})
	triage := service.NewTriageService(service.TriageDependencies{
		Store:           store,
		Pool:            groupPool,
		TicketRepo:      ticketRepo,
		Messenger:       messenger,
		Sessions:        sessions,
		Dispatcher:      dispatcher,
		Logger:          logger,
		Metrics:         metrics,
		TriageChannelID: cfg.Transport.TriageChannelID,
	})
	conversations := service.NewConversationService(service.ConversationDependencies{
		Store:       store,
		Menus:       menu.NewResolver(menuRepo),
		ClientRepo:  clientRepo,
		TicketRepo:  ticketRepo,
		ReceiptRepo: receiptRepo,
		LeadRepo:    leadRepo,
		Classifier:  classifier,
		Messenger:   messenger,
		QRGenerator: qrGateway,
		Sessions:    sessions,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
	})
	router := service.NewRouter(service.RouterDependencies{
		Store:           store,
		Triage:          triage,
		Sessions:        sessions,
		Conversations:   conversations,
		TriageChannelID: cfg.Transport.TriageChannelID,
		Logger:          logger,
		Metrics:         metrics,
	})

	notifications := service.NewNotificationService(dispatcher, messenger, store, logger, cfg.Transport)
	publisher := stream.NewKafkaPublisher(cfg.Kafka, logger)
	defer publisher.Close() //nolint:errcheck
	worker.StartNotificationWorker(notifications, publisher, dispatcher)

	if err := sessions.Recover(ctx); err != nil {
		logger.Warn("session recovery incomplete", zap.Error(err))
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisWrap, metrics)
	webhookHandler := handlers.NewWebhookHandler(router, cfg.Transport.WebhookSecret)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  healthHandler,
		Webhook: webhookHandler,
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
