package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	appoutbox "valikoo/internal/app/outbox"
	authsvc "valikoo/internal/app/services/auth"
	domainchat "valikoo/internal/domain/chat"
	domainnotification "valikoo/internal/domain/notification"
	domainorder "valikoo/internal/domain/order"
	domainproduct "valikoo/internal/domain/product"
	domainrequest "valikoo/internal/domain/request"
	domainsaved "valikoo/internal/domain/saved"
	domaintrip "valikoo/internal/domain/trip"
	domainuser "valikoo/internal/domain/user"
	"valikoo/internal/infra/broker/kafka"
	"valikoo/internal/infra/config"
	mongodb "valikoo/internal/infra/db/mongo"
	ginserver "valikoo/internal/infra/http/gin"
	"valikoo/internal/infra/obs"
	"valikoo/internal/infra/security"
	"valikoo/internal/infra/storage/memory"
	"valikoo/internal/infra/storage/s3"
	"valikoo/internal/realtime"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	logger := obs.NewLogger(cfg.Env)
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	repos, ready, err := buildRepositories(cfg, logger)
	if err != nil {
		logger.Error("storage init failed", "error", err)
		os.Exit(1)
	}

	authService := &authsvc.Service{
		Users:     repos.users,
		Passwords: security.BcryptHasher{},
		Tokens: security.TokenManager{
			Secret: []byte(cfg.JWTSecret),
			Issuer: "valikoo",
		},
		TokenTTL:    cfg.TokenTTL,
		RememberTTL: cfg.RememberTTL,
		Logger:      logger,
	}

	registry := realtime.NewRegistry()
	broadcaster := realtime.NewBroadcaster(registry, logger)
	channel := &realtime.ChannelHandler{
		Registry:    registry,
		Broadcaster: broadcaster,
		Auth:        authService,
		Chats:       repos.chats,
		Logger:      logger,
	}

	events := &appoutbox.Appender{Store: repos.outbox, Logger: logger}
	startOutboxWorker(ctx, cfg, repos.outbox, logger)

	var photos s3.Uploader
	if cfg.S3Endpoint != "" {
		client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger)
		if err != nil {
			logger.Error("object storage init failed", "error", err)
			os.Exit(1)
		}
		photos = client
	}

	handlers := ginserver.Handlers{
		Auth: ginserver.AuthHandler{Service: authService, Logger: logger},
		Product: ginserver.ProductHandler{
			Products:    repos.products,
			Trips:       repos.trips,
			Broadcaster: broadcaster,
			Events:      events,
			Photos:      photos,
			Logger:      logger,
		},
		Request: ginserver.RequestHandler{Requests: repos.requests, Products: repos.products, Logger: logger},
		Trip:    ginserver.TripHandler{Trips: repos.trips, Products: repos.products, Logger: logger},
		Chat: ginserver.ChatHandler{
			Chats:       repos.chats,
			Users:       repos.users,
			Products:    repos.products,
			Broadcaster: broadcaster,
			Events:      events,
			Logger:      logger,
		},
		Saved:        ginserver.SavedItemHandler{Saved: repos.saved, Products: repos.products, Logger: logger},
		Order:        ginserver.OrderHandler{Orders: repos.orders, Products: repos.products, Logger: logger},
		Notification: ginserver.NotificationHandler{Notifications: repos.notifications, Logger: logger},
		Dashboard: ginserver.DashboardHandler{
			Users:    repos.users,
			Products: repos.products,
			Requests: repos.requests,
			Trips:    repos.trips,
			Saved:    repos.saved,
			Orders:   repos.orders,
			Logger:   logger,
		},
		Live:           channel.Handle,
		AuthMiddleware: ginserver.AuthMiddleware{Service: authService, Logger: logger}.Handle,
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: ready}, handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type repositories struct {
	users         domainuser.Repository
	products      domainproduct.Repository
	requests      domainrequest.Repository
	trips         domaintrip.Repository
	saved         domainsaved.Repository
	orders        domainorder.Repository
	notifications domainnotification.Repository
	chats         domainchat.Store
	outbox        appoutbox.Store
}

// buildRepositories selects Mongo when MONGO_URI is configured and falls back
// to the in-memory store otherwise.
func buildRepositories(cfg config.Config, logger *slog.Logger) (repositories, func() error, error) {
	if cfg.MongoURI == "" {
		logger.Info("using in-memory storage")
		return repositories{
			users:         memory.NewUserRepository(),
			products:      memory.NewProductRepository(),
			requests:      memory.NewRequestRepository(),
			trips:         memory.NewTripRepository(),
			saved:         memory.NewSavedItemRepository(),
			orders:        memory.NewOrderRepository(),
			notifications: memory.NewNotificationRepository(),
			chats:         memory.NewChatStore(),
			outbox:        memory.NewOutboxStore(),
		}, func() error { return nil }, nil
	}

	client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return repositories{}, nil, err
	}
	logger.Info("mongo connected", "database", cfg.MongoDB)
	ready := func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return client.Ping(pingCtx)
	}
	return repositories{
		users:         mongodb.NewUserRepository(client.DB),
		products:      mongodb.NewProductRepository(client.DB),
		requests:      mongodb.NewRequestRepository(client.DB),
		trips:         mongodb.NewTripRepository(client.DB),
		saved:         mongodb.NewSavedItemRepository(client.DB),
		orders:        mongodb.NewOrderRepository(client.DB),
		notifications: mongodb.NewNotificationRepository(client.DB),
		chats:         mongodb.NewChatStore(client.DB),
		outbox:        mongodb.NewOutboxStore(client.DB),
	}, ready, nil
}

func startOutboxWorker(ctx context.Context, cfg config.Config, store appoutbox.Store, logger *slog.Logger) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("kafka brokers not configured, outbox worker disabled")
		return
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		logger.Error("kafka producer init failed", "error", err)
		os.Exit(1)
	}
	worker := &appoutbox.Worker{
		Store:       store,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Source:      "valikoo",
		Backoff:     cfg.RetryBackoff,
	}
	go func() {
		defer producer.Close()
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()
}
