package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	httpapi "neighbor-storage-backend/internal/api/http"
	"neighbor-storage-backend/internal/cache"
	"neighbor-storage-backend/internal/config"
	"neighbor-storage-backend/internal/jobs"
	"neighbor-storage-backend/internal/logger"
	"neighbor-storage-backend/internal/metrics"
	"neighbor-storage-backend/internal/notify"
	"neighbor-storage-backend/internal/repository"
	"neighbor-storage-backend/internal/repository/memory"
	"neighbor-storage-backend/internal/repository/postgres"
	"neighbor-storage-backend/internal/scheduler"
	"neighbor-storage-backend/internal/security"
	"neighbor-storage-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Neighbor Storage Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "health_port", cfg.Server.HealthPort)

	ctx := context.Background()
	m := metrics.New()

	// Initialize storage
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize storage", "type", cfg.Storage.Type, "error", err)
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer closeStore()

	// Initialize item terms cache
	termsCache, err := openCache(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize cache", "type", cfg.Cache.Type, "error", err)
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer termsCache.Close()

	// Initialize notification dispatcher
	senders, err := notificationSenders(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize notification senders", "error", err)
		log.Fatalf("Failed to initialize notification senders: %v", err)
	}
	dispatcher := notify.NewDispatcher(store, m, notify.Options{
		Workers:   cfg.Notifications.Workers,
		QueueSize: cfg.Notifications.QueueSize,
	}, senders...)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	// Initialize Services
	itemSvc := service.NewItemService(store, termsCache, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	ledgerSvc := service.NewLedgerService(store, m, cfg.Wallet.DefaultTopUp)
	adminSvc := service.NewAdminService(store, itemSvc, ledgerSvc, m)
	services := httpapi.Services{
		Auth:    service.NewAuthService(store, tokenManager, cfg.Wallet.WelcomeBonus),
		Users:   service.NewUserService(store.Repos().Users),
		Items:   itemSvc,
		Rentals: service.NewRentalService(store, itemSvc, dispatcher, m, cfg.Wallet.DeliveryFee),
		Ledger:  ledgerSvc,
		Chat:    service.NewChatService(store),
		Reviews: service.NewReviewService(store),
		Admin:   adminSvc,
	}

	router := httpapi.NewRouter(services, tokenManager, httpapi.RouterOptions{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Metrics:        m,
		Ping:           store.Ping,
	})
	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Set up gRPC health server
	var grpcServer *grpc.Server
	healthServer := health.NewServer()
	if cfg.Server.HealthPort > 0 {
		lis, err := net.Listen("tcp", cfg.GetHealthAddress())
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", cfg.GetHealthAddress())
			log.Fatalf("Failed to listen: %v", err)
		}
		grpcServer = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcServer, healthServer)
		reflection.Register(grpcServer)
		go func() {
			logger.Info("gRPC health server listening", "address", cfg.GetHealthAddress())
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC health server error", "error", err)
			}
		}()
	}

	// Initialize Scheduler
	var cronScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		runner := jobs.NewJobRunner(store, &jobs.Services{Ledger: ledgerSvc, Admin: adminSvc}, dispatcher, m, cfg.Scheduler)
		cronScheduler, err = scheduler.NewScheduler(runner)
		if err != nil {
			log.Fatalf("Failed to initialize scheduler: %v", err)
		}
		cronScheduler.Start()
	}

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve: %v", err)
		}
	}()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutting down...", "signal", sig.String())

	// Graceful shutdown
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	if cronScheduler != nil {
		cronScheduler.Stop()
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Error("Notification dispatcher did not drain", "error", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	logger.Info("Server stopped. Goodbye!")
}

// openStore returns the configured repository backend and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	if cfg.Storage.Type == "memory" {
		logger.Warn("Using in-memory storage; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)
	if cfg.Storage.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	return store, func() { _ = db.Close() }, nil
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.Cache.Type == "redis" {
		logger.Info("Connecting to redis...", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: "neighbor-storage:",
		})
	}
	return cache.NewMemoryCache(time.Minute), nil
}

func notificationSenders(ctx context.Context, cfg *config.Config) ([]notify.Sender, error) {
	var senders []notify.Sender
	if email := cfg.Notifications.Email; email.Provider == "sendgrid" {
		senders = append(senders, notify.NewEmailSender(email.APIKey, email.From, email.FromName))
		logger.Info("Email notifications enabled", "provider", email.Provider, "from", email.From)
	}
	if push := cfg.Notifications.Push; push.Provider == "fcm" {
		sender, err := notify.NewPushSender(ctx, push.ProjectID, push.CredentialsFile)
		if err != nil {
			return nil, err
		}
		senders = append(senders, sender)
		logger.Info("Push notifications enabled", "provider", push.Provider, "project_id", push.ProjectID)
	}
	return senders, nil
}
