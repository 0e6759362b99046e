package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"neighbor-storage-backend/internal/config"
	"neighbor-storage-backend/internal/jobs"
	"neighbor-storage-backend/internal/logger"
	"neighbor-storage-backend/internal/metrics"
	"neighbor-storage-backend/internal/notify"
	"neighbor-storage-backend/internal/repository/postgres"
	"neighbor-storage-backend/internal/scheduler"
	"neighbor-storage-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (reconcile-ledger, report-escrow, overdue-reminders or all)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Storage.Type != "postgres" {
		log.Fatalf("Cronjob runner requires postgres storage, got %q", cfg.Storage.Type)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Neighbor Storage Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)
	m := metrics.New()

	// Initialize notification dispatcher
	var senders []notify.Sender
	if email := cfg.Notifications.Email; email.Provider == "sendgrid" {
		senders = append(senders, notify.NewEmailSender(email.APIKey, email.From, email.FromName))
	}
	if push := cfg.Notifications.Push; push.Provider == "fcm" {
		sender, err := notify.NewPushSender(context.Background(), push.ProjectID, push.CredentialsFile)
		if err != nil {
			log.Fatalf("Failed to initialize push notifications: %v", err)
		}
		senders = append(senders, sender)
	}
	dispatcher := notify.NewDispatcher(store, m, notify.Options{
		Workers:   cfg.Notifications.Workers,
		QueueSize: cfg.Notifications.QueueSize,
	}, senders...)
	defer drain(dispatcher)

	// Initialize Services
	itemService := service.NewItemService(store, nil, 0)
	ledgerService := service.NewLedgerService(store, m, cfg.Wallet.DefaultTopUp)
	jobServices := &jobs.Services{
		Ledger: ledgerService,
		Admin:  service.NewAdminService(store, itemService, ledgerService, m),
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(store, jobServices, dispatcher, m, cfg.Scheduler)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := runJobOnce(jobRunner, *runOnce); err != nil {
			drain(dispatcher)
			fmt.Fprintf(os.Stderr, "job %s failed: %v\n", *runOnce, err)
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job, or every job for "all"
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) error {
	if jobName == "all" {
		return jobRunner.RunAll()
	}
	return jobRunner.RunJob(jobName)
}

func drain(d *notify.Dispatcher) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		logger.Error("Notification dispatcher did not drain", "error", err)
	}
}
