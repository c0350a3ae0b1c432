package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	httpapi "sectland-backend/internal/api/http"
	"sectland-backend/internal/billing"
	"sectland-backend/internal/config"
	"sectland-backend/internal/debt"
	"sectland-backend/internal/jobs"
	"sectland-backend/internal/logger"
	"sectland-backend/internal/repository/postgres"
	"sectland-backend/internal/scheduler"
	"sectland-backend/internal/security"
	"sectland-backend/internal/service"
	"sectland-backend/internal/territory"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a single job and exit (maintenance)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting sect territory backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret)

	// Initialize claim store
	var claimStore territory.ClaimStore
	switch cfg.Territory.Type {
	case "", "mock":
		logger.Info("Using in-memory claim store")
		claimStore = territory.NewMockStore()
	default:
		logger.Error("Unsupported territory store type", "type", cfg.Territory.Type)
		log.Fatalf("Territory store type '%s' not yet implemented", cfg.Territory.Type)
	}

	// Initialize Services
	emailSvc := service.NewEmailService(cfg.Email)
	noteSvc := service.NewNotificationService(store.NotificationRepository, store.SectRepository, emailSvc)
	calc := billing.NewCalculator(cfg.Billing, cfg.Maintenance)
	debtManager := debt.NewManager(store.DebtRepository, store.SectRepository, claimStore, noteSvc, cfg.Debt)
	landSvc := service.NewLandService(store.SectRepository, store.LedgerRepository, claimStore, debtManager, calc, noteSvc)

	// Restore persisted debt state before anything can act on it
	if err := debtManager.LoadAll(context.Background()); err != nil {
		logger.Error("Failed to load debt records", "error", err)
		log.Fatalf("Failed to load debt records: %v", err)
	}

	// Initialize Jobs
	jobRunner := jobs.NewJobRunner(store.SectRepository, landSvc, cfg)

	if *runOnce != "" {
		runSingleJob(jobRunner, *runOnce)
		return
	}

	// Start Scheduler
	sched := scheduler.NewScheduler(jobRunner)
	sched.Start()
	defer sched.Stop()

	// Set up HTTP server
	handler := httpapi.NewLandHandler(landSvc, debtManager, jobRunner.Stats())
	router := httpapi.NewRouter(handler, tokenManager)

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Failed to shut down HTTP server cleanly", "error", err)
	}
	logger.Info("Server stopped")
}

// runSingleJob executes one named job for manual operation
func runSingleJob(jobRunner *jobs.JobRunner, name string) {
	switch name {
	case "maintenance":
		jobRunner.ProcessMaintenanceFees()
	case "all":
		jobRunner.RunAllHourlyJobs()
	default:
		log.Fatalf("Unknown job: %s (expected 'maintenance' or 'all')", name)
	}
}
