package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"video-orchestrator/api/rest/routes"
	"video-orchestrator/config"
	"video-orchestrator/core/costing"
	"video-orchestrator/core/download"
	"video-orchestrator/core/monitoring"
	"video-orchestrator/core/pricing"
	"video-orchestrator/core/repository"
	"video-orchestrator/core/retry"
	"video-orchestrator/core/scheduler"
	"video-orchestrator/core/tracking"
	"video-orchestrator/providers/videoapi"
	"video-orchestrator/storage"

	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// Initialize database
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.InitSchema(); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	log.Println("Database connected successfully")

	// Pricing table: compiled-in defaults unless a file overrides them
	table := pricing.Default()
	if cfg.PricingFile != "" {
		table, err = pricing.LoadFile(cfg.PricingFile)
		if err != nil {
			log.Fatalf("Failed to load pricing table: %v", err)
		}
	}
	if table.IsStale(time.Now().UTC()) {
		log.Printf("WARNING: pricing table %s is stale; verify against vendor pricing", table.Version)
	}
	calculator := costing.NewCalculator(table)

	// Optional Redis status board
	var board tracking.Tracker
	if cfg.RedisURL != "" {
		redisTracker, err := tracking.NewRedisTracker(cfg.RedisURL, cfg.TrackingTTL)
		if err != nil {
			log.Fatalf("Failed to configure tracking: %v", err)
		}
		if err := redisTracker.Ping(ctx); err != nil {
			log.Printf("Tracking board unreachable, continuing without it: %v", err)
		} else {
			board = redisTracker
			log.Println("Tracking board connected successfully")
		}
	}

	// Spend tracker fronts the board so every status update prices completions
	var next monitoring.Publisher
	if board != nil {
		next = board
	}
	spend := monitoring.NewSpendTracker(calculator, next)

	// Video generation API client
	client := videoapi.NewClient(cfg.VideoAPIBaseURL, cfg.VideoAPIKey)

	// Download manager persisting assets to S3
	assetStore, err := storage.NewS3AssetStore(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	if err != nil {
		log.Fatalf("Failed to configure asset storage: %v", err)
	}
	downloadRepo := repository.NewDownloadRepository(db)
	downloads := download.NewManager(download.Config{
		MaxConcurrent: cfg.DownloadSlots,
		MaxAttempts:   cfg.MaxAttempts,
	}, client, assetStore, downloadRepo, retry.DefaultPolicy())
	defer downloads.Stop()

	// Scheduler
	jobRepo := repository.NewJobRepository(db)
	sched := scheduler.NewScheduler(scheduler.Config{
		MaxConcurrent: cfg.MaxConcurrent,
		MaxAttempts:   cfg.MaxAttempts,
		PollInterval:  cfg.PollInterval,
		CallTimeout:   cfg.CallTimeout,
	}, client, retry.DefaultPolicy(), jobRepo, spend, downloads)
	go sched.Start(ctx)
	defer sched.Stop()

	// Periodic batch summaries for the board
	var watcher *monitoring.BatchWatcher
	if board != nil {
		watcher = monitoring.NewBatchWatcher(sched, board, 10*time.Second)
		defer watcher.StopAll()
	}

	// Setup routes
	r := mux.NewRouter()
	routes.SetupRoutes(r, routes.Deps{
		Scheduler:  sched,
		Downloads:  downloads,
		Calculator: calculator,
		EventRepo:  repository.NewEventRepository(db),
		Spend:      spend,
		Watcher:    watcher,
	})

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Start server
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Starting server on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := server.Shutdown(context.Background()); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
