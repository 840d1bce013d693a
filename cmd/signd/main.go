package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"parking-sign-backend/config"
	"parking-sign-backend/internal/api"
	"parking-sign-backend/internal/blob"
	"parking-sign-backend/internal/db"
	"parking-sign-backend/internal/ingest"
	"parking-sign-backend/internal/interpreter"
	"parking-sign-backend/internal/interpreter/openai"
	"parking-sign-backend/internal/notification"
	"parking-sign-backend/internal/query"
	"parking-sign-backend/internal/store"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "signd ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	var uploader blob.Uploader = blob.Disabled{}
	if cfg.Storage.Bucket != "" {
		s3Uploader, err := blob.NewS3Uploader(ctx, cfg.Storage)
		if err != nil {
			logger.Fatalf("failed to initialize object storage: %v", err)
		}
		uploader = s3Uploader
		logger.Printf("sign photos are stored in bucket %s", cfg.Storage.Bucket)
	} else {
		logger.Println("storage.bucket is not set; spots will carry the placeholder image URL")
	}

	model, err := openai.New(cfg.Vision)
	if err != nil {
		logger.Fatalf("failed to initialize vision model: %v", err)
	}
	signReader := interpreter.New(model, interpreter.Options{
		Timeout:           cfg.Vision.Timeout,
		RequestsPerMinute: cfg.Vision.RequestsPerMinute,
	})

	// Area-watch notifications are optional
	var webpushOptions *webpush.Options
	var notifier ingest.Notifier
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, gormDB, webpushOptions)
		pool.Start(ctx)
		notifier = pool
	} else {
		logger.Println("VAPID keys are not configured; area-watch notifications are disabled")
	}

	ingester := ingest.NewService(appStore, uploader, signReader, notifier, ingest.Options{
		UploadTimeout: cfg.Storage.Timeout,
		WriteTimeout:  cfg.Ingest.WriteTimeout,
	})
	spots := query.NewService(appStore, cfg.Query.MaxResults)

	// Initialize router
	router := api.NewRouter(appStore, api.Options{
		Ingester:       ingester,
		Spots:          spots,
		Webpush:        webpushOptions,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, time.Duration(cfg.Server.CacheTTLSeconds)*time.Second)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// In-flight uploads may wait on the vision model.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Vision.Timeout+5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}
	cancel()

	logger.Println("Server gracefully stopped")
}
