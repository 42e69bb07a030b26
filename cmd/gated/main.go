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

	"github.com/oondels/emergency-gate-monitoring/config"
	"github.com/oondels/emergency-gate-monitoring/internal/api"
	"github.com/oondels/emergency-gate-monitoring/internal/db"
	"github.com/oondels/emergency-gate-monitoring/internal/engine"
	"github.com/oondels/emergency-gate-monitoring/internal/liveness"
	"github.com/oondels/emergency-gate-monitoring/internal/notification"
	"github.com/oondels/emergency-gate-monitoring/internal/store"
	"github.com/oondels/emergency-gate-monitoring/internal/ws"
)

func main() {
	logger := log.New(os.Stdout, "gated ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Fatalf("VAPID keys must be configured. Please generate them and add them to your config file.")
	}
	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	reconcilerZone, err := time.LoadLocation(cfg.Reconciler.Timezone)
	if err != nil {
		logger.Fatalf("invalid reconciler timezone: %v", err)
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	if err := db.SeedDoors(gormDB, cfg.Doors); err != nil {
		logger.Fatalf("failed to seed doors: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	queries := engine.NewQueries(appStore, cfg.DoorIDs())

	workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, &webpushOptions)
	workerPool.Start(ctx)

	monitor := liveness.NewMonitor(cfg.DoorIDs(), cfg.Liveness.Timeout)
	hub := ws.NewHub(monitor, queries)

	hub.Start()
	monitor.Start(hub)
	logger.Printf("liveness watchdog running with a %s window", cfg.Liveness.Timeout)

	machine := engine.NewStateMachine(appStore, hub, workerPool)
	reconciler := engine.NewReconciler(appStore, reconcilerZone)

	router := api.NewRouter(cfg, appStore, machine, reconciler, queries, hub, &webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	monitor.Stop()
	hub.Stop()

	logger.Println("Server gracefully stopped")
}
