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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"supplyline-sync/config"
	"supplyline-sync/internal/api"
	"supplyline-sync/internal/auth"
	"supplyline-sync/internal/connectivity"
	"supplyline-sync/internal/db"
	"supplyline-sync/internal/power"
	"supplyline-sync/internal/remote"
	"supplyline-sync/internal/repository"
	"supplyline-sync/internal/seed"
	"supplyline-sync/internal/store"
	"supplyline-sync/internal/syncer"
)

func main() {
	logger := log.New(os.Stdout, "supplyline ", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("Warning: failed to load .env: %v", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	policy, err := repository.ParseWritePolicy(cfg.Repository.WritePolicy)
	if err != nil {
		logger.Fatalf("invalid repository configuration: %v", err)
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	if cfg.Seed.Enabled {
		if _, err := seed.Run(ctx, appStore); err != nil {
			logger.Fatalf("failed to seed sample data: %v", err)
		}
	}

	session := auth.NewTokenManager()
	client, err := remote.NewHTTPClient(&cfg.Remote, session)
	if err != nil {
		logger.Fatalf("failed to create backend client: %v", err)
	}

	tools := repository.NewToolRepository(appStore, client, policy)
	chemicals := repository.NewChemicalRepository(appStore, client, policy)
	users := repository.NewUserRepository(appStore, client, session, policy)

	monitor := connectivity.NewMonitor(&cfg.Connectivity, cfg.Remote.Timeout)
	go monitor.Run(ctx)

	task := &syncer.Task{
		Tools:     tools,
		Chemicals: chemicals,
		Users:     users,
		Auth:      session,
		Network:   monitor,
	}
	scheduler := syncer.NewScheduler(cfg.Sync, task, monitor,
		syncer.WithMetrics(syncer.NewMetrics(prometheus.DefaultRegisterer)),
		syncer.WithBattery(power.NewSysfsBattery(cfg.Sync.PowerSupplyPath, cfg.Sync.LowBatteryPercent)))
	scheduler.Start(ctx)
	if cfg.Sync.PeriodicEnabled {
		scheduler.SchedulePeriodicSync()
	}

	// Pull fresh data as soon as the backend comes back.
	go func() {
		for up := range monitor.Watch(ctx) {
			if up && session.IsAuthenticated() {
				scheduler.SyncNow()
			}
		}
	}()

	handler := api.NewHandler(tools, chemicals, users, scheduler, monitor)
	router := api.NewRouter(handler, &cfg.Server, prometheus.DefaultGatherer)
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
		logger.Printf("HTTP server Shutdown: %v", err)
	}
	cancel()
	scheduler.Stop()

	logger.Println("Server gracefully stopped")
}
