package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ddong8/quant-future-sub001/internal/config"
	"github.com/ddong8/quant-future-sub001/internal/infrastructure/logger"
	"github.com/ddong8/quant-future-sub001/internal/infrastructure/notify"
	"github.com/ddong8/quant-future-sub001/internal/infrastructure/storage"
	"github.com/ddong8/quant-future-sub001/internal/usecase"
	"github.com/ddong8/quant-future-sub001/internal/web"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	store, err := storage.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Strategies
	registry := usecase.DefaultStrategyRegistry()

	// 5. Notifier: websocket fan-out plus the application log
	hub := notify.NewHub(log)
	defer hub.Close()
	notifier := notify.Multi{hub, notify.NewLogNotifier(log)}

	// 6. Scheduler
	scheduler := usecase.NewScheduler(
		usecase.SchedulerConfig{
			MaxConcurrentTasks: cfg.Scheduler.MaxConcurrentTasks,
			MaxRetries:         cfg.Scheduler.MaxRetries,
		},
		store,
		registry,
		notifier,
		store,
		log,
	)
	scheduler.Start()

	// 7. Web Server
	server := web.NewServer(cfg.Server.Port, scheduler, store, store, hub, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 8. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(ctx)
	scheduler.Stop()
}
