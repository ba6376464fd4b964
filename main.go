package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"statsync/internal/api"
	"statsync/internal/config"
	"statsync/internal/database"
	"statsync/internal/services/query"
	"statsync/internal/services/scheduler"
	"statsync/internal/services/status"
	"statsync/internal/services/tasks"
	"statsync/internal/services/updater"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	log := logger.WithField("app", "statsync")

	db, err := database.Init(cfg.DatabaseURL, log.WithField("component", "database"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close(db)

	retry := api.DefaultRetryPolicy(cfg.Provider.RetryAttempts, cfg.Provider.BaseDelay, cfg.Provider.MinDelay)
	client := api.NewClient(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Timeout, retry)

	statusStore := status.NewStore(status.NewGormRepository(db))
	runner := tasks.NewRunner(cfg.TaskRetention, log.WithField("component", "tasks"))
	defer runner.Stop()

	updaterService := updater.NewService(db, client, statusStore, runner, cfg.Season, log.WithField("component", "updater"))
	queryService := query.NewService(db)

	sched := scheduler.NewService(updaterService, statusStore, cfg.UpdateSchedule, log.WithField("component", "scheduler"))
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := NewApp(updaterService, queryService, runner, log.WithField("component", "http"))
	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      app.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("Shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("HTTP server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP shutdown incomplete: %v", err)
	}
}
