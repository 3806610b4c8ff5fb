package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"healthcare-admin-server/internal/config"
	"healthcare-admin-server/internal/handlers"
	"healthcare-admin-server/internal/logger"
	"healthcare-admin-server/internal/metrics"
	"healthcare-admin-server/internal/middleware"
	"healthcare-admin-server/internal/models"
	"healthcare-admin-server/internal/notify"
	"healthcare-admin-server/internal/repository"
	"healthcare-admin-server/internal/routes"
	"healthcare-admin-server/internal/scheduling"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// A missing .env is fine; the environment may already be populated.
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Error loading config: %v", err)
	}

	log := logger.New(cfg.LogLevel)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.WithError(envErr).Warn("Could not read .env file")
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("Server stopped with error")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	defer sqlDB.Close()

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		created, err := repository.EnsureAdmin(context.Background(), db, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if created {
			log.WithField("email", cfg.Admin.Email).Info("Created initial admin account")
		}
	}

	m := metrics.New()
	healthChecks := map[string]handlers.HealthCheck{
		"database": sqlDB.PingContext,
	}

	var locker scheduling.SlotLocker
	if cfg.Redis.Address != "" {
		client := repository.NewRedisClient(cfg.Redis)
		defer client.Close()
		if err := repository.Ping(context.Background(), client); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		locker = repository.NewRedisSlotLocker(client, cfg.Redis.LockTTL, log)
		healthChecks["redis"] = func(ctx context.Context) error { return repository.Ping(ctx, client) }
		log.WithField("address", cfg.Redis.Address).Info("Using redis slot locks")
	} else {
		locker = repository.NewLocalSlotLocker()
		log.Info("REDIS_ADDR not set; using in-process slot locks")
	}

	var mailer notify.Mailer
	if cfg.Mailer.Host != "" {
		mailer = notify.NewSMTPMailer(cfg.Mailer.Host, cfg.Mailer.Port, cfg.Mailer.Username, cfg.Mailer.Password, cfg.Mailer.DefaultFrom)
	} else {
		mailer = notify.NewLogMailer(log)
		log.Info("SMTP_HOST not set; emails will be logged")
	}

	directory := repository.NewDirectory(db)
	dispatcher := notify.NewDispatcher(
		notify.NewEmailHandler(mailer, directory, cfg.AppURL),
		notify.Options{
			QueueSize:   cfg.Notifier.QueueSize,
			Workers:     cfg.Notifier.Workers,
			SendTimeout: cfg.Notifier.SendTimeout,
		},
		log, m,
	)

	service := scheduling.NewService(repository.NewAppointmentStore(db), directory, locker, dispatcher, m, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log, m))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, routes.Dependencies{
		DB:           db,
		Config:       cfg,
		Log:          log,
		Metrics:      m,
		Appointments: service,
		HealthChecks: healthChecks,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("Server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("HTTP server shutdown")
	}
	// In-flight notifications are drained after the last request finishes.
	if err := dispatcher.Close(ctx); err != nil {
		log.WithError(err).Warn("Notification queue not fully drained")
	}
	return nil
}
