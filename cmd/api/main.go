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

	"precisionworks/internal/config"
	"precisionworks/internal/database"
	"precisionworks/internal/domain"
	"precisionworks/internal/intake"
	"precisionworks/internal/metrics"
	"precisionworks/internal/notify"
	"precisionworks/internal/records"
	"precisionworks/internal/server"
	"precisionworks/internal/services"
	"precisionworks/internal/triage"
	"precisionworks/internal/util"
)

const (
	shutdownTimeout   = 30 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 15 * time.Second
	idleTimeout       = 60 * time.Second
	dbStatsInterval   = 15 * time.Second
	sessionSweepEvery = time.Minute
)

func main() {
	log.SetPrefix("[API] ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	log.Printf("Starting %s v%s", cfg.App.Name, cfg.App.Version)
	log.Printf("Environment: debug=%v, port=%s, host=%s", cfg.App.Debug, cfg.App.Port, cfg.App.Host)

	log.Println("Initializing database connection...")
	if err := database.Init(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()
	defer func() {
		log.Println("Closing database connections...")
		if sqlDB, err := db.DB(); err == nil {
			if closeErr := sqlDB.Close(); closeErr != nil {
				log.Printf("Error closing database: %v", closeErr)
			}
		}
	}()

	store, err := records.NewGormStore[domain.ContactRequest](db)
	if err != nil {
		log.Fatalf("Failed to create contact request store: %v", err)
	}

	log.Println("Initializing services...")
	emailSvc := services.NewEmailService(&cfg.Email)
	contactSvc := services.NewContactService(store, emailSvc, cfg.Notify.AdminEmail)
	authSvc := services.NewAuthService(db, util.NewTokenIssuer(cfg.Auth.SecretKey, cfg.Auth.TokenExpiry()), util.NewRevocations())

	sessions := intake.NewSessions(func() *intake.Form {
		return intake.NewForm(store,
			intake.WithResetDelay(cfg.Intake.ResetDelay()),
			intake.WithNotifier(notify.Log("INTAKE")),
			intake.WithOnCreated(contactSvc.Notify),
		)
	}, cfg.Intake.SessionTTL(), sessionSweepEvery, cfg.Intake.MaxSessions)

	boards := triage.NewRegistry(func() *triage.Board {
		return triage.NewBoard(store,
			triage.WithPageSize(cfg.Triage.PageSize),
			triage.WithStrictTransitions(cfg.Triage.StrictTransitions),
			triage.WithNotifier(notify.Log("TRIAGE")),
		)
	})

	srv := server.New(server.Services{
		Health:    services.NewHealthService(db, cfg.App.Name, cfg.App.Version),
		Auth:      authSvc,
		Contact:   contactSvc,
		Dashboard: services.NewDashboardService(store),
		Sessions:  sessions,
		Boards:    boards,
	})

	// Security -> CORS -> Logging -> Prometheus -> routes
	handler := server.SecurityHeaders(cfg.App)(
		server.CORS(cfg.CORS, cfg.App.Debug)(
			server.RequestLogging(
				metrics.PrometheusMiddleware(srv.Handler()))))

	addr := fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		ErrorLog:     log.New(os.Stderr, "[HTTP] ", log.LstdFlags),
	}

	statsCtx, stopStats := context.WithCancel(context.Background())
	go reportDBStats(statsCtx)

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server error: %w", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Printf("Server failed: %v", err)
	case sig := <-shutdown:
		log.Printf("Received signal: %v. Starting graceful shutdown...", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Error during graceful shutdown: %v", err)
		if errors.Is(err, context.DeadlineExceeded) {
			log.Println("Shutdown timeout exceeded, forcing close...")
			httpServer.Close()
		}
	}

	stopStats()
	sessions.Close()
	log.Println("Waiting for pending notification emails...")
	contactSvc.Wait()

	log.Println("Server shutdown complete")
}

// reportDBStats publishes connection pool gauges until ctx is cancelled
func reportDBStats(ctx context.Context) {
	ticker := time.NewTicker(dbStatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := database.GetStats()
			if err != nil {
				log.Printf("[DB] stats unavailable: %v", err)
				continue
			}
			metrics.UpdateDBConnections(stats.InUse, stats.Idle)
		}
	}
}

// validateConfig rejects settings that are unsafe to serve with
func validateConfig(cfg *config.Config) error {
	if cfg.Auth.SecretKey == "your-secret-key-change-in-production" {
		return fmt.Errorf("SECRET_KEY must be changed from default value")
	}
	if len(cfg.Auth.SecretKey) < 32 {
		return fmt.Errorf("SECRET_KEY must be at least 32 characters for security")
	}
	return nil
}
