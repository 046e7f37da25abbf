package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/medibox-api/internal/application/alerting"
	"github.com/medibox-api/internal/config"
	"github.com/medibox-api/internal/infrastructure/devicebox"
	"github.com/medibox-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/medibox-api/internal/infrastructure/jwt"
	"github.com/medibox-api/internal/infrastructure/smtp"
	"github.com/medibox-api/internal/infrastructure/sns"
	transporthttp "github.com/medibox-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	sessionRepo := dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions)
	boxRepo := dynamo.NewBoxRepo(dynamoClient, cfg.DynamoTables.Boxes)
	alertRepo := dynamo.NewAlertRepo(dynamoClient, cfg.DynamoTables.Alerts)

	if cfg.AppEnv == "development" {
		dynamo.Seed(context.Background(), dynamoClient, cfg.DynamoTables.Meta, userRepo, boxRepo)
	}

	// JWT provider (optional, graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	deviceClient := devicebox.NewClient(cfg)

	// Outbound alert notifiers (both optional).
	var notifiers []alerting.Notifier
	if publisher, err := sns.NewPublisher(cfg); err == nil {
		notifiers = append(notifiers, publisher)
	} else {
		log.Printf("WARN: SNS publisher not available: %v", err)
	}
	if cfg.AlertEmailTo != "" {
		notifiers = append(notifiers, smtp.NewAlertNotifier(smtp.NewMailer(cfg), cfg.AlertEmailTo))
	}

	engine := alerting.NewEngine(boxRepo, alertRepo, alerting.Config{
		LowStockThresholdDays: cfg.LowStockThresholdDays,
		LowStockDedup:         alerting.ParseDedupPolicy(cfg.LowStockDedup),
	})
	poller := alerting.NewPoller(engine, cfg.DoseTickInterval, cfg.LowStockTickInterval, notifiers...)

	pollCtx, stopPoller := context.WithCancel(context.Background())
	go func() {
		if err := poller.Run(pollCtx); err != nil && pollCtx.Err() == nil {
			slog.Error("alert poller stopped", "err", err)
		}
	}()

	deps := &transporthttp.Deps{
		UserRepo:     userRepo,
		SessionRepo:  sessionRepo,
		BoxRepo:      boxRepo,
		AlertRepo:    alertRepo,
		DeviceClient: deviceClient,
		JWTProvider:  jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopPoller()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
