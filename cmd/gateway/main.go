package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/example/plantshop-checkout/internal/api"
	"github.com/example/plantshop-checkout/internal/auth"
	"github.com/example/plantshop-checkout/internal/checkout"
	"github.com/example/plantshop-checkout/internal/events"
	"github.com/example/plantshop-checkout/internal/upstream"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Configuration from environment variables
	listenAddr := getEnv("LISTEN_ADDR", ":8080")
	upstreamURL := getEnv("UPSTREAM_BASE_URL", "http://localhost:5000")
	databaseURL := os.Getenv("DATABASE_URL")
	kafkaBrokersStr := os.Getenv("KAFKA_BROKERS")
	kafkaTopic := getEnv("KAFKA_TOPIC", "checkout-events")
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("[Gateway] JWT_SECRET environment variable is required")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("[Gateway] JWT_SECRET must be at least 32 characters long")
	}

	log.Println("[Gateway] ========================================")
	log.Println("[Gateway] Plantshop Checkout Gateway")
	log.Println("[Gateway] ========================================")
	log.Printf("[Gateway] Upstream commerce API: %s", upstreamURL)

	// Checkout session store: Postgres when configured, memory otherwise
	var sessionStore checkout.Store
	if databaseURL != "" {
		db, err := checkout.ConnectPostgres(databaseURL)
		if err != nil {
			log.Fatalf("[Gateway] Failed to connect to PostgreSQL: %v", err)
		}
		defer db.Close()

		pgStore := checkout.NewPostgresStore(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Fatalf("[Gateway] Failed to ensure schema: %v", err)
		}
		sessionStore = pgStore
		log.Println("[Gateway] Session store: PostgreSQL")
	} else {
		sessionStore = checkout.NewMemoryStore()
		log.Println("[Gateway] Session store: in-memory (sessions do not survive restart)")
	}

	// Lifecycle events: Kafka when configured, discarded otherwise
	var publisher events.Publisher = events.NopPublisher{}
	if kafkaBrokersStr != "" {
		brokers := strings.Split(kafkaBrokersStr, ",")
		kafkaPublisher := events.NewKafkaPublisher(brokers, kafkaTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Printf("[Gateway] Publishing checkout events to %v topic %s", brokers, kafkaTopic)
	}

	client := upstream.NewClient(upstreamURL)
	jwtService := auth.NewJWTService(jwtSecret, 24*time.Hour)
	orchestrator := checkout.NewOrchestrator(client, sessionStore, publisher)
	handlers := api.NewHandlers(jwtService, client, orchestrator)
	router := api.NewRouter(handlers, jwtService)

	server := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}

	go func() {
		log.Printf("[Gateway] Listening on %s", listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Gateway] Server error: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("[Gateway] Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Gateway] Shutdown error: %v", err)
	}
	log.Println("[Gateway] Stopped")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
