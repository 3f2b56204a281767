package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud-backend/internal/config"
	"cloud-backend/internal/database"
	"cloud-backend/internal/handlers"
	"cloud-backend/internal/middleware"
	"cloud-backend/internal/repository"
	"cloud-backend/internal/router"
	"cloud-backend/internal/services"
	"cloud-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Cloud Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories & Services ────
	conversationRepo := repository.NewConversationRepo(pool)
	gatewayService := services.NewGatewayService(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.ChatModel, cfg.ImageModel)
	weatherService := services.NewWeatherService(redisClients.Cache)
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	log.Println("✓ Model gateway client initialized")

	// ──── Initialize Handlers ────
	chatHandler := handlers.NewChatHandler(gatewayService)
	conversationHandler := handlers.NewConversationHandler(conversationRepo, redisClients.Queue)
	weatherHandler := handlers.NewWeatherHandler(weatherService)

	// ──── Step 5: Start Title Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, gatewayService, conversationRepo, cfg.TitleWorkers)
	workerPool.Start()
	log.Printf("✓ Title worker pool started (%d goroutines)", cfg.TitleWorkers)

	// ──── Step 6: Start HTTP Server ────
	r := router.New(jwtAuth, chatHandler, conversationHandler, weatherHandler, cfg.FrontendURL)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: SSE responses stay open for the stream's lifetime.
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Cloud Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
