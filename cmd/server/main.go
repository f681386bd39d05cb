package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snapintake/internal/cache"
	"snapintake/internal/config"
	"snapintake/internal/repository"
	"snapintake/internal/service"
	"snapintake/internal/transport/rest"
	"snapintake/internal/transport/ws"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	log.Println("started")
	ctx := context.Background()

	cfg := config.Load()

	// Load AI config and log model settings
	aiConfig := config.DefaultAIConfig()
	log.Printf("AI Config:")
	log.Printf("  Coverage:  %s", aiConfig.Models.Coverage)
	log.Printf("  Fallback:  %s", aiConfig.Models.CoverageFallback)
	if aiConfig.IsEnabled() {
		log.Println("  API Key:   configured")
	} else {
		log.Println("  API Key:   NOT SET (using keyword heuristics)")
	}

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)

	// Ping MongoDB
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDatabase)

	// The lifecycle guard depends on the unique sessionId index
	if err := repository.EnsureInterviewIndexes(ctx, db); err != nil {
		log.Fatal("Failed to create interview indexes:", err)
	}

	// Redis connection
	redisAddr := cfg.RedisAddr
	// Remove redis:// prefix if present
	if len(redisAddr) > 8 && redisAddr[:8] == "redis://" {
		redisAddr = redisAddr[8:]
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	defer rdb.Close()

	// Ping Redis
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// Initialize repositories
	interviewRepo := repository.NewInterviewRepo(db)
	checkpointRepo := repository.NewCheckpointRepo(db)

	// Initialize caches
	coverageCache := cache.NewCoverageCache(rdb)
	resumeCache := cache.NewResumeCache(rdb)

	// Initialize services
	authSvc := service.NewAuthService()
	oracle := service.NewOracleClient(aiConfig)
	guard := service.NewLifecycleGuard(interviewRepo)
	writer := service.NewCheckpointWriter(guard, interviewRepo, checkpointRepo, resumeCache)
	policy := service.NewCompletionPolicy(guard, writer, interviewRepo, cfg.Interview)
	idle := service.NewIdleTracker(cfg.Interview)
	sessions := service.NewSessionManager(cfg.Interview, oracle, guard, writer, policy, idle,
		interviewRepo, coverageCache, resumeCache)
	defer sessions.Stop()

	// Inject broadcaster (wsHub implements service.Broadcaster)
	sessions.SetBroadcaster(wsHub)

	// Create router with container
	container := &rest.Container{
		AuthService:    authSvc,
		SessionManager: sessions,
		InterviewRepo:  interviewRepo,
		CheckpointRepo: checkpointRepo,
		WSHub:          wsHub,
	}

	router := rest.NewRouter(container)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		log.Println("Endpoints:")
		log.Println("  POST /v1/auth/login")
		log.Println("  POST /v1/sessions")
		log.Println("  POST /v1/sessions/{sessionId}/events")
		log.Println("  POST /v1/sessions/{sessionId}/complete")
		log.Println("  GET  /v1/sessions/{sessionId}/status")
		log.Println("  GET  /v1/sessions/{sessionId}/resume")
		log.Println("  GET  /v1/interviews")
		log.Println("  WS   /v1/ws/sessions/{sessionId}")
		log.Println("  WS   /v1/ws/sessions/{sessionId}/review")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
