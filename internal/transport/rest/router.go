package rest

import (
	"net/http"
	"os"

	"snapintake/internal/repository"
	"snapintake/internal/service"
	"snapintake/internal/transport/rest/handler"
	"snapintake/internal/transport/rest/middleware"
	"snapintake/internal/transport/ws"

	"github.com/gorilla/mux"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    *service.AuthService
	SessionManager *service.SessionManager
	InterviewRepo  repository.InterviewRepo
	CheckpointRepo repository.CheckpointRepo
	WSHub          *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	sessionHandler := handler.NewSessionHandler(c.SessionManager)
	reviewHandler := handler.NewReviewHandler(c.InterviewRepo, c.CheckpointRepo)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// Applicant session routes
	v1.HandleFunc("/sessions", sessionHandler.Start).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{sessionId}/events", sessionHandler.Event).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{sessionId}/complete", sessionHandler.Complete).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{sessionId}/status", sessionHandler.Status).Methods("GET", "OPTIONS")
	v1.HandleFunc("/sessions/{sessionId}/coverage/refresh", sessionHandler.Refresh).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{sessionId}/resume", sessionHandler.Resume).Methods("GET", "OPTIONS")

	// WebSocket routes (reviewer route authenticates via query param)
	v1.HandleFunc("/ws/sessions/{sessionId}", wsHandler.SessionWS).Methods("GET")
	v1.HandleFunc("/ws/sessions/{sessionId}/review", wsHandler.ReviewerWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Reviewer routes (require reviewer auth)
	reviewRoutes := v1.NewRoute().Subrouter()
	reviewRoutes.Use(authMW.RequireReviewer)

	reviewRoutes.HandleFunc("/interviews", reviewHandler.List).Methods("GET", "OPTIONS")
	reviewRoutes.HandleFunc("/interviews/{sessionId}", reviewHandler.Get).Methods("GET", "OPTIONS")
	reviewRoutes.HandleFunc("/interviews/{sessionId}/checkpoints", reviewHandler.Checkpoints).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
