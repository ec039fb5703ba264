package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chat-core/internal/auth"
	"chat-core/internal/bus"
	"chat-core/internal/config"
	"chat-core/internal/database"
	"chat-core/internal/handlers"
	"chat-core/internal/models"
	"chat-core/internal/pipeline"
	"chat-core/internal/presence"
	"chat-core/internal/registry"
	"chat-core/internal/services"
	"chat-core/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresDB(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize presence store
	tracker, err := presence.NewRedisTracker(cfg.Redis.Addr, cfg.Chat.PresenceTimeout)
	if err != nil {
		logger.Fatal("Failed to connect to Redis: %v", err)
	}
	defer tracker.Close()

	// Initialize distribution bus
	distBus, err := bus.ConnectNATS(cfg.Bus.URL, cfg.Bus.SubjectPrefix)
	if err != nil {
		logger.Fatal("Failed to connect to NATS: %v", err)
	}
	defer distBus.Close()

	// Initialize services
	authService := auth.NewService(db, cfg)
	roomService := services.NewRoomService(db)

	// Real-time core: registry holds this instance's live subscriptions,
	// the pipeline feeds the bus, and the bus subscription is the single
	// source of room broadcasts (including our own publishes).
	reg := registry.New()
	pipe := pipeline.New(db, distBus, cfg.Chat.MaxMessageLength)

	err = distBus.Subscribe(func(env models.Envelope) {
		data, err := models.EncodeEnvelope(env)
		if err != nil {
			logger.Error("Failed to re-encode bus envelope: %v", err)
			return
		}
		reg.BroadcastLocal(env.Room(), data)
	})
	if err != nil {
		logger.Fatal("Failed to subscribe to bus: %v", err)
	}

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(authService)
	roomHandlers := handlers.NewRoomHandlers(roomService, authService, cfg.Chat.HistoryLimit)
	presenceHandlers := handlers.NewPresenceHandlers(tracker, authService)
	wsHandlers := handlers.NewWebSocketHandlers(authService, reg, pipe, tracker, db, cfg.Chat.SendBufferSize)

	// Setup routes
	mux := http.NewServeMux()
	setupRoutes(mux, authHandlers, roomHandlers, presenceHandlers, wsHandlers)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(authService.Middleware(mux)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	logger.Info("Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)
	printAPIEndpoints()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error: %v", err)
	}
}

func setupRoutes(
	mux *http.ServeMux,
	authHandlers *handlers.AuthHandlers,
	roomHandlers *handlers.RoomHandlers,
	presenceHandlers *handlers.PresenceHandlers,
	wsHandlers *handlers.WebSocketHandlers,
) {
	// Auth routes
	mux.HandleFunc("/login", authHandlers.Login)
	mux.HandleFunc("/register", authHandlers.Register)

	// Room routes
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rooms" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		switch r.Method {
		case http.MethodGet:
			roomHandlers.ListRooms(w, r)
		case http.MethodPost:
			roomHandlers.CreateRoom(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Room sub-routes
	mux.HandleFunc("/rooms/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		if len(parts) < 3 || parts[2] == "" {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}

		// /rooms/{id}/invite
		if len(parts) == 4 && parts[3] == "invite" && r.Method == http.MethodPost {
			roomHandlers.InviteUser(w, r)
			return
		}

		// /rooms/{id}/members
		if len(parts) == 4 && parts[3] == "members" && r.Method == http.MethodGet {
			roomHandlers.GetRoomMembers(w, r)
			return
		}

		// /rooms/{id}/messages
		if len(parts) == 4 && parts[3] == "messages" && r.Method == http.MethodGet {
			roomHandlers.GetRoomMessages(w, r)
			return
		}

		// /rooms/{id}/leave
		if len(parts) == 4 && parts[3] == "leave" && r.Method == http.MethodDelete {
			roomHandlers.LeaveRoom(w, r)
			return
		}

		// /rooms/{id} DELETE
		if len(parts) == 3 && r.Method == http.MethodDelete {
			roomHandlers.DeleteRoom(w, r)
			return
		}

		http.Error(w, "endpoint not found", http.StatusNotFound)
	})

	// Message status route: /messages/{id}/status
	mux.HandleFunc("/messages/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		roomHandlers.UpdateMessageStatus(w, r)
	})

	// Presence routes
	mux.HandleFunc("/presence", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		presenceHandlers.ListOnline(w, r)
	})
	mux.HandleFunc("/presence/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		presenceHandlers.Heartbeat(w, r)
	})
	mux.HandleFunc("/presence/offline", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		presenceHandlers.SetOffline(w, r)
	})

	// WebSocket route
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func printAPIEndpoints() {
	logger.Info("API endpoints:")
	logger.Info("   POST /login")
	logger.Info("   POST /register")
	logger.Info("   GET  /rooms")
	logger.Info("   POST /rooms")
	logger.Info("   GET  /rooms/{id}/members")
	logger.Info("   GET  /rooms/{id}/messages")
	logger.Info("   POST /rooms/{id}/invite")
	logger.Info("   DELETE /rooms/{id}/leave")
	logger.Info("   DELETE /rooms/{id}")
	logger.Info("   GET  /presence")
	logger.Info("   POST /presence/heartbeat")
	logger.Info("   POST /presence/offline")
	logger.Info("   PUT  /messages/{id}/status")
}
