package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dstanic/civium/internal/config"
	"github.com/dstanic/civium/internal/database"
	postgresrepo "github.com/dstanic/civium/internal/repository/postgres"
	"github.com/dstanic/civium/internal/service"
	"github.com/dstanic/civium/internal/session"
	"github.com/dstanic/civium/internal/transport/http/handlers"
	"github.com/dstanic/civium/internal/transport/http/middleware"
	"github.com/dstanic/civium/internal/transport/ws"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	convRepo := postgresrepo.NewConversationRepo(pool)
	notifRepo := postgresrepo.NewNotificationRepo(pool)

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret)
	chatService := service.NewChatService(convRepo, userRepo)
	notificationService := service.NewNotificationService(notifRepo)

	// Real-time hub + notifier
	hub := ws.NewHub()
	go hub.Run()
	notifier := ws.NewHubNotifier(hub)
	chatService.SetNotifier(notifier)
	notificationService.SetNotifier(notifier)

	// Session resolver (handshake cookies and REST bearer tokens)
	resolver := session.NewResolver(cfg.JWTSecret, cfg.SessionCookie)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	conversationHandler := handlers.NewConversationHandler(chatService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	engagementHandler := handlers.NewEngagementHandler(notificationService)

	// Auth middleware
	auth := middleware.Auth(resolver)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// WebSocket (authenticates its own handshake from the Cookie header)
	mux.HandleFunc("GET /ws", ws.ServeWS(hub, resolver, chatService))

	// Protected - Conversations
	mux.Handle("POST /api/v1/conversations", auth(http.HandlerFunc(conversationHandler.GetOrCreate)))
	mux.Handle("GET /api/v1/conversations", auth(http.HandlerFunc(conversationHandler.List)))
	mux.Handle("POST /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(conversationHandler.SendMessage)))
	mux.Handle("GET /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(conversationHandler.ListMessages)))
	mux.Handle("POST /api/v1/conversations/{id}/read", auth(http.HandlerFunc(conversationHandler.MarkAllRead)))

	// Protected - Notifications
	mux.Handle("GET /api/v1/notifications", auth(http.HandlerFunc(notificationHandler.List)))
	mux.Handle("PATCH /api/v1/notifications/{id}/read", auth(http.HandlerFunc(notificationHandler.MarkRead)))

	// Protected - Domain event intake (likes, comments, collab events)
	mux.Handle("POST /api/v1/events", auth(http.HandlerFunc(engagementHandler.PublishEvent)))

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:    addr,
		Handler: middleware.CORS(mux),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}
