// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pixelbranch/image-edit-platform/internal/blob"
	"github.com/pixelbranch/image-edit-platform/internal/config"
	"github.com/pixelbranch/image-edit-platform/internal/events"
	"github.com/pixelbranch/image-edit-platform/internal/handler"
	"github.com/pixelbranch/image-edit-platform/internal/history"
	"github.com/pixelbranch/image-edit-platform/internal/image"
	"github.com/pixelbranch/image-edit-platform/internal/middleware"
	"github.com/pixelbranch/image-edit-platform/internal/secrets"
	"github.com/pixelbranch/image-edit-platform/internal/service"
	"github.com/pixelbranch/image-edit-platform/internal/store"
	"github.com/pixelbranch/image-edit-platform/pkg/logger"
	"github.com/pixelbranch/image-edit-platform/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "image-edit-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the database
	db, err := store.Open(store.Config{Path: cfg.DatabasePath})
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		os.Exit(1)
	}
	st := store.New(db)

	// Connect to NATS
	natsClient, err := blob.Connect(ctx, blob.ConnConfig{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsClient.Close()

	// Object store for image bytes
	blobs, err := blob.NewStore(ctx, natsClient)
	if err != nil {
		log.Error("failed to create object store", zap.Error(err))
		os.Exit(1)
	}
	signer := blob.NewSigner(cfg.UploadURLSecret, cfg.PublicBaseURL, cfg.UploadURLTTL)

	// Event broker for chat change notifications
	broker := events.NewBroker(natsClient.JetStream(), log)
	if err := broker.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure event stream", zap.Error(err))
		os.Exit(1)
	}

	// Envelope encryption for stored provider keys
	var box *secrets.Box
	if cfg.EncryptionSecret != "" {
		box, err = secrets.NewBox(cfg.EncryptionSecret)
		if err != nil {
			log.Error("failed to initialize secrets box", zap.Error(err))
			os.Exit(1)
		}
	} else {
		log.Warn("ENCRYPTION_SECRET not set, per-user API key storage disabled")
	}

	// Default image client
	var imageClient image.Client
	switch image.Provider(cfg.ImageProvider) {
	case image.ProviderOpenAI:
		imageClient, err = image.NewOpenAIClient(cfg.OpenAIAPIKey, blobs)
	default:
		imageClient, err = image.NewGeminiClient(ctx, cfg.GeminiAPIKey, blobs)
	}
	if err != nil {
		log.Error("failed to create image client", zap.Error(err))
		os.Exit(1)
	}

	// Initialize services
	engine := history.New(st, log)
	userSvc := service.NewUserService(st, box, log)
	clients := service.NewImageClients(imageClient, userSvc, blobs, log)
	chatSvc := service.NewChatService(engine, st, broker, signer, log)
	editSvc := service.NewEditService(engine, clients, blobs, broker, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsClient, db)
	chatHandler := handler.NewChatHandler(chatSvc, editSvc, log)
	editHandler := handler.NewEditHandler(editSvc, log)
	uploadHandler := handler.NewUploadHandler(blobs, signer, log)
	eventsHandler := handler.NewEventsHandler(broker, chatSvc, log)
	userHandler := handler.NewUserHandler(userSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Signed binary endpoints (authorization is the URL signature)
	r.Put("/uploads/{id}", uploadHandler.Upload)
	r.Get("/images/{id}", uploadHandler.Serve)

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/uploads", uploadHandler.CreateUploadURL)
		r.Put("/users/me/api-key", userHandler.StoreAPIKey)

		r.Route("/chats", func(r chi.Router) {
			r.Post("/from-upload", chatHandler.CreateFromUpload)
			r.Post("/from-generation", chatHandler.CreateFromGeneration)
			r.Get("/", chatHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", chatHandler.Get)
				r.Put("/title", chatHandler.UpdateTitle)
				r.Post("/navigate", chatHandler.Navigate)

				r.Post("/edits", editHandler.Add)
				r.Post("/fork", editHandler.Fork)

				r.Get("/events", eventsHandler.Poll)
			})
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
