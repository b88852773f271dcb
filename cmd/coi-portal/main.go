package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coiportal/internal/api"
	"coiportal/internal/auth"
	"coiportal/internal/config"
	"coiportal/internal/db"
	"coiportal/internal/jobs"
	"coiportal/internal/metrics"
	"coiportal/internal/pubsub"
	"coiportal/internal/schema"
	"coiportal/internal/service"
	"coiportal/internal/storage"
	"coiportal/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "migrate", "migrate-status":
		if err := runMigrations(cmd, cfg.DatabaseURL); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		os.Exit(0)
	case "serve":
	default:
		log.Fatalf("Unknown command: %s (use 'serve', 'migrate' or 'migrate-status')", cmd)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.Development() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	dbPool, err := db.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Pub/sub bus
	bus := pubsub.New(rdb, logger)

	// Background jobs
	jobServer, jobClient := jobs.NewJobServer(cfg.RedisAddr, dbPool.Queries, bus, logger)
	go func() {
		if err := jobServer.Start(); err != nil {
			logger.Fatal("Job server failed", zap.Error(err))
		}
	}()
	defer jobServer.Stop()

	// WebSocket hub
	hub := ws.NewHub(logger)
	go hub.Run()
	bus.SetWSHub(hub)

	// Submission archive
	local, err := storage.NewLocalStorage(cfg.ArchiveDir)
	if err != nil {
		logger.Fatal("Failed to open archive", zap.String("dir", cfg.ArchiveDir), zap.Error(err))
	}

	// Services
	schemaComp := schema.NewCompilerWithCache(cfg.SchemaCacheMax)
	declSvc := service.NewDeclarationService(dbPool.Queries, schemaComp, logger)
	answerSvc := service.NewAnswerService(dbPool.Queries, dbPool.Queries, schemaComp, bus, logger)
	answerSvc.SetJobClient(service.NewAsynqJobClient(jobClient))
	answerSvc.SetArchive(storage.NewSubmissionArchive(local))
	answerSvc.SetReminderDelay(cfg.ReminderDelay)

	hub.SetCommandHandler(ws.NewCommandHandler(answerSvc, logger))

	if cfg.Development() {
		logger.Warn("Development mode: X-User-ID/X-Role headers are trusted")
	}

	// HTTP router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Timeout middleware - skip for WebSocket upgrades
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, req)
				return
			}
			middleware.Timeout(60 * time.Second)(next).ServeHTTP(w, req)
		})
	})

	r.Mount("/v1", api.Routes(api.Dependencies{
		Declarations: declSvc,
		Answers:      answerSvc,
		Auth:         auth.NewJWTConfig(cfg.JWTSecret, cfg.Development()),
		Hub:          hub,
		Log:          logger,
	}))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	logger.Info("Starting server", zap.String("addr", cfg.Addr), zap.String("env", cfg.Env))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
