package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fileflow/internal/auth"
	"fileflow/internal/config"
	"fileflow/internal/events"
	"fileflow/internal/handler"
	"fileflow/internal/jobs"
	"fileflow/internal/middleware"
	"fileflow/internal/service/filesystem"
	"fileflow/internal/service/upload"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, logCloser, err := config.NewLogger(cfg.Environment, cfg.LogDir, cfg.LogMaxFiles)
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
		"storage_backend", cfg.StorageBackend,
		"lease_backend", cfg.LeaseBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jwtVerifier, err := newVerifier(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	repos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open repositories: %v", err)
	}
	defer repos.Close()

	blobs, err := openBlobStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open blob store: %v", err)
	}

	dispatcher := events.NewDispatcher(repos.notifications, 0, logger)
	dispatcher.Start()
	defer dispatcher.Close()

	// Services
	nodeService := filesystem.NewNodeService(repos.nodes, repos.tx, dispatcher, logger)
	treeService := filesystem.NewTreeService(repos.nodes, repos.quotas, cfg.MaxTreeDepth, logger)
	trashService := filesystem.NewTrashService(repos.nodes, blobs, repos.tx, dispatcher, logger)
	shareService := filesystem.NewShareService(repos.nodes, repos.shares, dispatcher, cfg.MaxTreeDepth, logger)
	uploadService := upload.NewService(upload.Config{
		Blobs:    blobs,
		Sessions: repos.sessions,
		Nodes:    repos.nodes,
		Access:   shareService,
		Usage:    treeService,
		Sink:     dispatcher,
		Logger:   logger,
	})

	// Background jobs
	var scheduler *jobs.Scheduler
	if cfg.JobsEnabled {
		locker, closeLocker, err := openLocker(cfg, repos)
		if err != nil {
			log.Fatalf("Failed to open lease store: %v", err)
		}
		defer closeLocker()

		specs, err := jobs.LoadSchedule()
		if err != nil {
			log.Fatalf("Failed to load job schedule: %v", err)
		}
		scheduler = jobs.NewScheduler(specs, locker, logger)
		for _, job := range []jobs.Job{
			jobs.NewTrashPurgeJob(trashService, cfg.TrashRetention, logger),
			jobs.NewShareSweepJob(shareService, logger),
			jobs.NewSessionSweepJob(repos.authSessions, logger),
			jobs.NewNotificationSweepJob(repos.notifications, logger),
		} {
			if err := scheduler.Register(job); err != nil {
				log.Fatalf("Failed to register job: %v", err)
			}
		}
		scheduler.Start(ctx)
		logger.Info("jobs scheduled", "count", len(specs))
	}

	handlers := &handler.Handlers{
		Files:   handler.NewFileHandler(nodeService, treeService, logger),
		Trash:   handler.NewTrashHandler(treeService, trashService, logger),
		Shares:  handler.NewShareHandler(shareService, logger),
		Uploads: handler.NewUploadHandler(uploadService, logger),
		Health:  handler.NewHealthHandler(repos.pinger, logger),
	}

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handlers.Register(mux)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Auth → Recovery → Routes
	// Recovery sits inside auth so panics are logged with the caller's id.
	h = middleware.Recovery(logger)(h)
	h = middleware.AuthMiddleware(jwtVerifier)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     h,
		ReadTimeout: 5 * time.Minute, // large single-shot uploads
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	if scheduler != nil {
		scheduler.Wait()
	}
}

func newVerifier(cfg *config.Config, logger *slog.Logger) (auth.JWTVerifier, error) {
	var (
		v   *auth.Verifier
		err error
	)
	if cfg.JWKSURL != "" {
		v, err = auth.NewJWKSVerifier(cfg.JWKSURL, logger)
	} else {
		v, err = auth.NewHMACVerifier([]byte(cfg.JWTSecret), logger)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
