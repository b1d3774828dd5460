package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gallery-backend/config"
	"gallery-backend/handlers"
	"gallery-backend/logging"
	"gallery-backend/repository"
	"gallery-backend/service"
	"gallery-backend/storage"
	"gallery-backend/validation"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file from project root (relative to cmd/server/)
	// Try current directory first, then project root
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	srv, err := newServer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	return serve(ctx, srv, ln, cfg.HTTP.ShutdownTimeout, logger)
}

// newServer wires storage, catalog, service and router into an http.Server
func newServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*http.Server, error) {
	// Initialize storage
	imageStorage, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}
	logger.Info("storage initialized", zap.String("type", cfg.Storage.Type))

	// Initialize services
	imageService := service.NewImageService(
		service.WithStorage(imageStorage),
		service.WithCatalog(repository.NewCatalogRepository()),
		service.WithValidator(validation.New(cfg.Upload.Categories, cfg.Upload.MediaTypes, cfg.Upload.SniffContent)),
		service.WithMaxUploadBytes(cfg.Upload.MaxBytes),
		service.WithLogger(logger.Named("images")),
	)

	if cfg.Catalog.Rehydrate {
		if _, err := imageService.Rehydrate(ctx); err != nil {
			return nil, err
		}
	}

	// Initialize handlers
	imageHandler := handlers.NewImageHandler(imageService, cfg.Upload.FieldName, logger)
	router := handlers.NewRouter(imageHandler, logger.Named("http"), handlers.RouterOptions{
		GinMode:        cfg.GinMode,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnablePprof:    cfg.DebugPprof,
	})
	logger.Info("routes ready", zap.Strings("categories", imageService.Categories()))

	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}, nil
}

// serve runs srv on ln until ctx is done, then shuts down within shutdownTimeout
func serve(ctx context.Context, srv *http.Server, ln net.Listener, shutdownTimeout time.Duration, logger *zap.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", ln.Addr().String()))
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("HTTP server shutdown success")
	return nil
}
