package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"libhub/database"
	"libhub/internal/config"
	"libhub/internal/http-api/handler"
	"libhub/internal/http-api/middleware"
	"libhub/internal/http-api/repository"
	"libhub/internal/http-api/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	db, err := database.ConnectDB(cfg, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	mirror, err := repository.NewRedisMirror(cfg.RedisURL)
	if err != nil {
		// The mirror is a cache, not the source of truth. Run without it.
		log.Warn("redis unavailable, running without mirror", "error", err)
		mirror = nil
	} else {
		defer mirror.Close()
	}

	store := repository.NewEntityStore(mirror, repository.NewCollectionRepository(db), log)

	loadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store.Load(loadCtx)
	cancel()

	backupRepo := repository.NewBackupRepository(db)

	authSvc := service.NewAuthService(cfg)
	bookSvc := service.NewBookService(store, log)
	userSvc := service.NewUserService(store, log)
	rentalSvc := service.NewRentalService(store, cfg.PurgeRetention, log)
	backupSvc := service.NewBackupService(store, backupRepo, cfg.BackupMinInterval, log)

	// Every committed mutation schedules a rate-limited snapshot.
	store.OnChange(backupSvc.AutoBackup)

	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	go purgeLoop(purgeCtx, rentalSvc, cfg.PurgeInterval, log)

	router := newRouter(cfg, authSvc, bookSvc, userSvc, rentalSvc, backupSvc)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", srv.Addr, "env", cfg.GoEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	stopPurge()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}

	// Let in-flight persistence writes finish before closing connections.
	store.Wait()
	log.Info("shutdown complete")
	return nil
}

func newRouter(
	cfg *config.Config,
	authSvc service.AuthService,
	bookSvc service.BookService,
	userSvc service.UserService,
	rentalSvc service.RentalService,
	backupSvc service.BackupService,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	admin := middleware.AdminRequired(authSvc)

	api := router.Group("/api")
	handler.NewAuthHandler(authSvc).RegisterRoutes(api)
	handler.NewBookHandler(bookSvc, backupSvc).RegisterRoutes(api.Group("/books"), admin)
	handler.NewUserHandler(userSvc, backupSvc).RegisterRoutes(api.Group("/users"), admin)
	handler.NewRentalHandler(rentalSvc, backupSvc).RegisterRoutes(api.Group("/rentals"), admin)
	handler.NewBackupHandler(backupSvc).RegisterRoutes(api, admin)

	return router
}

// purgeLoop drops long-returned rentals on a fixed interval, mirroring the
// daily cleanup a librarian would otherwise run by hand.
func purgeLoop(ctx context.Context, rentals service.RentalService, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := rentals.PurgeExpiredReturns(ctx)
			if err != nil {
				log.Warn("rental purge failed", "error", err)
				continue
			}
			if purged > 0 {
				log.Info("purged returned rentals", "count", purged)
			}
		}
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(h)
}
