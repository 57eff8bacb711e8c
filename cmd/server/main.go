package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quietude83/quietude/internal/api"
	"github.com/quietude83/quietude/internal/auth"
	"github.com/quietude83/quietude/internal/config"
	"github.com/quietude83/quietude/internal/db"
	"github.com/quietude83/quietude/internal/observ"
	"github.com/quietude83/quietude/internal/repository"
	"github.com/quietude83/quietude/internal/repository/postgres"
	"github.com/quietude83/quietude/internal/ws"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup has no deadline of its own; requests get theirs from
	// the HTTP server once it is up.
	ctx := context.Background()

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	pool := database.Pool()
	userRepo := postgres.NewUserStore(pool)
	availabilityRepo := postgres.NewAvailabilityStore(pool)
	rendezvousRepo := postgres.NewRendezVousStore(pool)
	messageRepo := postgres.NewMessageStore(pool)

	sessions := auth.NewSessionStore(rdb)
	hub := ws.NewHub(logger)

	if err := bootstrapAdmin(ctx, cfg, userRepo, logger); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	handlers := api.Handlers{
		Auth:         api.NewAuthHandler(userRepo, sessions, logger),
		User:         api.NewUserHandler(userRepo, sessions, logger),
		Availability: api.NewAvailabilityHandler(availabilityRepo, logger),
		RendezVous:   api.NewRendezVousHandler(rendezvousRepo, logger),
		Message:      api.NewMessageHandler(messageRepo, rendezvousRepo, hub, logger),
	}
	router := api.NewRouter(handlers, sessions, userRepo, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// bootstrapAdmin creates the configured superuser on first start, so a
// fresh deployment has a privileged account to manage slot inventory
// with. Re-running against an existing email is a no-op.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, users repository.UserRepository, logger *zap.Logger) error {
	if cfg.AdminEmail == "" {
		return nil
	}
	if cfg.AdminPassword == "" {
		return fmt.Errorf("ADMIN_EMAIL is set but ADMIN_PASSWORD is empty")
	}

	existing, err := users.GetByEmail(ctx, cfg.AdminEmail)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	admin, err := users.CreateSuperuser(ctx, cfg.AdminEmail, cfg.AdminFirstName, cfg.AdminLastName, hash)
	if err != nil {
		return err
	}
	logger.Info("bootstrap superuser created", zap.String("email", admin.Email))
	return nil
}
