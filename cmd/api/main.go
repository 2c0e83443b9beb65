package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/capturedeck/capturedeck/internal/account"
	"github.com/capturedeck/capturedeck/internal/adminauth"
	"github.com/capturedeck/capturedeck/internal/api"
	"github.com/capturedeck/capturedeck/internal/audit"
	"github.com/capturedeck/capturedeck/internal/capture"
	"github.com/capturedeck/capturedeck/internal/config"
	"github.com/capturedeck/capturedeck/internal/database"
	"github.com/capturedeck/capturedeck/internal/invitation"
	"github.com/capturedeck/capturedeck/internal/org"
	"github.com/capturedeck/capturedeck/internal/passkey"
	"github.com/capturedeck/capturedeck/internal/queue"
	"github.com/capturedeck/capturedeck/internal/session"
	"github.com/capturedeck/capturedeck/internal/signing"
	"github.com/capturedeck/capturedeck/internal/task"
	"github.com/capturedeck/capturedeck/internal/token"
	"github.com/capturedeck/capturedeck/pkg/clock"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, rate limiting and queue degraded", "error", err)
	}
	defer rdb.Close()

	signer, err := signing.NewSigner(cfg.Auth.SessionSecret)
	if err != nil {
		slog.Error("invalid session secret", "error", err)
		os.Exit(1)
	}

	clk := clock.New()

	orgStore := org.NewPostgresStore(db)
	orgs := org.NewService(orgStore, clk)
	tokens := token.NewService(token.NewPostgresStore(db), token.NewBcryptHasher(), clk, cfg.Auth.TokenLimit)
	sessions := session.NewService(session.NewPostgresStore(db), orgStore, clk, cfg.Auth.SessionTTL, cfg.Auth.RefreshThreshold)
	invitations := invitation.NewService(invitation.NewPostgresStore(db), clk)
	accounts := account.NewService(db, clk)
	admin := adminauth.NewService(cfg.Admin.Password, signer, clk, cfg.Admin.TTL)
	audits := audit.NewService(db)
	captures := capture.NewService(db, clk)
	tasks := task.NewService(db, clk)

	passkeys, err := passkey.NewService(passkey.Config{
		RPID:         cfg.Passkey.RPID,
		RPName:       cfg.Passkey.RPName,
		RPOrigins:    cfg.Passkey.RPOrigins,
		ChallengeTTL: cfg.Passkey.ChallengeTTL,
	}, passkey.NewPostgresStore(db), signer, clk)
	if err != nil {
		slog.Error("failed to configure passkeys", "error", err)
		os.Exit(1)
	}

	queueClient := queue.NewClient(cfg.Redis)
	defer queueClient.Close()

	router := api.NewRouter(api.Deps{
		Config:      cfg,
		DB:          db,
		Redis:       rdb,
		Accounts:    accounts,
		Tokens:      tokens,
		Sessions:    sessions,
		Passkeys:    passkeys,
		Orgs:        orgs,
		Invitations: invitations,
		Admin:       admin,
		Captures:    captures,
		Tasks:       tasks,
		Audits:      audits,
		Queue:       queueClient,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
