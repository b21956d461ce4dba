package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskmaster/backend/internal/config"
	"github.com/taskmaster/backend/internal/db"
	"github.com/taskmaster/backend/internal/handler"
	"github.com/taskmaster/backend/internal/service"
)

// @title taskmaster API
// @version 1.0
// @description Multi-user to-do list service with cookie session authentication.
// @BasePath /
// @securityDefinitions.apikey SessionCookie
// @in cookie
// @name session_token
func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.Load()
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.RunMigrations(ctx, cfg.Postgres); err != nil {
		return err
	}

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	store := db.NewPostgres(pool)
	defer store.Close()

	authService, err := service.NewAuthService(store, cfg.Auth, log)
	if err != nil {
		return err
	}
	todoService := service.NewTodoService(store, log)

	go authService.RunSessionSweeper(ctx, authService.SweepInterval())

	router := handler.NewRouter(handler.RouterDeps{
		Auth:           authService,
		Todos:          todoService,
		DB:             store,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Log:            log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting API server", "addr", srv.Addr, "mode", cfg.Server.GinMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
