package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akinalp/atelier/database"
	"github.com/akinalp/atelier/render"
	"github.com/akinalp/atelier/ws"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log := zap.L().Named("main")

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	renderer, err := render.New()
	if err != nil {
		return err
	}

	repos := initRepositories(db.Conn)

	hub := ws.NewHub()
	svcs, err := initServices(cfg, db.Conn, repos, hub)
	if err != nil {
		return err
	}
	limiters := initRateLimiters()
	svcs.limiters = limiters
	defer svcs.Close()

	registerHubCallbacks(hub, svcs.User)
	go hub.Run()

	svcs.Store.StartSweeper(cfg.Store.SweepInterval)

	h := initHandlers(cfg, svcs, limiters, renderer, hub, repos.User)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      initRoutes(cfg, h, svcs.Auth, repos.User),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("base_url", cfg.Site.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info("shutting down")

	// Live feed clients first, so they see the close frame before the
	// listener goes away.
	hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}
