package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mployhr/recruitdash/internal/adapters/http/api"
	"github.com/mployhr/recruitdash/internal/adapters/http/live"
	"github.com/mployhr/recruitdash/internal/adapters/http/swagger"
	"github.com/mployhr/recruitdash/internal/adapters/http/view"
	service "github.com/mployhr/recruitdash/internal/app"
	"github.com/mployhr/recruitdash/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard (default)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	log := logger.Get()

	rt, err := bootstrap(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to initialise", logger.Error(err))
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := rt.close(shutdownCtx); err != nil {
			log.Error(ctx, "shutdown incomplete", logger.Error(err))
		}
	}()

	// A failed sign-in still serves the page so the banner can show it.
	if err := rt.service.Start(ctx); err != nil {
		log.Error(ctx, "dashboard service did not start", logger.Error(err))
	}

	mux, hub := newMux(ctx, rt.service, log)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error(ctx, "server stopped with error", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newMux registers every HTTP surface on one mux.
func newMux(ctx context.Context, svc *service.Service, log logger.Logger) (*http.ServeMux, *live.Hub) {
	mux := http.NewServeMux()

	// Register ReDoc under /api-docs
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	api.NewServer(svc, svc).Register(ctx, mux)

	hub := live.NewHub(svc, live.WithLogger(log.Named("live")))
	hub.Register(ctx, mux)

	view.Register(ctx, mux, view.NewHandler(svc, view.WithLogger(log.Named("view"))))
	return mux, hub
}
