package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dtnitsch/quote-origin/internal/common"
	"github.com/dtnitsch/quote-origin/internal/config"
	"github.com/dtnitsch/quote-origin/pkg/host"
	"github.com/dtnitsch/quote-origin/pkg/session"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// ServeAction runs the engine behind an HTTP listener until interrupted.
func ServeAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	cfg, err := config.FromCLI(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), 2)
	}
	detector, err := session.NewDetectorFromConfig(cfg, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), 2)
	}
	f, err := common.NewFetcher(c, logger)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	database, err := common.OpenHistory(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	opts := host.Options{
		Detector:    detector,
		Coordinator: common.NewCoordinator(cfg, database, logger),
		Fetcher:     f,
		Logger:      logger,
	}
	if database != nil {
		defer database.Close()
		opts.Sessions = database
		logger.Info("Recording history", "db", database.Path())
	}
	engine := host.NewEngine(opts)
	server := NewServer(engine, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(server.CloseStreams)

	g, ctx := errgroup.WithContext(c.Context)
	g.Go(func() error {
		return engine.Run(ctx)
	})
	g.Go(func() error {
		logger.Info("Listening", "addr", cfg.ListenAddr, "backend", cfg.BackendURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}
