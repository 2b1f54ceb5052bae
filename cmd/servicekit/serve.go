package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deppfellow/servicekit/internal/database"
	"github.com/deppfellow/servicekit/internal/handler"
	"github.com/deppfellow/servicekit/internal/repository"
	"github.com/deppfellow/servicekit/internal/router"
	"github.com/deppfellow/servicekit/internal/server"
	"github.com/deppfellow/servicekit/internal/service"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds the drain of in-flight requests.
const shutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Connects to Postgres (and Redis when configured), registers every
route and listens until SIGINT or SIGTERM. Failing to reach the database or
to bind the port exits non-zero.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if migrate {
				if err := database.Migrate(ctx, a.log, a.cfg, -1); err != nil {
					a.log.Error().Err(err).Msg("failed to migrate database")
					return err
				}
			}

			return runServer(ctx, a)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServer(ctx context.Context, a *app) error {
	srv, err := server.New(ctx, a.cfg, a.log)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to initialize server")
		return err
	}

	repos := repository.NewRepositories(srv.DB.Pool)
	services := service.NewServices(repos, srv.Cache)
	handlers := handler.NewHandlers(srv.Extensions(), services)

	if err := router.Setup(srv, handlers); err != nil {
		a.log.Error().Err(err).Msg("failed to register routes")
		_ = srv.Shutdown(context.Background())
		return err
	}

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- srv.Listen()
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			a.log.Error().Err(err).Msg("server failed to listen")
			_ = srv.Shutdown(context.Background())
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("server forced to shutdown")
		return err
	}
	return listenResult(<-listenErr, srv.State())
}

// listenResult treats a Serve that lost the race against Shutdown as a
// clean exit: the server never started and is already closed.
func listenResult(err error, state server.State) error {
	if errors.Is(err, server.ErrInvalidState) && state == server.StateClosed {
		return nil
	}
	return err
}
