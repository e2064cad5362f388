package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/promptmarket/gallery/internal/handlers"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		listen  string
		autogen bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gallery HTTP API",
		Long: `Starts the gallery API on the configured listen address.

The API serves the catalog, generates images on request, drives the
background auto-generation sweep and exposes the storage recovery tools.`,
		Example: `  # Start on the configured address (default :8080)
  gallery serve

  # Start on a custom address and begin filling in missing images
  gallery serve --listen :3000 --autogen`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				c.cfg.Server.Listen = listen
			}

			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					slog.Error("Failed to close gallery", "err", err)
				}
			}()

			mux := http.NewServeMux()
			handlers.New(a).Routes(mux)

			addr := c.cfg.Server.Listen
			server := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			if autogen {
				if err := a.Autogen.Start(cmd.Context()); err != nil {
					return err
				}
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				slog.Info("Gallery API available", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				slog.Info("Shutting down server...")
				a.Autogen.Stop()
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			})

			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Address to listen on (overrides server.listen)")
	cmd.Flags().BoolVar(&autogen, "autogen", false, "Start the auto-generation sweep on startup")

	return cmd
}
