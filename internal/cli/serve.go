package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/stagesync/internal/config"
	"github.com/roach88/stagesync/internal/httpapi"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	ConfigPath string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sync API over HTTP",
		Long: `Start the HTTP service exposing batch sync, single-record sync, and
status lookup. Store paths and the listen address come from the config file
(overridable via STAGESYNC_* environment variables).

Example:
  stagesync serve --config ./stagesync.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to config file (required)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	handles, cleanup, err := openEngine(&StoreOptions{
		LogDB:        cfg.Stores.Log,
		StagingDB:    cfg.Stores.Staging,
		ProductionDB: cfg.Stores.Production,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	mux := http.NewServeMux()
	httpapi.NewServer(handles.syncer).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Server.Listen)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return WrapExitError(ExitFailure, "shutdown error", err)
		}
	}
	return nil
}
