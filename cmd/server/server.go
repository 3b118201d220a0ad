package server

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/app"
	"github.com/dxlander/dxlander/cmd/utils"
	"github.com/dxlander/dxlander/web"
)

const shutdownTimeout = 30 * time.Second

func NewCmdServer() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the DXLander HTTP server",
		Long: `Start the HTTP API server together with the deployment status watcher.
The server runs until interrupted and then shuts down gracefully.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runServer(); err != nil {
				utils.HandleCommandError("running server", err)
			}
		},
	}
}

func runServer() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := web.NewServer(
		app.GetConfig(),
		app.GetImporter(),
		app.GetOrchestrator(),
		app.GetConfigSetRepository(),
		app.GetIntegrationRepository(),
	)

	go func() {
		if err := app.GetWatcher().Start(ctx); err != nil {
			slog.Error("Watcher service stopped", "error", err)
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		slog.Info("Shutting down", "signal", sig.String())
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errChan
}
