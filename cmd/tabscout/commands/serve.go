package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/tabscout/internal/api"
	"github.com/bryanchriswhite/tabscout/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the TabScout server",
	Long: `Start the TabScout HTTP server with live window tracking.

The server runs a discovery pass, follows accessibility events to keep the
cache current, and exposes the windows, tabs and actions over a REST API
and a WebSocket event stream.`,
	Example: `  # Start server on default port (8089)
  tabscout serve

  # Start server on custom port
  tabscout serve --port 9090

  # Start with specific config file
  tabscout serve --config /path/to/config.yaml

  # Trace collectors and events
  tabscout serve --enable-logging`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.WithComponent("serve")
	log.Info().
		Str("path", configMgr.GetConfigPath()).
		Str("backend", cfg.Backend).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	b, err := openBackend(cfg, true)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := b.newTracker()
	if err := t.Start(ctx); err != nil {
		return fmt.Errorf("failed to start tracker: %w", err)
	}
	defer t.Stop()

	server := api.NewServer(t, configMgr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.ServerPort)
	}()

	log.Info().
		Int("port", cfg.ServerPort).
		Str("api", fmt.Sprintf("http://localhost:%d/api", cfg.ServerPort)).
		Msg("TabScout is running, press Ctrl+C to stop")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Server shutdown error")
	}
	return nil
}
