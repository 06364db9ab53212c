package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adv4nt4ge/grocery-scraper/internal/api"
)

// newServeCmd creates the 'serve' subcommand: the read-only HTTP surface
// over runs, stores, and health.
func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Starts the HTTP server exposing health probes, Prometheus metrics,
scrape-run audit records, and the registered store templates.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :<server.port> from config)")
	return cmd
}

func runServe(cmd *cobra.Command, addr string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	log := appInstance.Logger()
	cfg := appInstance.Config()

	apiCfg := api.Config{RequestTimeout: cfg.Server.RequestTimeout}
	if cfg.Auth.Enabled {
		apiCfg.APIKey = cfg.Auth.APIKey
	}
	// A nil *postgres.Pool must stay a nil interface, or readyz would ping it.
	var pinger api.Pinger
	if pool := appInstance.Pinger(); pool != nil {
		pinger = pool
	}
	server := api.NewServer(appInstance.Runs(), appInstance.Registry(), pinger, log, apiCfg)

	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Server.Port)
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
