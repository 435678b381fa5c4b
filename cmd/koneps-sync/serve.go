package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo"
	"github.com/spf13/cobra"

	"github.com/bidwatch/koneps-sync/internal/controller"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.pg.Close()

	e := echo.New()
	e.HideBanner = true
	controller.SetupRoutes(e, a.coordinator, a.notices, a.awards, a.configs, a.cfg.Upstream.MaxRangeDays)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", a.cfg.Server.Addr).Msg("HTTP server starting")
		if err := e.Start(a.cfg.Server.Addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		a.logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}
