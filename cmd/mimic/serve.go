package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chosenoffset/mimic/pkg/mimic"
	"github.com/chosenoffset/mimic/pkg/mimic/dashboard"
	"github.com/chosenoffset/mimic/pkg/mimic/metrics"
	"github.com/chosenoffset/mimic/pkg/mimic/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the live mimic dashboard",
	Long: `Serve loads the drawing and serves it on the dashboard address. Telemetry ` +
		`arrives through POST /api/update or, when a feed file is configured, is ` +
		`replayed from it in a loop.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Dashboard.Addr = addr
		}
		if feed, _ := cmd.Flags().GetString("feed"); feed != "" {
			cfg.Feed.Path = feed
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		collector := metrics.NewCollector()
		controller := cfg.Controller(logger, mimic.WithRecorder(collector))
		if err := controller.Initialise(ctx); err != nil {
			return err
		}
		defer controller.Dispose()

		server := dashboard.NewServer(cfg.Dashboard.Addr, controller,
			dashboard.WithCollector(collector),
			dashboard.WithLogger(logger.With("component", "dashboard")),
			dashboard.WithMaxClients(cfg.Dashboard.MaxClients),
			dashboard.WithTitle(controller.Status().Source),
		)

		if cfg.Feed.Path != "" {
			feed, err := telemetry.NewReplayFeed(cfg.Feed.Path, cfg.Feed.Interval, true)
			if err != nil {
				return err
			}
			feed.Logger = logger.With("component", "telemetry")
			go func() {
				err := feed.Run(ctx, &telemetry.Filter{Binder: controller, Next: server})
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Telemetry feed stopped", "error", err)
				}
			}()
		}

		errc := make(chan error, 1)
		go func() { errc <- server.Start() }()

		select {
		case err := <-errc:
			if err != nil {
				return fmt.Errorf("dashboard: %w", err)
			}
			return nil
		case <-ctx.Done():
			logger.Info("Shutting down")
			return server.Stop()
		}
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "dashboard listen address (overrides config)")
	serveCmd.Flags().String("feed", "", "JSON-lines telemetry file to replay")
	rootCmd.AddCommand(serveCmd)
}
