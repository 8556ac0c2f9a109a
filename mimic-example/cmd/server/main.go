// Package main runs the mimic example: a simulated cooling loop driving the
// plant drawing on a live dashboard.
//
// The server listens on :8080 with:
//   - GET /: the live mimic page
//   - GET /mimic.svg, /api/bindings, /api/status, /metrics
//   - POST /api/update: extra telemetry batches (see cmd/loadgen)
//   - GET /plant/state: simulator state
//   - POST /plant/pump: {"running": true|false}, or {} for automatic control
//   - POST /plant/reset: clear a pump trip
//
// Usage:
//
//	go run ./mimic-example/cmd/server
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/chosenoffset/mimic/mimic-example/internal/plant"
	"github.com/chosenoffset/mimic/pkg/mimic"
	"github.com/chosenoffset/mimic/pkg/mimic/dashboard"
	"github.com/chosenoffset/mimic/pkg/mimic/metrics"
	"github.com/chosenoffset/mimic/pkg/mimic/telemetry"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	interval := flag.Duration("interval", 500*time.Millisecond, "simulation step")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := run(*addr, *interval, logger); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(addr string, interval time.Duration, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector()
	controller := mimic.NewController(
		&mimic.BytesSource{Name: "plant.svg", Data: plant.Drawing},
		mimic.WithRecorder(collector),
		mimic.WithLogger(logger.With("component", "mimic")),
	)
	if err := controller.Initialise(ctx); err != nil {
		return err
	}
	defer controller.Dispose()

	dash := dashboard.NewServer(addr, controller,
		dashboard.WithCollector(collector),
		dashboard.WithLogger(logger.With("component", "dashboard")),
		dashboard.WithTitle("Cooling loop"),
	)
	go dash.Run()
	defer dash.Stop()

	p := plant.New(time.Now().UnixNano())
	go func() {
		err := p.Feed(interval).Run(ctx, &telemetry.Filter{Binder: controller, Next: dash})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Plant feed stopped", "error", err)
		}
	}()

	r := mux.NewRouter()
	r.HandleFunc("/plant/state", p.HandleState)
	r.HandleFunc("/plant/pump", p.HandlePump)
	r.HandleFunc("/plant/reset", p.HandleReset)
	r.PathPrefix("/").Handler(dash.Handler())

	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr, "bindings", len(controller.Bindings()))
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdown)
	}
}
