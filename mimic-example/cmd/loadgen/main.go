// Command loadgen posts telemetry to a running mimic dashboard: mostly random
// values for the plant parameters, with the occasional scripted scenario.
package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chosenoffset/mimic/mimic-example/internal/plant"
	"github.com/chosenoffset/mimic/mimic-example/internal/scenario"
	"github.com/chosenoffset/mimic/pkg/mimic"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "dashboard base URL")
	pause := flag.Duration("pause", 100*time.Millisecond, "pause between requests")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client := &http.Client{Timeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	scenarios := scenario.All(rng)

	for ctx.Err() == nil {
		if rng.Intn(10) < 8 {
			if err := scenario.Post(ctx, client, *baseURL, randomBatch(rng)); err != nil {
				logger.Warn("Random update failed", "error", err)
			}
		} else {
			sc := scenarios[rng.Intn(len(scenarios))]
			logger.Info("Running scenario", "scenario", sc.Name())
			if err := sc.Run(ctx, client, *baseURL); err != nil {
				logger.Warn("Scenario failed", "scenario", sc.Name(), "error", err)
			}
		}

		select {
		case <-ctx.Done():
		case <-time.After(*pause):
		}
	}
}

func randomBatch(rng *rand.Rand) mimic.Batch {
	return mimic.Batch{
		plant.TankLevel: {"value": rng.Float64() * 100},
		plant.Flow:      {"value": rng.Float64() * 60},
		plant.ExchTemp:  {"value": 20 + rng.Float64()*80},
	}
}
