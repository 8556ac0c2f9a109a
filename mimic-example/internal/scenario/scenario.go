// Package scenario drives a running mimic dashboard over HTTP with scripted
// telemetry, for demos and load testing.
package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/chosenoffset/mimic/mimic-example/internal/plant"
	"github.com/chosenoffset/mimic/pkg/mimic"
)

type Scenario interface {
	Name() string
	Run(ctx context.Context, client *http.Client, baseURL string) error
}

// All returns the built-in scenarios.
func All(rng *rand.Rand) []Scenario {
	return []Scenario{
		&Ramp{Steps: 20},
		&AlarmFlood{Count: 50},
		&Garbage{rng: rng},
	}
}

// Post sends one batch to the dashboard update endpoint.
func Post(ctx context.Context, client *http.Client, baseURL string, batch mimic.Batch) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/update", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("update rejected: %s", resp.Status)
	}
	return nil
}

// Ramp fills the tank from empty to full.
type Ramp struct {
	Steps int
}

func (r *Ramp) Name() string { return "ramp" }

func (r *Ramp) Run(ctx context.Context, client *http.Client, baseURL string) error {
	for i := 0; i <= r.Steps; i++ {
		level := float64(i) * 100 / float64(r.Steps)
		batch := mimic.Batch{plant.TankLevel: {"value": level}}
		if err := Post(ctx, client, baseURL, batch); err != nil {
			return err
		}
	}
	return nil
}

// AlarmFlood toggles the pump alarm as fast as the dashboard accepts it.
type AlarmFlood struct {
	Count int
}

func (a *AlarmFlood) Name() string { return "alarm-flood" }

func (a *AlarmFlood) Run(ctx context.Context, client *http.Client, baseURL string) error {
	states := []string{"NORMAL", "WARN", "TRIP"}
	for i := 0; i < a.Count; i++ {
		batch := mimic.Batch{
			plant.PumpAlarm:   {"value": states[i%len(states)]},
			plant.PumpRunning: {"value": i%2 == 0},
		}
		if err := Post(ctx, client, baseURL, batch); err != nil {
			return err
		}
	}
	return nil
}

// Garbage sends values the drawing's rules cannot use, such as unknown
// colours, absent members and unbound parameters. The dashboard must keep
// serving through it.
type Garbage struct {
	rng *rand.Rand
}

func (g *Garbage) Name() string { return "garbage" }

func (g *Garbage) Run(ctx context.Context, client *http.Client, baseURL string) error {
	values := []any{nil, "", "##NULL##", "not-a-number", -1e308, "<b>bold</b>", time.Time{}}
	for i := 0; i < 10; i++ {
		v := values[g.rng.Intn(len(values))]
		batch := mimic.Batch{
			plant.ExchTemp:  {"value": v, "validity": v},
			plant.PumpAlarm: {"value": v},
			"unbound":       {"value": v},
		}
		if err := Post(ctx, client, baseURL, batch); err != nil {
			return err
		}
	}
	return nil
}
