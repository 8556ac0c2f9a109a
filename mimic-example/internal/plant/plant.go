// Package plant simulates a small cooling loop for the mimic example: a tank
// filled at a constant rate, a pump draining it through a heat exchanger, and
// a trip when the exchanger overheats.
//
// The plant publishes its state as telemetry batches keyed by the parameter
// ids bound in plant.svg, and provides HTTP handlers to inspect it and to
// operate the pump.
package plant

import (
	"context"
	_ "embed"
	"encoding/json"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/chosenoffset/mimic/pkg/mimic"
	"github.com/chosenoffset/mimic/pkg/mimic/telemetry"
)

// Drawing is the mimic for this plant.
//
//go:embed plant.svg
var Drawing []byte

// Parameter ids bound in Drawing.
const (
	TankLevel   = "plant.t1.level"
	PumpRunning = "plant.p1.running"
	PumpAlarm   = "plant.p1.alarm"
	Flow        = "plant.flow"
	ExchTemp    = "plant.hx.temp"
)

const (
	fillRate    = 3.0  // tank % per second
	drainFactor = 0.1  // tank % per second per l/s of flow
	nominalFlow = 40.0 // l/s
	ambient     = 20.0 // °C
	warnTemp    = 70.0
	tripTemp    = 90.0
)

// State is a snapshot of the plant.
type State struct {
	Level   float64 `json:"level"`
	Running bool    `json:"running"`
	Flow    float64 `json:"flow"`
	Temp    float64 `json:"temp"`
	Tripped bool    `json:"tripped"`
	Manual  bool    `json:"manual"`
}

// Plant is safe for concurrent use.
type Plant struct {
	mu    sync.RWMutex
	state State
	rng   *rand.Rand
	now   func() time.Time
}

func New(seed int64) *Plant {
	return &Plant{
		state: State{Level: 50, Temp: ambient},
		rng:   rand.New(rand.NewSource(seed)),
		now:   time.Now,
	}
}

func (p *Plant) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Step advances the simulation by dt.
func (p *Plant) Step(dt time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := &p.state
	secs := dt.Seconds()

	// level control, unless an operator has taken over
	if !s.Manual && !s.Tripped {
		switch {
		case s.Level >= 80:
			s.Running = true
		case s.Level <= 20:
			s.Running = false
		}
	}

	s.Flow = 0
	if s.Running {
		s.Flow = math.Round((nominalFlow+p.rng.NormFloat64()*2)*10) / 10
	}

	s.Level = clamp(s.Level+(fillRate-s.Flow*drainFactor)*secs, 0, 100)

	// the exchanger heats up while flow is low
	if s.Flow < nominalFlow/2 {
		s.Temp += 2.5 * secs
	} else {
		s.Temp -= 1.5 * secs
	}
	s.Temp = clamp(s.Temp, ambient, 100)

	if s.Temp >= tripTemp {
		s.Tripped = true
		s.Running = false
	}
}

// Batch returns the current state as telemetry.
func (p *Plant) Batch() mimic.Batch {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := p.state
	gentime := p.now().UTC()
	param := func(id string, value any, alarm string) mimic.Values {
		return mimic.Values{
			"externalId": id,
			"path":       id,
			"gentime":    gentime,
			"validity":   "VALID",
			"alarm":      alarm,
			"value":      value,
		}
	}

	return mimic.Batch{
		TankLevel:   param(TankLevel, round1(s.Level), levelAlarm(s.Level)),
		PumpRunning: param(PumpRunning, s.Running, "NORMAL"),
		PumpAlarm:   param(PumpAlarm, pumpAlarm(s), pumpAlarm(s)),
		Flow:        param(Flow, s.Flow, "NORMAL"),
		ExchTemp:    param(ExchTemp, round1(s.Temp), tempAlarm(s.Temp)),
	}
}

// Run steps the plant every interval and sends its telemetry to sink until
// ctx is done. Update errors are rule failures in the drawing and are left to
// the sink to report.
func (p *Plant) Run(ctx context.Context, sink telemetry.Sink, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_ = sink.Update(p.Batch())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Step(interval)
		}
	}
}

// Feed adapts the plant to telemetry.Feed at a fixed interval.
func (p *Plant) Feed(interval time.Duration) telemetry.Feed {
	return feed{plant: p, interval: interval}
}

type feed struct {
	plant    *Plant
	interval time.Duration
}

func (f feed) Run(ctx context.Context, sink telemetry.Sink) error {
	return f.plant.Run(ctx, sink, f.interval)
}

func (p *Plant) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(p.State())
}

// PumpRequest is the input for the pump handler. A nil Running hands control
// back to the level controller.
type PumpRequest struct {
	Running *bool `json:"running"`
}

func (p *Plant) HandlePump(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if req.Running == nil {
		p.state.Manual = false
		w.WriteHeader(http.StatusOK)
		return
	}
	if *req.Running && p.state.Tripped {
		http.Error(w, "pump is tripped", http.StatusConflict)
		return
	}
	p.state.Manual = true
	p.state.Running = *req.Running
	w.WriteHeader(http.StatusOK)
}

// HandleReset clears a trip once the exchanger has cooled below the warning
// temperature.
func (p *Plant) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Temp >= warnTemp {
		http.Error(w, "exchanger still hot", http.StatusConflict)
		return
	}
	p.state.Tripped = false
	w.WriteHeader(http.StatusOK)
}

func pumpAlarm(s State) string {
	switch {
	case s.Tripped:
		return "TRIP"
	case s.Temp >= warnTemp:
		return "WARN"
	default:
		return "NORMAL"
	}
}

func levelAlarm(level float64) string {
	if level >= 90 || level <= 10 {
		return "WARN"
	}
	return "NORMAL"
}

func tempAlarm(t float64) string {
	switch {
	case t >= tripTemp:
		return "ALARM"
	case t >= warnTemp:
		return "WARN"
	default:
		return "NORMAL"
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
