// Package telemetry produces batches of telemetry objects for a mimic
// controller. Feeds are the source side; a Sink (usually *mimic.Controller)
// receives the batches.
package telemetry

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/chosenoffset/mimic/pkg/mimic"
)

// Sink receives telemetry batches.
type Sink interface {
	Update(batch mimic.Batch) error
}

// Feed delivers batches to a sink until ctx is done or the feed runs out.
type Feed interface {
	Run(ctx context.Context, sink Sink) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(mimic.Batch) error

func (f SinkFunc) Update(b mimic.Batch) error { return f(b) }

var ErrEmptyFeed = errors.New("feed contains no batches")

// ReadBatches decodes one JSON object per line, each mapping parameter ids to
// telemetry objects. Blank lines and lines starting with # are skipped.
func ReadBatches(r io.Reader) ([]mimic.Batch, error) {
	var batches []mimic.Batch
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 || text[0] == '#' {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		var batch mimic.Batch
		if err := dec.Decode(&batch); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		batches = append(batches, batch)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return batches, nil
}

// ReplayFeed plays recorded batches in order, one per interval. With Loop set
// it starts over at the end instead of returning.
type ReplayFeed struct {
	Batches  []mimic.Batch
	Interval time.Duration
	Loop     bool
	Logger   *slog.Logger
}

// NewReplayFeed loads a JSON-lines recording from path.
func NewReplayFeed(path string, interval time.Duration, loop bool) (*ReplayFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}
	defer f.Close()

	batches, err := ReadBatches(f)
	if err != nil {
		return nil, fmt.Errorf("read feed %s: %w", path, err)
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyFeed)
	}
	return &ReplayFeed{Batches: batches, Interval: interval, Loop: loop}, nil
}

// Run sends the first batch immediately. Update errors are logged and do not
// stop the feed.
func (f *ReplayFeed) Run(ctx context.Context, sink Sink) error {
	if len(f.Batches) == 0 {
		return ErrEmptyFeed
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default().With("component", "telemetry")
	}

	interval := f.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	i := 0
	for {
		if err := sink.Update(f.Batches[i]); err != nil {
			logger.Warn("Telemetry update reported errors", "batch", i, "error", err)
		}

		i++
		if i == len(f.Batches) {
			if !f.Loop {
				return nil
			}
			i = 0
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Binder reports the parameter ids a drawing is bound to.
type Binder interface {
	Bindings() []string
}

// Filter drops parameters the drawing has no binding for, and skips batches
// left empty.
type Filter struct {
	Binder Binder
	Next   Sink
}

func (f *Filter) Update(batch mimic.Batch) error {
	bound := make(map[string]struct{})
	for _, b := range f.Binder.Bindings() {
		bound[b] = struct{}{}
	}

	kept := make(mimic.Batch, len(batch))
	for id, v := range batch {
		if _, ok := bound[id]; ok {
			kept[id] = v
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return f.Next.Update(kept)
}
