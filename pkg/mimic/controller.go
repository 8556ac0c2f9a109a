package mimic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/chosenoffset/mimic/pkg/mimic/mutation"
	"github.com/chosenoffset/mimic/pkg/mimic/svgdom"
)

// Anchor is the host container a loaded drawing is attached to.
type Anchor interface {
	Attach(root *etree.Element) error
	Detach(root *etree.Element)
}

// Recorder receives controller events for metrics.
type Recorder interface {
	UpdateObserved(d time.Duration)
	MutationApplied(aspect string)
	EvaluationFailed(aspect string)
	RuleRejected()
	FetchFailed()
	Loaded(bindings int)
	Unloaded()
}

type nopRecorder struct{}

func (nopRecorder) UpdateObserved(time.Duration) {}
func (nopRecorder) MutationApplied(string)       {}
func (nopRecorder) EvaluationFailed(string)      {}
func (nopRecorder) RuleRejected()                {}
func (nopRecorder) FetchFailed()                 {}
func (nopRecorder) Loaded(int)                   {}
func (nopRecorder) Unloaded()                    {}

// Controller owns one mimic drawing: it loads it, indexes its bound elements
// and applies telemetry batches to it. All methods are safe for concurrent
// use; they are serialised on one mutex.
type Controller struct {
	source   Source
	anchor   Anchor
	compiler *Compiler
	limits   *Limits
	logger   *slog.Logger
	recorder Recorder
	registry *mutation.Registry

	mutex       sync.Mutex
	initialised bool
	loading     *loadCall
	generation  uint64
	doc         *svgdom.Document
	index       map[string][]*ElementProcessor
	bindings    []string
	elements    int
	updates     uint64
	lastUpdate  time.Time
	lastCycle   string
}

type Option func(*Controller)

func WithAnchor(a Anchor) Option {
	return func(c *Controller) { c.anchor = a }
}

func WithCompiler(compiler *Compiler) Option {
	return func(c *Controller) { c.compiler = compiler }
}

func WithLimits(l *Limits) Option {
	return func(c *Controller) { c.limits = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithHandler registers an extra mutation handler for every aspect. It runs
// after the DOM has been changed.
func WithHandler(h mutation.Handler) Option {
	return func(c *Controller) { c.registry.RegisterAll(h) }
}

// NewController creates a controller for the drawing produced by source.
// Nothing is fetched until Initialise.
func NewController(source Source, opts ...Option) *Controller {
	c := &Controller{
		source:   source,
		limits:   DefaultLimits(),
		recorder: nopRecorder{},
		registry: mutation.NewDOMRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default().With("component", "mimic")
	}
	if c.compiler == nil {
		c.compiler = NewCompiler(WithMaxRuleLength(c.limits.MaxRuleLength))
	}
	c.registry.RegisterAll(mutation.HandlerFunc(func(m mutation.Mutation) error {
		c.recorder.MutationApplied(m.Aspect.String())
		return nil
	}))
	return c
}

// Initialise fetches the drawing, attaches it to the anchor and indexes
// every bound element. It does nothing when already initialised. Concurrent
// callers share one fetch and its result. On failure the controller stays
// uninitialised and Initialise may be called again; a Dispose while the
// fetch is in flight discards the result with ErrDisposed.
func (c *Controller) Initialise(ctx context.Context) error {
	c.mutex.Lock()
	if c.initialised {
		c.mutex.Unlock()
		return nil
	}
	if call := c.loading; call != nil {
		c.mutex.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	call := &loadCall{done: make(chan struct{})}
	c.loading = call
	generation := c.generation
	c.mutex.Unlock()

	loaded, err := c.load(ctx)

	c.mutex.Lock()
	defer c.mutex.Unlock()
	call.err = c.publish(loaded, err, generation)
	c.loading = nil
	close(call.done)
	return call.err
}

// loadCall is one in-flight Initialise that later callers wait on.
type loadCall struct {
	done chan struct{}
	err  error
}

// publish installs a loaded drawing. The caller holds the mutex.
func (c *Controller) publish(loaded *discovery, err error, generation uint64) error {
	if err != nil {
		c.recorder.FetchFailed()
		c.logger.Error("Failed to initialise mimic", "source", c.source.String(), "error", err)
		return fmt.Errorf("initialise mimic from %s: %w", c.source, err)
	}
	if c.generation != generation {
		c.logger.Info("Discarding mimic disposed while loading", "source", c.source.String())
		return fmt.Errorf("initialise mimic from %s: %w", c.source, ErrDisposed)
	}

	if c.anchor != nil {
		if err := c.anchor.Attach(loaded.doc.Root()); err != nil {
			c.logger.Error("Failed to attach mimic", "source", c.source.String(), "error", err)
			return fmt.Errorf("attach mimic: %w", err)
		}
	}

	c.doc = loaded.doc
	c.index = loaded.index
	c.bindings = loaded.bindings
	c.elements = loaded.elements
	c.initialised = true

	for _, r := range loaded.rejected {
		c.recorder.RuleRejected()
		c.logger.Warn("Rejected mimic rule", "binding", r.binding, "element", r.element, "error", r.err)
	}
	c.recorder.Loaded(len(c.bindings))

	c.logger.Info("Mimic initialised",
		"source", c.source.String(),
		"bindings", len(c.bindings),
		"elements", c.elements,
		"rules", loaded.rules,
		"rejected", len(loaded.rejected))
	return nil
}

type discovery struct {
	doc      *svgdom.Document
	index    map[string][]*ElementProcessor
	bindings []string
	elements int
	rules    int
	rejected []rejection
}

type rejection struct {
	binding string
	element string
	err     error
}

func (c *Controller) load(ctx context.Context) (*discovery, error) {
	data, err := c.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.limits.checkDocument(len(data)); err != nil {
		return nil, err
	}
	doc, err := svgdom.Parse(data)
	if err != nil {
		return nil, err
	}
	return c.discover(doc)
}

// discover walks the drawing in document order and builds one element
// processor per bound element. Rejected rules are collected, not reported.
func (c *Controller) discover(doc *svgdom.Document) (*discovery, error) {
	bound := doc.Bound(svgdom.BindingAttr)
	if err := c.limits.checkElements(len(bound)); err != nil {
		return nil, err
	}

	d := &discovery{
		doc:   doc,
		index: make(map[string][]*ElementProcessor),
	}
	for _, el := range bound {
		binding := strings.TrimSpace(el.SelectAttrValue(svgdom.BindingAttr, ""))
		if binding == "" {
			c.logger.Warn("Skipping element with blank binding", "element", el.GetPath())
			continue
		}

		p := NewElementProcessor(binding, el, c.compiler)
		if err := p.Initialise(); err != nil {
			for _, e := range unwrapJoined(err) {
				d.rejected = append(d.rejected, rejection{binding: binding, element: el.GetPath(), err: e})
			}
		}

		if _, seen := d.index[binding]; !seen {
			d.bindings = append(d.bindings, binding)
		}
		d.index[binding] = append(d.index[binding], p)
		d.elements++
		d.rules += p.Rules()
	}
	sort.Strings(d.bindings)
	return d, nil
}

// Dispose detaches the drawing and forgets it. A load still in flight is
// discarded when it completes.
func (c *Controller) Dispose() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.generation++
	if !c.initialised {
		return
	}
	if c.anchor != nil {
		c.anchor.Detach(c.doc.Root())
	}
	c.doc = nil
	c.index = nil
	c.bindings = nil
	c.elements = 0
	c.initialised = false
	c.recorder.Unloaded()
	c.logger.Info("Mimic disposed", "source", c.source.String())
}

func (c *Controller) Initialised() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.initialised
}

// Bindings returns the distinct parameter bindings of the drawing, sorted.
func (c *Controller) Bindings() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]string(nil), c.bindings...)
}

// ElementProcessors returns the processors registered under binding.
func (c *Controller) ElementProcessors(binding string) []*ElementProcessor {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]*ElementProcessor(nil), c.index[binding]...)
}

// Update evaluates every element bound to a key of batch and then applies
// the resulting mutations. No element is changed before all of them have
// been evaluated. Failures are isolated per aspect and returned joined. It
// does nothing when not initialised.
func (c *Controller) Update(batch Batch) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.initialised {
		return nil
	}

	start := time.Now()
	cycle := uuid.NewString()

	keys := make([]string, 0, len(batch))
	for k := range batch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pending mutation.Batch
	var errs []error
	for _, key := range keys {
		for _, p := range c.index[key] {
			b, err := p.BuildUpdate(batch[key])
			if err != nil {
				errs = append(errs, c.recordFailures(err)...)
			}
			pending = append(pending, b...)
		}
	}

	for _, f := range c.registry.ApplyBatch(pending) {
		m := f.Mutation
		evalErr := &EvaluationError{Binding: m.Binding, Attribute: m.Source, Aspect: m.Aspect, Err: f.Err}
		errs = append(errs, c.recordFailures(evalErr)...)
	}

	c.updates++
	c.lastUpdate = start
	c.lastCycle = cycle
	c.recorder.UpdateObserved(time.Since(start))
	c.logger.Debug("Mimic updated",
		"cycle", cycle,
		"keys", len(keys),
		"mutations", len(pending),
		"errors", len(errs),
		"duration", time.Since(start))

	return errors.Join(errs...)
}

func (c *Controller) recordFailures(err error) []error {
	errs := unwrapJoined(err)
	for _, e := range errs {
		aspect := "unknown"
		var evalErr *EvaluationError
		if errors.As(e, &evalErr) {
			aspect = evalErr.Aspect.String()
		}
		c.recorder.EvaluationFailed(aspect)
		c.logger.Error("Mimic rule failed", "aspect", aspect, "error", e)
	}
	return errs
}

// Render serialises the current state of the drawing.
func (c *Controller) Render() ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.initialised {
		return nil, ErrNotInitialised
	}
	return c.doc.Bytes()
}

// Status is a snapshot of the controller state.
type Status struct {
	Source      string    `json:"source"`
	Initialised bool      `json:"initialised"`
	Bindings    int       `json:"bindings"`
	Elements    int       `json:"elements"`
	Updates     uint64    `json:"updates"`
	LastUpdate  time.Time `json:"last_update,omitempty"`
	LastCycle   string    `json:"last_cycle,omitempty"`
}

func (c *Controller) Status() Status {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return Status{
		Source:      c.source.String(),
		Initialised: c.initialised,
		Bindings:    len(c.bindings),
		Elements:    c.elements,
		Updates:     c.updates,
		LastUpdate:  c.lastUpdate,
		LastCycle:   c.lastCycle,
	}
}

func unwrapJoined(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
