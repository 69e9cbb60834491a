package syntax

import (
	"context"
	"errors"
	"sync"

	"github.com/cptaffe/acme-syntax/logger"
	"go.uber.org/zap"
)

// TextProvider supplies immutable snapshots of the live document.  LastEdit
// reports and forgets the oldest edit not yet handed out; providers that
// push edits through Coordinator.OnEdit themselves may always return false.
type TextProvider interface {
	Snapshot() Text
	LastEdit() (Edit, bool)
}

// HighlightSink receives the ranges of a completed pass.  Everything inside
// covered must be recolored; ranges lists the colored parts of it.
type HighlightSink interface {
	ApplyHighlights(ranges []HighlightRange, covered Range)
}

// HighlightSinkFunc adapts a function to HighlightSink.
type HighlightSinkFunc func(ranges []HighlightRange, covered Range)

func (f HighlightSinkFunc) ApplyHighlights(ranges []HighlightRange, covered Range) {
	f(ranges, covered)
}

// OutlineSink receives the outline of a completed pass.
type OutlineSink interface {
	ApplyOutline(items []OutlineItem)
}

// OutlineSinkFunc adapts a function to OutlineSink.
type OutlineSinkFunc func(items []OutlineItem)

func (f OutlineSinkFunc) ApplyOutline(items []OutlineItem) { f(items) }

// Poster runs fn on the goroutine that owns the document.
type Poster interface {
	Post(fn func())
}

// PosterFunc adapts a function to Poster.
type PosterFunc func(fn func())

func (f PosterFunc) Post(fn func()) { f(fn) }

// State is the Coordinator's position in its scan cycle.
type State uint8

const (
	StateIdle State = iota
	StateEditPending
	StateScanInFlight
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditPending:
		return "edit-pending"
	case StateScanInFlight:
		return "scan-in-flight"
	}
	return "unknown"
}

// RescanRequest is what the next pass will do.  Outline is always true:
// the outline is re-extracted wholesale on every pass.
type RescanRequest struct {
	Scope      Scope
	Outline    bool
	Generation uint64
}

// CoordinatorConfig wires a Coordinator to its collaborators.  Poster may be
// nil, in which case results are delivered on the worker goroutine under
// the Coordinator's lock.
type CoordinatorConfig struct {
	Engine     *Engine
	Extractor  *Extractor
	Provider   TextProvider
	Highlights HighlightSink
	Outline    OutlineSink
	Poster     Poster
	Style      *Definition
}

type job struct {
	ctx   context.Context
	gen   uint64
	text  Text
	def   *Definition
	scope Scope
}

// Coordinator tracks edits to one document and schedules highlight and
// outline passes on a single background worker.  Each request carries the
// generation of the snapshot it was issued against; a result is applied
// only if no edit arrived since, so stale colors are never delivered.
//
// OnEdit, Rescan and SetStyle are meant to be called from the goroutine that
// owns the document.  Sinks must not call back into the Coordinator.
type Coordinator struct {
	cfg CoordinatorConfig
	ctx context.Context

	mu         sync.Mutex
	state      State
	gen        uint64
	def        *Definition
	full       bool // next pass must cover the whole document
	pending    Range
	hasPending bool
	inflight   Scope
	prior      []Range
	hasPrior   bool
	// expect is the length the next snapshot should have: the last
	// snapshot's length plus the deltas of the edits recorded since.
	expect    int
	hasExpect bool
	cancel    context.CancelFunc
	next      *job

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// NewCoordinator starts a Coordinator whose worker lives until Close or
// until ctx is cancelled.  The first pass always covers the full document.
func NewCoordinator(ctx context.Context, cfg CoordinatorConfig) *Coordinator {
	if cfg.Engine == nil {
		cfg.Engine = NewEngine()
	}
	c := &Coordinator{
		cfg:   cfg,
		ctx:   ctx,
		def:   cfg.Style,
		full:  true,
		state: StateEditPending,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	c.wg.Add(1)
	go c.work()
	return c
}

// State returns the current scan-cycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Generation returns the generation of the latest text state.
func (c *Coordinator) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// OnEdit records a text mutation.  An in-flight scan is cancelled and its
// range folded back into the pending one, so the next pass covers both.
func (c *Coordinator) OnEdit(e Edit) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	if c.state == StateScanInFlight {
		c.cancelLocked()
		if c.inflight.Full {
			c.full = true
		} else {
			c.pending, c.hasPending = c.inflight.Range, true
		}
	}
	if c.hasPending {
		c.pending = e.MapRange(c.pending).Union(e.Range)
	} else {
		c.pending, c.hasPending = e.Range, true
	}
	for i, p := range c.prior {
		c.prior[i] = e.MapRange(p)
	}
	c.expect += e.Delta
	c.state = StateEditPending
}

// Sync drains the provider's edit record into OnEdit.  It reports whether
// any edit was found.
func (c *Coordinator) Sync() bool {
	found := false
	for {
		e, ok := c.cfg.Provider.LastEdit()
		if !ok {
			return found
		}
		c.OnEdit(e)
		found = true
	}
}

// SetStyle switches the active style.  The next pass covers the whole
// document.
func (c *Coordinator) SetStyle(def *Definition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.def = def
	c.gen++
	c.cancelLocked()
	c.full = true
	c.state = StateEditPending
}

// PendingRescan reports the pass Rescan would schedule.  ok is false when
// nothing is pending.
func (c *Coordinator) PendingRescan() (RescanRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *Coordinator) pendingLocked() (RescanRequest, bool) {
	if c.state != StateEditPending {
		return RescanRequest{}, false
	}
	req := RescanRequest{Outline: true, Generation: c.gen}
	switch {
	case c.full || !c.hasPending:
		req.Scope = FullDocument()
	case c.hasPrior:
		req.Scope = RangeScope(c.pending).WithPrior(append([]Range(nil), c.prior...))
	default:
		req.Scope = RangeScope(c.pending)
	}
	return req, true
}

// Rescan snapshots the document and queues the pending pass.  It returns
// false if nothing was pending.  It never blocks on the worker.
func (c *Coordinator) Rescan() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, ok := c.pendingLocked()
	if !ok {
		return false
	}
	c.cancelLocked()
	text := c.cfg.Provider.Snapshot()
	if c.hasExpect && text.Len() != c.expect && !req.Scope.Full {
		// This snapshot or the previous one held edits that were not
		// yet reported.  Highlights delivered from such a snapshot are
		// mapped through those edits a second time, so recolor all of it.
		logger.L(c.ctx).Debug("snapshot ahead of edits",
			zap.Int("length", text.Len()), zap.Int("expected", c.expect))
		req.Scope = FullDocument()
	}
	c.expect, c.hasExpect = text.Len(), true
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel
	c.next = &job{
		ctx:   ctx,
		gen:   req.Generation,
		text:  text,
		def:   c.def,
		scope: req.Scope,
	}
	c.inflight = req.Scope
	c.full, c.hasPending = false, false
	c.state = StateScanInFlight

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return true
}

// Close stops the worker and discards any queued or in-flight pass.
func (c *Coordinator) Close() {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return
	default:
	}
	close(c.done)
	c.cancelLocked()
	c.next = nil
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Coordinator) cancelLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// work is the background worker.  It only ever holds the latest job;
// superseded requests are replaced before they start.
func (c *Coordinator) work() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case <-c.ctx.Done():
			return
		case <-c.wake:
		}
		c.mu.Lock()
		j := c.next
		c.next = nil
		c.mu.Unlock()
		if j == nil || j.ctx.Err() != nil {
			continue
		}
		c.run(j)
	}
}

func (c *Coordinator) run(j *job) {
	log := logger.L(j.ctx)

	res, err := c.cfg.Engine.Highlight(j.ctx, j.text, j.def, j.scope)
	if err != nil {
		c.logFailure(log, j, "highlight", err)
		return
	}
	var items []OutlineItem
	if c.cfg.Extractor != nil {
		items, err = c.cfg.Extractor.Extract(j.ctx, j.text, j.def)
		if err != nil {
			c.logFailure(log, j, "outline", err)
			return
		}
	}

	deliver := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if j.gen != c.gen || j.ctx.Err() != nil {
			log.Debug("dropping stale pass", zap.Uint64("gen", j.gen), zap.Uint64("latest", c.gen))
			return
		}
		c.cancelLocked()
		c.prior, c.hasPrior = res.Spans, true
		c.state = StateIdle
		if c.cfg.Highlights != nil {
			c.cfg.Highlights.ApplyHighlights(res.Ranges, res.Covered)
		}
		if c.cfg.Outline != nil {
			c.cfg.Outline.ApplyOutline(items)
		}
	}
	if c.cfg.Poster != nil {
		c.cfg.Poster.Post(deliver)
		return
	}
	deliver()
}

func (c *Coordinator) logFailure(log *zap.Logger, j *job, what string, err error) {
	if errors.Is(err, context.Canceled) {
		log.Debug("pass superseded", zap.String("phase", what), zap.Uint64("gen", j.gen))
		return
	}
	log.Warn("pass failed", zap.String("phase", what), zap.Uint64("gen", j.gen), zap.Error(err))
}
