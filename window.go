package syntax

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"9fans.net/go/acme"
	"github.com/cptaffe/acme-styles/layer"
	"github.com/cptaffe/acme-syntax/logger"
	"go.uber.org/zap"
)

const layerName = "syntax"

// DefaultDebounce is how long edits settle before a window is rescanned.
const DefaultDebounce = 200 * time.Millisecond

// errWindowClosed is returned by runWindowOnce when the window's edit log
// reaches EOF cleanly, i.e. the user closed the window.
var errWindowClosed = errors.New("window closed")

// maxRetries is the number of consecutive failed sessions RunWindow
// tolerates before giving up on a window.
const maxRetries = 8

// WindowOptions tunes RunWindow.  The zero value is usable.
type WindowOptions struct {
	Debounce  time.Duration
	Engine    *Engine
	Extractor *Extractor
}

func (o WindowOptions) withDefaults() (WindowOptions, error) {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.Engine == nil {
		o.Engine = NewEngine()
	}
	if o.Extractor == nil {
		x, err := NewExtractor("")
		if err != nil {
			return o, err
		}
		o.Extractor = x
	}
	return o, nil
}

// RunWindow is the per-window entry point.  It resolves the window's style
// (filename first, shebang fallback) and runs highlight sessions via
// runWindowOnce.  Transient errors (e.g. acme-styles not yet aware of the
// window) are retried with exponential backoff.  It exits when the window is
// closed, the context is cancelled, or retries are exhausted.
func RunWindow(ctx context.Context, id int, name string, reg *Registry, opts WindowOptions) {
	ctx = logger.With(ctx, zap.Int("window", id), zap.String("name", name))
	log := logger.L(ctx)

	opts, err := opts.withDefaults()
	if err != nil {
		log.Warn("window options", zap.Error(err))
		return
	}
	style, ok := resolveWindow(id, name, reg)
	if !ok {
		log.Debug("no style matched")
		return
	}
	log.Debug("matched style", zap.String("style", style))

	retry := sessionRetry{first: 100 * time.Millisecond, limit: 5 * time.Second, attempts: maxRetries}
	for {
		err := runWindowOnce(ctx, id, style, reg, opts, &retry)
		switch {
		case errors.Is(err, errWindowClosed):
			log.Debug("window closed")
			return
		case ctx.Err() != nil:
			return
		}
		delay, ok := retry.wait()
		if !ok {
			log.Warn("session failed after retries", zap.Int("attempts", maxRetries), zap.Error(err))
			return
		}
		log.Debug("session error, retrying",
			zap.Error(err), zap.Int("attempt", retry.failures), zap.Duration("in", delay))
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// resolveWindow returns the style for a window, trying the filename first
// and falling back to the shebang of the body's first line.
func resolveWindow(id int, name string, reg *Registry) (string, bool) {
	if style, ok := reg.Resolve(name); ok {
		return style, true
	}
	w, err := acme.Open(id, nil)
	if err != nil {
		return "", false
	}
	body, err := w.ReadBody()
	w.CloseFiles()
	if err != nil {
		return "", false
	}
	return reg.ResolveInterpreter(firstLine(string(body)))
}

// editFromLog converts an acme edit-log event to an Edit in post-edit
// coordinates.  Offsets are in runes.  An insert carries its position in Q0
// and the number of runes inserted in Q1; a delete carries the removed span
// Q0 to Q1.
func editFromLog(e *acme.WinLogEvent) (Edit, bool) {
	switch e.Op {
	case 'I':
		return Edit{Range: Range{Start: e.Q0, End: e.Q0 + e.Q1}, Delta: e.Q1}, true
	case 'D':
		return Edit{Range: Range{Start: e.Q0, End: e.Q0}, Delta: e.Q0 - e.Q1}, true
	}
	return Edit{}, false
}

// acmeDocument is the TextProvider for one window.  It is only used from
// the window goroutine.
type acmeDocument struct {
	ctx   context.Context
	win   *acme.Win
	last  Text
	edits []Edit
}

func (d *acmeDocument) Snapshot() Text {
	// ReadBody opens a fresh fid each time so reading always starts at offset 0.
	body, err := d.win.ReadBody()
	if err != nil {
		logger.L(d.ctx).Debug("read body", zap.Error(err))
		return d.last
	}
	d.last = NewText(string(body))
	return d.last
}

func (d *acmeDocument) LastEdit() (Edit, bool) {
	if len(d.edits) == 0 {
		return Edit{}, false
	}
	e := d.edits[0]
	d.edits = d.edits[1:]
	return e, true
}

// runWindowOnce performs one complete highlight session for a window:
//   - opens an acme-styles compositor layer,
//   - opens the window via the shared acme connection,
//   - starts a Coordinator whose results are posted back to this goroutine,
//   - feeds the per-window edit log to the Coordinator and rescans after edits.
//
// It returns errWindowClosed on clean log EOF, ctx.Err() if the context is
// cancelled, or another error for transient failures the caller should retry.
func runWindowOnce(ctx context.Context, id int, style string, reg *Registry, opts WindowOptions, retry *sessionRetry) error {
	log := logger.L(ctx)

	def, ok := reg.Style(style)
	if !ok {
		return fmt.Errorf("style %q no longer registered", style)
	}

	sl, err := layer.Open(id, layerName)
	if err != nil {
		return fmt.Errorf("open layer: %w", err)
	}
	log.Debug("allocated layer", zap.Int("layerID", sl.LayerID))
	defer sl.Delete()

	// acme.Open uses the package-level shared connection, so all window
	// goroutines share a single socket to acme.
	w, err := acme.Open(id, nil)
	if err != nil {
		return fmt.Errorf("open acme win: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// posted carries Coordinator deliveries onto this goroutine.
	posted := make(chan func(), 4)
	var (
		model    []HighlightRange
		applyErr error
	)
	doc := &acmeDocument{ctx: ctx, win: w}
	coord := NewCoordinator(ctx, CoordinatorConfig{
		Engine:    opts.Engine,
		Extractor: opts.Extractor,
		Provider:  doc,
		Style:     def,
		Poster: PosterFunc(func(fn func()) {
			select {
			case posted <- fn:
			case <-ctx.Done():
			}
		}),
		Highlights: HighlightSinkFunc(func(ranges []HighlightRange, covered Range) {
			// A delivery always belongs to the latest snapshot.
			model = TruncateHighlights(Splice(model, ranges, covered), doc.last.Len())
			if err := sl.Apply(layerEntries(model)); err != nil {
				applyErr = err
				return
			}
			retry.colored()
			log.Debug("highlights applied", zap.Int("ranges", len(ranges)), zap.Stringer("covered", covered))
		}),
		Outline: OutlineSinkFunc(func(items []OutlineItem) {
			if ce := log.Check(zap.DebugLevel, "outline"); ce != nil {
				titles := make([]string, len(items))
				for i, it := range items {
					titles[i] = it.Title
				}
				ce.Write(zap.Strings("items", titles))
			}
		}),
	})
	// Runs after cancel, which unblocks a Poster waiting on posted.
	defer coord.Close()

	reloaded := make(chan struct{}, 1)
	unsubscribe := reg.OnReload(func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	timer := time.NewTimer(opts.Debounce)
	timer.Stop()
	pending := false

	// edits carries I/D events from the log reader goroutine.
	// scanResult carries the exit reason: nil = clean EOF (window closed), else error.
	// goroutineExited is closed after the goroutine writes to scanResult.
	edits := make(chan *acme.WinLogEvent, 64)
	scanResult := make(chan error, 1)
	goroutineExited := make(chan struct{})

	go func() {
		defer close(goroutineExited)
		for {
			e, err := w.ReadLog()
			if err != nil {
				scanResult <- err
				return
			}
			if e.Op != 'I' && e.Op != 'D' {
				continue
			}
			select {
			case edits <- e:
			case <-ctx.Done():
				scanResult <- ctx.Err()
				return
			}
		}
	}()

	defer func() {
		cancel()          // unblocks a send on edits
		w.CloseFiles()    // closes the log fid, unblocking ReadLog in the goroutine
		<-goroutineExited // wait for it to finish
	}()

	onLog := func(e *acme.WinLogEvent) {
		edit, ok := editFromLog(e)
		if !ok {
			return
		}
		model = MapHighlights(model, edit)
		doc.edits = append(doc.edits, edit)
		coord.Sync()
		if !pending {
			timer.Reset(opts.Debounce)
			pending = true
		}
	}

	coord.Rescan()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case fn := <-posted:
			// Edits already read belong before the result; recording
			// them first makes a pass over older text stale.
			for drained := false; !drained; {
				select {
				case e := <-edits:
					onLog(e)
				default:
					drained = true
				}
			}
			fn()
			if applyErr != nil {
				return fmt.Errorf("apply highlights: %w", applyErr)
			}

		case e := <-edits:
			onLog(e)

		case <-reloaded:
			next, ok := reg.Style(style)
			if !ok {
				return fmt.Errorf("style %q removed", style)
			}
			if next != def {
				def = next
				log.Debug("style reloaded")
				coord.SetStyle(def)
				coord.Rescan()
			}

		case err := <-scanResult:
			if err == nil || errors.Is(err, io.EOF) {
				return errWindowClosed
			}
			return err

		case <-timer.C:
			pending = false
			coord.Rescan()
		}
	}
}

// layerEntries converts ranges to acme-styles entries named by palette.
func layerEntries(rs []HighlightRange) []layer.Entry {
	out := make([]layer.Entry, 0, len(rs))
	for _, r := range rs {
		out = append(out, layer.Entry{Name: r.Category.Palette(), Start: r.Start, End: r.End})
	}
	return out
}
