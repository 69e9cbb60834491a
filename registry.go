package syntax

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cptaffe/acme-syntax/watcher"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	resolveCacheExpiration = 10 * time.Minute
	resolveCacheCleanup    = 30 * time.Minute
)

type registered struct {
	def    *Definition
	user   bool
	origin string
}

// Registry holds the loaded styles and resolves documents to them.  It is an
// explicit instance; callers share it by passing it around.  All methods are
// safe for concurrent use.
type Registry struct {
	bundled  Source
	user     Source
	resolver FilenameResolver
	timeout  time.Duration
	debounce time.Duration
	log      *zap.Logger
	cache    *gocache.Cache

	mu       sync.RWMutex
	styles   map[string]*registered
	order    []*registered // user styles by name, then bundled by name
	errs     map[string][]StyleError
	problems map[string]error
	onReload map[int]func()
	nextSub  int
	// loads counts LoadUserSettings calls.  It prefixes every cache key so
	// an answer computed from an older load is never read back.
	loads uint64
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithUserSource adds a source whose styles override bundled ones.
func WithUserSource(s Source) RegistryOption {
	return func(r *Registry) { r.user = s }
}

// WithResolver consults res before the styles' own file associations.
func WithResolver(res FilenameResolver) RegistryOption {
	return func(r *Registry) { r.resolver = res }
}

// WithLogger sets the registry logger.  The default is zap.L().
func WithLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) { r.log = l }
}

// WithStyleMatchTimeout sets the match budget compiled into every style.
func WithStyleMatchTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.timeout = d }
}

// WithWatchDebounce sets how long Watch waits for file changes to settle.
func WithWatchDebounce(d time.Duration) RegistryOption {
	return func(r *Registry) { r.debounce = d }
}

// NewRegistry returns an empty Registry over the bundled source.  Call
// LoadUserSettings to populate it.
func NewRegistry(bundled Source, opts ...RegistryOption) *Registry {
	r := &Registry{
		bundled:  bundled,
		timeout:  DefaultMatchTimeout,
		debounce: watcher.DefaultConfig("").DebounceDur,
		cache:    gocache.New(resolveCacheExpiration, resolveCacheCleanup),
		styles:   make(map[string]*registered),
		onReload: make(map[int]func()),
	}
	for _, o := range opts {
		o(r)
	}
	if r.log == nil {
		r.log = zap.L()
	}
	return r
}

// LoadUserSettings rescans the bundled source and then the user source and
// replaces the registered styles.  A style whose file does not parse, or
// whose errors leave it with no rules, is not registered; a bundled style of
// the same name stays in effect.  Per-style problems are logged and kept for
// Errors and LoadError.  The returned error aggregates source read failures
// only.
func (r *Registry) LoadUserSettings() error {
	styles := make(map[string]*registered)
	errs := make(map[string][]StyleError)
	problems := make(map[string]error)

	var loadErr error
	load := func(src Source, user bool) {
		if src == nil {
			return
		}
		entries, err := src.LoadAll()
		if err != nil {
			r.log.Warn("style source read failed", zap.Error(err))
			loadErr = multierr.Append(loadErr, err)
		}
		for _, e := range entries {
			log := r.log.With(zap.String("style", e.Name), zap.String("origin", e.Origin))
			raw, err := ParseRaw(e.Data)
			if err != nil {
				log.Warn("style does not parse", zap.Error(err))
				problems[e.Name] = err
				continue
			}
			def, serrs := Compile(e.Name, raw, WithMatchTimeout(r.timeout))
			if len(serrs) > 0 {
				errs[e.Name] = serrs
				for _, se := range serrs {
					log.Warn("style entry dropped", zap.Error(se))
				}
			} else {
				delete(errs, e.Name)
			}
			if def.unusable() {
				log.Warn("style unusable, not registered")
				continue
			}
			delete(problems, e.Name)
			styles[e.Name] = &registered{def: def, user: user, origin: e.Origin}
		}
	}
	load(r.bundled, false)
	load(r.user, true)

	order := make([]*registered, 0, len(styles))
	for _, s := range styles {
		order = append(order, s)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].user != order[j].user {
			return order[i].user
		}
		return order[i].def.Name < order[j].def.Name
	})

	r.mu.Lock()
	r.styles, r.order, r.errs, r.problems = styles, order, errs, problems
	r.loads++
	callbacks := make([]func(), 0, len(r.onReload))
	for _, fn := range r.onReload {
		callbacks = append(callbacks, fn)
	}
	r.mu.Unlock()
	r.cache.Flush()

	r.log.Info("styles loaded", zap.Int("count", len(order)), zap.Int("withErrors", len(errs)))
	for _, fn := range callbacks {
		fn()
	}
	return loadErr
}

// OnReload registers fn to run after every LoadUserSettings.  The returned
// function unregisters it.
func (r *Registry) OnReload(fn func()) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.onReload[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.onReload, id)
	}
}

// Watch reloads the registry whenever style files in dir change, until ctx
// is done.
func (r *Registry) Watch(ctx context.Context, dir string) error {
	w, err := watcher.New(watcher.Config{Dir: dir, DebounceDur: r.debounce, Log: r.log})
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return err
	}
	r.log.Info("watching styles", zap.String("dir", dir))
	go func() {
		defer w.Stop() //nolint:errcheck
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				r.log.Debug("style directory changed", zap.String("dir", dir))
				if err := r.LoadUserSettings(); err != nil {
					r.log.Warn("reload styles", zap.Error(err))
				}
			}
		}
	}()
	return nil
}

// Style returns the registered style called name.
func (r *Registry) Style(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.styles[name]
	if !ok {
		return nil, false
	}
	return s.def, true
}

// Names lists the registered styles in resolution order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	for i, s := range r.order {
		out[i] = s.def.Name
	}
	return out
}

// IsUserStyle reports whether name was loaded from the user source.
func (r *Registry) IsUserStyle(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.styles[name]
	return ok && s.user
}

// Errors returns the validation errors recorded for name at the last load.
func (r *Registry) Errors(name string) []StyleError {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]StyleError(nil), r.errs[name]...)
}

// LoadError returns why the last file named name could not be parsed or
// registered, or nil.
func (r *Registry) LoadError(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.problems[name]
}

// Resolve returns the style for filename.  The configured FilenameResolver
// is consulted first, then exact filenames, then extensions (longest first),
// then extensions ignoring case.
func (r *Registry) Resolve(filename string) (string, bool) {
	return r.cached("f:"+filename, func() (string, bool) { return r.resolve(filename) })
}

// ResolveInterpreter returns the style for the interpreter named by a
// shebang line, trying the interpreter name before its version-stripped
// form.
func (r *Registry) ResolveInterpreter(shebang string) (string, bool) {
	interp := shebangInterpreter(firstLine(shebang))
	if interp == "" {
		return "", false
	}
	return r.cached("i:"+interp, func() (string, bool) {
		r.mu.RLock()
		defer r.mu.RUnlock()
		for _, cand := range interpreterCandidates(interp) {
			for _, s := range r.order {
				for _, name := range s.def.Files.Interpreters {
					if name == cand {
						return s.def.Name, true
					}
				}
			}
		}
		return "", false
	})
}

// ResolveDocument resolves by filename, falling back to the shebang in the
// document's first line.
func (r *Registry) ResolveDocument(filename, first string) (string, bool) {
	if name, ok := r.Resolve(filename); ok {
		return name, true
	}
	return r.ResolveInterpreter(first)
}

func (r *Registry) cached(key string, fn func() (string, bool)) (string, bool) {
	r.mu.RLock()
	key = strconv.FormatUint(r.loads, 10) + ":" + key
	r.mu.RUnlock()
	if v, ok := r.cache.Get(key); ok {
		if name, ok := v.(string); ok {
			return name, name != ""
		}
	}
	name, ok := fn()
	if !ok {
		name = ""
	}
	r.cache.SetDefault(key, name)
	return name, ok
}

func (r *Registry) resolve(filename string) (string, bool) {
	if filename == "" {
		return "", false
	}
	if r.resolver != nil {
		if name, ok := r.resolver.AssociatedStyleName(filename); ok {
			if _, known := r.Style(name); known {
				return name, true
			}
			r.log.Debug("filename handler names unknown style",
				zap.String("file", filename), zap.String("style", name))
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	base := filepath.Base(filename)
	for _, s := range r.order {
		for _, fn := range s.def.Files.Filenames {
			if fn == base {
				return s.def.Name, true
			}
		}
	}
	if name, ok := r.byExtension(base, false); ok {
		return name, true
	}
	return r.byExtension(base, true)
}

// byExtension picks the style declaring the longest extension that base
// ends with.  Ties go to the earlier style in resolution order.
func (r *Registry) byExtension(base string, fold bool) (string, bool) {
	if fold {
		base = strings.ToLower(base)
	}
	best, bestLen := "", 0
	for _, s := range r.order {
		for _, ext := range s.def.Files.Extensions {
			ext = strings.TrimPrefix(ext, ".")
			if ext == "" {
				continue
			}
			if fold {
				ext = strings.ToLower(ext)
			}
			if len(ext) > bestLen && strings.HasSuffix(base, "."+ext) {
				best, bestLen = s.def.Name, len(ext)
			}
		}
	}
	return best, best != ""
}
