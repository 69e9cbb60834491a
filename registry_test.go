package syntax

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/cptaffe/acme-syntax/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func styleFS(styles map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{"styles": &fstest.MapFile{Mode: fs.ModeDir | 0o755}}
	for name, body := range styles {
		fsys["styles/"+name+".yaml"] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}

func newTestRegistry(t *testing.T, bundled map[string]string, opts ...RegistryOption) *Registry {
	t.Helper()
	opts = append([]RegistryOption{WithLogger(zaptest.NewLogger(t))}, opts...)
	reg := NewRegistry(FSSource{FS: styleFS(bundled), Dir: "styles"}, opts...)
	require.NoError(t, reg.LoadUserSettings())
	return reg
}

func writeStyle(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(body), 0o644))
}

func TestResolveOrder(t *testing.T) {
	reg := newTestRegistry(t, map[string]string{
		"ts":       "extensions: [ts]\nkeywords: [{keyString: let}]\n",
		"dts":      "extensions: [d.ts]\nkeywords: [{keyString: declare}]\n",
		"make":     "filenames: [Makefile]\nextensions: [mk]\nkeywords: [{keyString: ifeq}]\n",
		"markdown": "extensions: [md]\nkeywords: [{beginString: '^#.*', regularExpression: true}]\n",
	})

	cases := []struct {
		file string
		want string
	}{
		{"/src/app.ts", "ts"},
		{"/src/lib.d.ts", "dts"}, // longest extension wins
		{"/src/Makefile", "make"},
		{"rules.mk", "make"},
		{"README.MD", "markdown"}, // case-insensitive fallback
		{"notes.txt", ""},
		{"", ""},
	}
	for _, c := range cases {
		got, ok := reg.Resolve(c.file)
		require.Equal(t, c.want, got, c.file)
		require.Equal(t, c.want != "", ok, c.file)
	}
}

func TestResolveHandlersFirst(t *testing.T) {
	handlers, err := CompileHandlers(&config.Config{FilenameHandlers: []config.FilenameHandler{
		{Pattern: `/mkfile$`, Style: "make"},
		{Pattern: `\.ts$`, Style: "missing"},
	}})
	require.NoError(t, err)

	reg := newTestRegistry(t, map[string]string{
		"ts":   "extensions: [ts]\nkeywords: [{keyString: let}]\n",
		"make": "filenames: [Makefile]\nkeywords: [{keyString: ifeq}]\n",
	}, WithResolver(handlers))

	got, ok := reg.Resolve("/sys/src/mkfile")
	require.True(t, ok)
	require.Equal(t, "make", got)

	// A handler naming an unknown style falls through to the extension.
	got, ok = reg.Resolve("x.ts")
	require.True(t, ok)
	require.Equal(t, "ts", got)
}

func TestCompileHandlersInvalid(t *testing.T) {
	_, err := CompileHandlers(&config.Config{FilenameHandlers: []config.FilenameHandler{
		{Pattern: `(`, Style: "x"},
	}})
	require.Error(t, err)
}

func TestResolveDocument(t *testing.T) {
	reg := newTestRegistry(t, map[string]string{
		"python": "extensions: [py]\ninterpreters: [python3]\nkeywords: [{keyString: def}]\n",
	})
	got, ok := reg.ResolveDocument("script", "#!/usr/bin/env python3")
	require.True(t, ok)
	require.Equal(t, "python", got)

	got, ok = reg.ResolveDocument("x.py", "")
	require.True(t, ok)
	require.Equal(t, "python", got)

	_, ok = reg.ResolveDocument("script", "echo hi")
	require.False(t, ok)
}

func TestUserOverridesBundled(t *testing.T) {
	dir := t.TempDir()
	writeStyle(t, dir, "go", "extensions: [go]\nkeywords: [{keyString: chan}]\n")

	reg := newTestRegistry(t, map[string]string{
		"go": "extensions: [go]\nkeywords: [{keyString: func}]\n",
		"c":  "extensions: [c]\nkeywords: [{keyString: int}]\n",
	}, WithUserSource(DirSource{Dir: dir}))

	def, ok := reg.Style("go")
	require.True(t, ok)
	require.Equal(t, "chan", def.Rules[Keywords][0].Begin)
	require.True(t, reg.IsUserStyle("go"))
	require.False(t, reg.IsUserStyle("c"))
	require.Equal(t, []string{"go", "c"}, reg.Names())
}

func TestUnusableUserStyleKeepsBundled(t *testing.T) {
	dir := t.TempDir()
	writeStyle(t, dir, "go", "keywords: [{beginString: '(', regularExpression: true}]\n")
	writeStyle(t, dir, "c", "keywords: [not, a, mapping\n")

	reg := newTestRegistry(t, map[string]string{
		"go": "extensions: [go]\nkeywords: [{keyString: func}]\n",
		"c":  "extensions: [c]\nkeywords: [{keyString: int}]\n",
	}, WithUserSource(DirSource{Dir: dir}))

	def, ok := reg.Style("go")
	require.True(t, ok)
	require.Equal(t, "func", def.Rules[Keywords][0].Begin)
	require.False(t, reg.IsUserStyle("go"))

	errs := reg.Errors("go")
	require.Len(t, errs, 1)
	require.Equal(t, KindRegularExpression, errs[0].Kind)

	def, ok = reg.Style("c")
	require.True(t, ok)
	require.Equal(t, "int", def.Rules[Keywords][0].Begin)
	require.Error(t, reg.LoadError("c"))
}

func TestPartiallyInvalidStyleRegistered(t *testing.T) {
	reg := newTestRegistry(t, map[string]string{
		"x": "keywords: [{keyString: a}, {keyString: a}, {beginString: '[', regularExpression: true}]\n",
	})
	def, ok := reg.Style("x")
	require.True(t, ok)
	require.Len(t, def.Rules[Keywords], 1)
	require.Len(t, reg.Errors("x"), 2)
}

func TestMissingUserDir(t *testing.T) {
	reg := NewRegistry(FSSource{FS: styleFS(nil), Dir: "styles"},
		WithUserSource(DirSource{Dir: filepath.Join(t.TempDir(), "absent")}),
		WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, reg.LoadUserSettings())
	require.Empty(t, reg.Names())
}

type failingSource struct{ err error }

func (s failingSource) LoadAll() ([]RawEntry, error) { return nil, s.err }

func TestLoadAggregatesSourceErrors(t *testing.T) {
	errA, errB := errors.New("a"), errors.New("b")
	reg := NewRegistry(failingSource{errA},
		WithUserSource(failingSource{errB}),
		WithLogger(zaptest.NewLogger(t)))
	err := reg.LoadUserSettings()
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)
}

func TestReloadFlushesCache(t *testing.T) {
	dir := t.TempDir()
	reg := newTestRegistry(t, map[string]string{
		"text": "extensions: [txt]\nkeywords: [{keyString: TODO}]\n",
	}, WithUserSource(DirSource{Dir: dir}))

	got, _ := reg.Resolve("a.notes")
	require.Equal(t, "", got)

	reloads := 0
	cancel := reg.OnReload(func() { reloads++ })
	writeStyle(t, dir, "notes", "extensions: [notes]\nkeywords: [{keyString: NOTE}]\n")
	require.NoError(t, reg.LoadUserSettings())
	require.Equal(t, 1, reloads)

	got, ok := reg.Resolve("a.notes")
	require.True(t, ok)
	require.Equal(t, "notes", got)

	cancel()
	require.NoError(t, reg.LoadUserSettings())
	require.Equal(t, 1, reloads)
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	// The watch goroutine may outlive the test, so it must not log to t.
	reg := newTestRegistry(t, nil,
		WithUserSource(DirSource{Dir: dir}),
		WithWatchDebounce(10*time.Millisecond),
		WithLogger(zap.NewNop()))

	reloaded := make(chan struct{}, 1)
	reg.OnReload(func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})
	require.NoError(t, reg.Watch(t.Context(), dir))

	writeStyle(t, dir, "notes", "extensions: [notes]\nkeywords: [{keyString: NOTE}]\n")
	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after writing a style")
	}
	_, ok := reg.Style("notes")
	require.True(t, ok)
}

func TestResolveCacheIgnoresAnswersFromEarlierLoad(t *testing.T) {
	reg := newTestRegistry(t, map[string]string{
		"go": "extensions: [go]\nkeywords: [{keyString: func}]\n",
	})

	// A lookup that started before a reload finishes after it.
	got, ok := reg.cached("f:main.go", func() (string, bool) {
		require.NoError(t, reg.LoadUserSettings())
		return "stale", true
	})
	require.True(t, ok)
	require.Equal(t, "stale", got)

	got, ok = reg.Resolve("main.go")
	require.True(t, ok)
	require.Equal(t, "go", got)
}
