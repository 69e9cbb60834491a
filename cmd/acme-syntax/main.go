// acme-syntax: pattern-based syntax highlighting and outlines for acme.
//
// Watches acme/log for window opens.  For each window whose filename or
// shebang resolves to a style, it:
//
//   - allocates a compositor layer in acme-styles,
//   - highlights the body with the style's patterns, and
//   - rescans only what an edit can affect (debounced at 200 ms).
//
// The other subcommands run the same engine over files, for writing and
// checking styles.
//
// Usage:
//
//	acme-syntax [run] [--config ~/lib/acme-syntax/config.yaml] [-v]
//	acme-syntax validate STYLE.yaml...
//	acme-syntax highlight FILE
//	acme-syntax outline FILE
//	acme-syntax resolve FILE...
//	acme-syntax styles
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	syntax "github.com/cptaffe/acme-syntax"
	"github.com/cptaffe/acme-syntax/bundled"
	"github.com/cptaffe/acme-syntax/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is the state shared by every subcommand, built in PersistentPreRunE.
type app struct {
	cfgFile string
	verbose bool

	cfg      *config.Config
	log      *zap.Logger
	reg      *syntax.Registry
	engine   *syntax.Engine
	extract  *syntax.Extractor
	shutdown func(context.Context) error
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "acme-syntax",
		Short:             "Syntax highlighting and outlines for acme",
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.init() },
		PersistentPostRun: func(cmd *cobra.Command, args []string) { a.close() },
		RunE:              func(cmd *cobra.Command, args []string) error { return a.runDaemon(cmd.Context()) },
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default: ~/lib/acme-syntax/config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Highlight acme windows until interrupted (the default)",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return a.runDaemon(cmd.Context()) },
		},
		newValidateCmd(a),
		newHighlightCmd(a),
		newOutlineCmd(a),
		newResolveCmd(a),
		newStylesCmd(a),
	)
	return root
}

func (a *app) init() error {
	var (
		l   *zap.Logger
		err error
	)
	if a.verbose {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(l)
	a.log = l

	path, optional := a.cfgFile, false
	if path == "" {
		path, optional = config.DefaultPath(), true
	}
	a.cfg, err = config.Load(path, optional)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a.shutdown, err = setupTracing(a.cfg.Trace)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	handlers, err := syntax.CompileHandlers(a.cfg)
	if err != nil {
		return fmt.Errorf("compile filename handlers: %w", err)
	}
	a.reg = syntax.NewRegistry(bundled.Source(),
		syntax.WithUserSource(syntax.DirSource{Dir: a.cfg.UserStyleDir}),
		syntax.WithResolver(handlers),
		syntax.WithLogger(l.Named("registry")),
		syntax.WithStyleMatchTimeout(a.cfg.MatchTimeout),
	)
	if err := a.reg.LoadUserSettings(); err != nil {
		l.Warn("some styles could not be read", zap.Error(err))
	}

	a.engine = syntax.NewEngine()
	a.extract, err = syntax.NewExtractor(a.cfg.SeparatorPattern)
	if err != nil {
		return fmt.Errorf("separator pattern: %w", err)
	}
	return nil
}

func (a *app) close() {
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdown(ctx); err != nil {
			a.log.Warn("flush traces", zap.Error(err))
		}
	}
	if a.log != nil {
		a.log.Sync() //nolint:errcheck
	}
}
