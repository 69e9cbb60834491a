package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"

	"9fans.net/go/acme"
	syntax "github.com/cptaffe/acme-syntax"
	"github.com/cptaffe/acme-syntax/logger"
	"go.uber.org/zap"
)

// runDaemon follows acme/log and runs one RunWindow goroutine per window.
func (a *app) runDaemon(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, shutdownSignals...)
	defer stop()
	ctx = logger.NewContext(ctx, a.log)
	l := a.log

	if a.cfg.Watch && a.cfg.UserStyleDir != "" {
		if err := a.reg.Watch(ctx, a.cfg.UserStyleDir); err != nil {
			l.Warn("style directory not watched", zap.String("dir", a.cfg.UserStyleDir), zap.Error(err))
		}
	}

	opts := syntax.WindowOptions{
		Debounce:  a.cfg.Debounce,
		Engine:    a.engine,
		Extractor: a.extract,
	}

	var wg sync.WaitGroup

	// active tracks which window IDs currently have a RunWindow goroutine.
	// Guarded by activeMu.
	var activeMu sync.Mutex
	active := make(map[int]struct{})

	start := func(id int, name string) {
		activeMu.Lock()
		if _, ok := active[id]; ok {
			activeMu.Unlock()
			return
		}
		active[id] = struct{}{}
		activeMu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				activeMu.Lock()
				delete(active, id)
				activeMu.Unlock()
			}()
			syntax.RunWindow(ctx, id, name, a.reg, opts)
		}()
	}

	f, err := acme.Mount()
	if err != nil {
		return fmt.Errorf("mount acme: %w", err)
	}

	wins, err := f.Windows()
	if err != nil {
		return fmt.Errorf("acme windows: %w", err)
	}
	for _, w := range wins {
		start(w.ID, w.Name)
	}

	lr, err := f.Log()
	if err != nil {
		return fmt.Errorf("acme log: %w", err)
	}
	go func() {
		<-ctx.Done()
		lr.Close()
	}()

	l.Info("connected to acme log", zap.Strings("styles", a.reg.Names()))
	for {
		ev, err := lr.Read()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("acme log read: %w", err)
		}
		switch ev.Op {
		case "new":
			start(ev.ID, ev.Name)
		}
	}

	wg.Wait()
	return nil
}
