package ui

import (
	"context"
	"os"

	"gioui.org/app"
	"gioui.org/unit"

	"github.com/OpenTraceLab/OpenTraceEDM/internal/config"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/watch"
)

// Options configures the viewer.
type Options struct {
	File   string // program to open, may be empty
	Config *config.Config
	Title  string
}

// Run launches the Gio UI and blocks until the window closes. When a
// file is given it is loaded immediately and reloaded whenever it
// changes on disk.
func Run(opts Options) error {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Title == "" {
		opts.Title = "EDM Path Viewer"
	}
	state := NewState()

	go func() {
		w := new(app.Window)
		w.Option(app.Title(opts.Title), app.Size(unit.Dp(1200), unit.Dp(800)))
		ui := New(w, state, opts.Config)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if opts.File != "" {
			if err := ui.Open(ctx, opts.File); err != nil {
				state.SetError(err)
				state.AppendLog(err.Error())
			}
		}
		if err := ui.Run(); err != nil {
			diag.Logger().Error("ui: window closed with error", "err", err)
		}
		os.Exit(0)
	}()

	app.Main()
	return nil
}

// follow forwards watcher updates into the state until the watcher
// stops, invalidating the window after each one. Updates still queued
// when ctx is cancelled belong to a file that is no longer open and are
// dropped.
func follow(ctx context.Context, wt *watch.Watcher, state *AppState, invalidate func()) {
	go func() {
		if err := wt.Run(ctx); err != nil && ctx.Err() == nil {
			state.SetError(err)
			state.AppendLog(err.Error())
			invalidate()
		}
	}()
	for u := range wt.Updates() {
		if !state.ApplyCurrent(ctx, u) {
			diag.Logger().Debug("ui: dropped update from closed watcher", "file", u.File)
			continue
		}
		invalidate()
	}
}
