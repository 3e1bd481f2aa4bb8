// Package watch reparses a G-code file whenever it changes on disk and
// delivers the results on a channel.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/contour"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/gcode"
)

// DefaultDebounce coalesces the burst of events an editor save makes.
const DefaultDebounce = 100 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Parser   gcode.Options
	Contour  contour.Options
	Debounce time.Duration // 0 means DefaultDebounce
}

// Update is the outcome of one reload. Err is set when the file could
// not be read; Result and Contours are nil then.
type Update struct {
	File     string
	Result   *gcode.Result
	Contours []contour.Contour
	Warnings []diag.Warning // parser warnings followed by contour warnings
	Err      error
}

// Watcher follows one file.
type Watcher struct {
	file    string
	opts    Options
	parser  *gcode.Parser
	fsw     *fsnotify.Watcher
	updates chan Update
}

// New creates a watcher for file. The parent directory is watched so
// that editors that replace the file on save are followed.
func New(file string, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	parser, err := gcode.NewParser(opts.Parser)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch: %w", err)
	}
	return &Watcher{
		file:    abs,
		opts:    opts,
		parser:  parser,
		fsw:     fsw,
		updates: make(chan Update, 1),
	}, nil
}

// File returns the absolute path being watched.
func (w *Watcher) File() string {
	return w.file
}

// Updates returns the channel results are delivered on. It is closed
// when Run returns.
func (w *Watcher) Updates() <-chan Update {
	return w.updates
}

// Load parses the file once.
func (w *Watcher) Load() Update {
	u := Update{File: w.file}
	res, err := w.parser.ParseFile(w.file)
	if err != nil {
		u.Err = err
		return u
	}
	u.Result = res
	cs, ws := contour.Detect(res.Path, w.opts.Contour)
	u.Contours = cs
	u.Warnings = append(append([]diag.Warning(nil), res.Warnings...), ws...)
	return u
}

// Run delivers an initial Update, then one per change of the file,
// until ctx is cancelled. It closes the fsnotify watcher and the
// updates channel before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.updates)
	defer w.fsw.Close()

	if !w.send(ctx, w.Load()) {
		return ctx.Err()
	}

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			if filepath.Clean(event.Name) != w.file {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			diag.Logger().Debug("watch: file event", "file", w.file, "op", event.Op.String())
			timer.Reset(w.opts.Debounce)

		case <-timer.C:
			u := w.Load()
			if u.Err != nil {
				diag.Logger().Warn("watch: reload failed", "file", w.file, "err", u.Err)
			} else {
				diag.Logger().Debug("watch: reloaded", "file", w.file,
					"moves", len(u.Result.Path), "contours", len(u.Contours))
			}
			if !w.send(ctx, u) {
				return ctx.Err()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			diag.Logger().Warn("watch: fsnotify error", "err", err)
		}
	}
}

// send delivers u, replacing a pending update nobody has read yet.
// Nothing is sent once ctx is cancelled.
func (w *Watcher) send(ctx context.Context, u Update) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-w.updates:
	default:
	}
	select {
	case w.updates <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
