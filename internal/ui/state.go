package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/contour"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/gcode"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/watch"
)

// StateSnapshot captures a copy of the state data for rendering without
// requiring the UI to hold locks while laying out widgets.
type StateSnapshot struct {
	File     string
	Result   *gcode.Result
	Contours []contour.Contour
	Warnings []diag.Warning

	// Selected is the highlighted contour, or -1.
	Selected int
	// Revision increases with every loaded document.
	Revision int

	LastError error
	Status    string
	Logs      []string

	LastUpdated time.Time
}

// AppState tracks the mutable state shared between the Gio event loop and
// the goroutines that load and reload the program.
type AppState struct {
	mu sync.RWMutex

	file     string
	result   *gcode.Result
	contours []contour.Contour
	warnings []diag.Warning
	selected int
	revision int

	lastError error
	status    string

	logs     []string
	logLimit int

	lastUpdated time.Time
}

// NewState returns a baseline AppState with safe defaults.
func NewState() *AppState {
	return &AppState{
		selected:    -1,
		logLimit:    200,
		status:      "No file loaded",
		lastUpdated: time.Now(),
	}
}

// Snapshot returns a copy of the mutable state for rendering. Result and
// contours are shared: they are never modified after being stored.
func (s *AppState) Snapshot() StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logCopy := make([]string, len(s.logs))
	copy(logCopy, s.logs)

	return StateSnapshot{
		File:        s.file,
		Result:      s.result,
		Contours:    s.contours,
		Warnings:    s.warnings,
		Selected:    s.selected,
		Revision:    s.revision,
		LastError:   s.lastError,
		Status:      s.status,
		Logs:        logCopy,
		LastUpdated: s.lastUpdated,
	}
}

// Apply stores the outcome of a (re)load. A failed load keeps the
// previous document on screen and records the error.
func (s *AppState) Apply(u watch.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(u)
}

// ApplyCurrent applies u unless ctx, the context of the watcher that
// produced it, is already cancelled. It reports whether u was applied.
func (s *AppState) ApplyCurrent(ctx context.Context, u watch.Update) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	s.applyLocked(u)
	return true
}

func (s *AppState) applyLocked(u watch.Update) {
	s.lastUpdated = time.Now()
	name := filepath.Base(u.File)
	if u.Err != nil {
		s.lastError = u.Err
		s.status = fmt.Sprintf("Failed to load %s", name)
		s.appendLocked(fmt.Sprintf("[ERROR] %v", u.Err))
		return
	}

	s.file = u.File
	s.result = u.Result
	s.contours = u.Contours
	s.warnings = u.Warnings
	s.lastError = nil
	s.revision++
	if s.selected >= len(s.contours) {
		s.selected = -1
	}

	closed := len(contour.Closed(u.Contours))
	s.status = fmt.Sprintf("%s: %d moves, %d contours (%d closed), %d warnings",
		name, len(u.Result.Path), len(u.Contours), closed, len(u.Warnings))
	s.appendLocked(fmt.Sprintf("Loaded %s", u.File))
	for _, w := range u.Warnings {
		s.appendLocked(fmt.Sprintf("[WARN] %s", w.Error()))
	}
}

// Select highlights contour idx; any out-of-range index clears the
// selection.
func (s *AppState) Select(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx < 0 || idx >= len(s.contours) {
		idx = -1
	}
	if s.selected == idx {
		return
	}
	s.selected = idx
	s.lastUpdated = time.Now()
}

// Selected returns the highlighted contour, or -1.
func (s *AppState) Selected() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SetStatus updates the user-facing status message.
func (s *AppState) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.lastUpdated = time.Now()
}

// SetError stores the latest error surfaced to the UI.
func (s *AppState) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err
	s.lastUpdated = time.Now()
}

// AppendLog appends a log message, trimming the oldest entries past the limit.
func (s *AppState) AppendLog(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(msg)
}

func (s *AppState) appendLocked(msg string) {
	s.logs = append(s.logs, msg)
	if s.logLimit > 0 && len(s.logs) > s.logLimit {
		offset := len(s.logs) - s.logLimit
		s.logs = append([]string(nil), s.logs[offset:]...)
	}
	s.lastUpdated = time.Now()
}
