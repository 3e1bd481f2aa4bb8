package ui

import (
	"gioui.org/io/key"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/viewport"
)

// action is a viewer command bound to a key or a toolbar button.
type action int

const (
	actNone action = iota
	actZoomIn
	actZoomOut
	actFit
	actReset
	actNextContour
	actPrevContour
	actClearSelection
	actQuit
)

// keyAction maps a key press to its action.
func keyAction(name key.Name) action {
	switch name {
	case "+", "=":
		return actZoomIn
	case "-":
		return actZoomOut
	case "F", key.NameSpace:
		return actFit
	case "R":
		return actReset
	case "N", key.NameRightArrow:
		return actNextContour
	case "P", key.NameLeftArrow:
		return actPrevContour
	case "C":
		return actClearSelection
	case "Q", key.NameEscape:
		return actQuit
	}
	return actNone
}

// keyHelp is shown in the status bar.
const keyHelp = "Drag to pan | Scroll/+/- to zoom | F fit | R reset | N/P contours | Q quit"

// cycle steps a contour selection through -1, 0, ..., n-1 and back.
func cycle(cur, n, dir int) int {
	if n <= 0 {
		return -1
	}
	// Shift so that "none" is slot 0.
	slot := (cur + 1 + dir) % (n + 1)
	if slot < 0 {
		slot += n + 1
	}
	return slot - 1
}

// perform applies act to the view and state. It reports whether the
// viewer should close.
func perform(act action, v *viewport.Viewport, state *AppState, snap StateSnapshot) bool {
	switch act {
	case actZoomIn:
		v.ZoomIn()
	case actZoomOut:
		v.ZoomOut()
	case actReset:
		v.Reset()
	case actFit:
		fit(v, snap, snap.Selected)
	case actNextContour, actPrevContour:
		dir := 1
		if act == actPrevContour {
			dir = -1
		}
		next := cycle(snap.Selected, len(snap.Contours), dir)
		state.Select(next)
		fit(v, snap, next)
	case actClearSelection:
		state.Select(-1)
	case actQuit:
		return true
	}
	return false
}

// fit fits the view to contour sel, or to the whole program when sel is
// -1. Empty programs leave the view untouched.
func fit(v *viewport.Viewport, snap StateSnapshot, sel int) {
	if snap.Result == nil {
		return
	}
	b := snap.Result.Bounds
	if sel >= 0 && sel < len(snap.Contours) {
		b = snap.Contours[sel].Bounds(snap.Result.Path)
	}
	if b.IsEmpty() {
		return
	}
	if err := v.FitToBounds(b); err != nil {
		diag.Logger().Warn("ui: fit to bounds", "file", snap.File, "contour", sel, "err", err)
	}
}
