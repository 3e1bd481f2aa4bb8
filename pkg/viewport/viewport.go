package viewport

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/geom"
)

const (
	MinZoom          = 0.001
	MaxZoom          = 10000.0
	ZoomStep         = 1.2
	FitPadding       = 0.9 // share of the display the fitted bounds may use
	DefaultFitMargin = 1.0 // world units added around bounds before fitting
)

// Mode tells how the current state came about.
type Mode int

const (
	ModeDefault  Mode = iota // zoom 1, origin at the bottom-left corner
	ModeAdjusted             // user pan or zoom
	ModeFitted               // result of FitToBounds
)

func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeAdjusted:
		return "adjusted"
	case ModeFitted:
		return "fitted"
	default:
		return "unknown"
	}
}

// Viewport owns the zoom and offset of one document view. It is not
// safe for concurrent use; exactly one consumer drives it.
type Viewport struct {
	state State
	mode  Mode

	minZoom  float64
	maxZoom  float64
	step     float64
	padding  float64
	margin   float64
	onChange func(State)
}

// Option configures a Viewport. Options with out-of-range values are
// ignored.
type Option func(*Viewport)

// WithZoomRange sets the zoom clamp range.
func WithZoomRange(lo, hi float64) Option {
	return func(v *Viewport) {
		if lo > 0 && hi >= lo && !math.IsInf(hi, 0) {
			v.minZoom, v.maxZoom = lo, hi
		}
	}
}

// WithZoomStep sets the factor applied by ZoomIn and ZoomOut.
func WithZoomStep(step float64) Option {
	return func(v *Viewport) {
		if step > 1 && finite(step) {
			v.step = step
		}
	}
}

// WithFitPadding sets the share of the display used by FitToBounds.
func WithFitPadding(padding float64) Option {
	return func(v *Viewport) {
		if padding > 0 && padding <= 1 {
			v.padding = padding
		}
	}
}

// WithMargin sets the world margin added around bounds before fitting.
func WithMargin(margin float64) Option {
	return func(v *Viewport) {
		if margin >= 0 && finite(margin) {
			v.margin = margin
		}
	}
}

// WithOnChange registers fn to be called with the new state after
// every change.
func WithOnChange(fn func(State)) Option {
	return func(v *Viewport) {
		v.onChange = fn
	}
}

// New creates a viewport of the given display size in the default
// state.
func New(width, height float64, opts ...Option) *Viewport {
	v := &Viewport{
		minZoom: MinZoom,
		maxZoom: MaxZoom,
		step:    ZoomStep,
		padding: FitPadding,
		margin:  DefaultFitMargin,
	}
	for _, opt := range opts {
		opt(v)
	}
	if !finite(width) || width < 0 {
		width = 0
	}
	if !finite(height) || height < 0 {
		height = 0
	}
	v.state = State{Zoom: v.clamp(1), Width: width, Height: height}
	return v
}

// State returns a copy of the current state.
func (v *Viewport) State() State {
	return v.state
}

// Mode returns how the current state was reached.
func (v *Viewport) Mode() Mode {
	return v.mode
}

// Zoom returns the current zoom in pixels per world unit.
func (v *Viewport) Zoom() float64 {
	return v.state.Zoom
}

// ScreenToWorld converts a screen position using the current state.
func (v *Viewport) ScreenToWorld(sx, sy float64) geom.Position {
	return ScreenToWorld(sx, sy, v.state)
}

// WorldToScreen converts a world position using the current state.
func (v *Viewport) WorldToScreen(p geom.Position) (float64, float64) {
	return WorldToScreen(p.X, p.Y, v.state)
}

// ZoomIn zooms by one step around the display centre.
func (v *Viewport) ZoomIn() {
	v.zoomAround(v.state.Width/2, v.state.Height/2, v.state.Zoom*v.step)
}

// ZoomOut zooms out by one step around the display centre.
func (v *Viewport) ZoomOut() {
	v.zoomAround(v.state.Width/2, v.state.Height/2, v.state.Zoom/v.step)
}

// ZoomAtPoint zooms one step in (direction > 0) or out (direction < 0)
// keeping the world point under (sx, sy) fixed on screen. A zero
// direction does nothing.
func (v *Viewport) ZoomAtPoint(sx, sy float64, direction int) {
	switch {
	case direction > 0:
		v.zoomAround(sx, sy, v.state.Zoom*v.step)
	case direction < 0:
		v.zoomAround(sx, sy, v.state.Zoom/v.step)
	}
}

// ZoomAt multiplies the zoom by factor keeping the world point under
// (sx, sy) fixed. factor > 1 zooms in.
func (v *Viewport) ZoomAt(sx, sy, factor float64) error {
	if err := diag.CheckFinite("viewport.ZoomAt", []string{"sx", "sy", "factor"}, sx, sy, factor); err != nil {
		return err
	}
	if factor <= 0 {
		return &diag.ValidationError{Op: "viewport.ZoomAt", Arg: "factor", Value: factor}
	}
	v.zoomAround(sx, sy, v.state.Zoom*factor)
	return nil
}

func (v *Viewport) zoomAround(sx, sy, zoom float64) {
	if !finite(sx) || !finite(sy) {
		return
	}
	// World position under the cursor before zoom
	w := ScreenToWorld(sx, sy, v.state)

	v.state.Zoom = v.clamp(zoom)

	// Solve the offsets so that w maps back onto (sx, sy)
	v.state.OffsetX = sx - w.X*v.state.Zoom
	v.state.OffsetY = v.state.Height - sy - w.Y*v.state.Zoom
	v.changed(ModeAdjusted)
}

// Pan moves the view by screen pixel deltas. Positive dy moves the
// content down the screen.
func (v *Viewport) Pan(dx, dy float64) {
	if !finite(dx) || !finite(dy) {
		return
	}
	v.state.OffsetX += dx
	v.state.OffsetY -= dy
	v.changed(ModeAdjusted)
}

// FitToBounds zooms and centres the view so b, expanded by the
// configured margin, fits the display with padding. Bounds with zero
// width and height keep the current zoom and centre the point; one zero
// dimension fits on the other. Invalid bounds or a display without area
// leave the state unchanged and return a ValidationError.
func (v *Viewport) FitToBounds(b geom.Bounds) error {
	if !b.IsValid() {
		return &diag.ValidationError{Op: "viewport.FitToBounds", Arg: "bounds", Value: b.Width()}
	}
	if v.state.Width <= 0 {
		return &diag.ValidationError{Op: "viewport.FitToBounds", Arg: "display width", Value: v.state.Width}
	}
	if v.state.Height <= 0 {
		return &diag.ValidationError{Op: "viewport.FitToBounds", Arg: "display height", Value: v.state.Height}
	}
	b, err := b.Expand(v.margin)
	if err != nil {
		return err
	}

	width, height := b.Width(), b.Height()
	zoom := v.state.Zoom
	switch {
	case width > 0 && height > 0:
		zoom = math.Min(v.state.Width/width, v.state.Height/height) * v.padding
	case width > 0:
		zoom = v.state.Width / width * v.padding
	case height > 0:
		zoom = v.state.Height / height * v.padding
	}
	zoom = v.clamp(zoom)

	c := b.Center()
	v.state.Zoom = zoom
	v.state.OffsetX = v.state.Width/2 - c.X*zoom
	v.state.OffsetY = v.state.Height/2 - c.Y*zoom
	v.changed(ModeFitted)
	return nil
}

// Reset restores zoom 1 with the world origin at the bottom-left corner.
func (v *Viewport) Reset() {
	v.state.Zoom = v.clamp(1)
	v.state.OffsetX = 0
	v.state.OffsetY = 0
	v.changed(ModeDefault)
}

// SetDisplaySize updates the display dimensions. Zoom and offsets are
// kept, so the world point at the bottom-left corner stays in place.
func (v *Viewport) SetDisplaySize(width, height float64) error {
	if err := diag.CheckFinite("viewport.SetDisplaySize", []string{"width", "height"}, width, height); err != nil {
		return err
	}
	if width < 0 {
		return &diag.ValidationError{Op: "viewport.SetDisplaySize", Arg: "width", Value: width}
	}
	if height < 0 {
		return &diag.ValidationError{Op: "viewport.SetDisplaySize", Arg: "height", Value: height}
	}
	if width == v.state.Width && height == v.state.Height {
		return nil
	}
	v.state.Width = width
	v.state.Height = height
	v.changed(v.mode)
	return nil
}

// VisibleBounds returns the world rectangle covered by the display.
// Useful for culling off-screen moves.
func (v *Viewport) VisibleBounds() geom.Bounds {
	return v.state.VisibleBounds()
}

func (v *Viewport) clamp(zoom float64) float64 {
	if zoom < v.minZoom || math.IsNaN(zoom) {
		return v.minZoom
	}
	if zoom > v.maxZoom {
		return v.maxZoom
	}
	return zoom
}

func (v *Viewport) changed(mode Mode) {
	v.mode = mode
	if v.onChange != nil {
		v.onChange(v.state)
	}
}
