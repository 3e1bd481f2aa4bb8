// Package viewport maps between world coordinates (G-code units, Y up)
// and screen coordinates (pixels, Y down) and owns the zoom/pan/fit
// state of one open document.
package viewport

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/geom"
)

// State is a snapshot of a viewport. Zoom is in pixels per world unit.
// OffsetX and OffsetY are the screen position of the world origin,
// with OffsetY measured up from the bottom edge of the display.
type State struct {
	Zoom    float64
	OffsetX float64
	OffsetY float64
	Width   float64
	Height  float64
}

// IsValid reports whether s can be used for transforms.
func (s State) IsValid() bool {
	return s.Zoom > 0 && !math.IsInf(s.Zoom, 0) &&
		finite(s.OffsetX) && finite(s.OffsetY) &&
		finite(s.Width) && finite(s.Height)
}

// ScreenToWorld converts a screen position to world coordinates.
func ScreenToWorld(sx, sy float64, s State) geom.Position {
	return geom.Position{
		X: (sx - s.OffsetX) / s.Zoom,
		Y: (s.Height - sy - s.OffsetY) / s.Zoom,
	}
}

// WorldToScreen converts a world position to screen coordinates. It is
// the inverse of ScreenToWorld.
func WorldToScreen(wx, wy float64, s State) (float64, float64) {
	return wx*s.Zoom + s.OffsetX, s.Height - (wy*s.Zoom + s.OffsetY)
}

// VisibleBounds returns the world rectangle covered by the display of s.
func (s State) VisibleBounds() geom.Bounds {
	topLeft := ScreenToWorld(0, 0, s)
	bottomRight := ScreenToWorld(s.Width, s.Height, s)
	return geom.Bounds{
		MinX: math.Min(topLeft.X, bottomRight.X),
		MaxX: math.Max(topLeft.X, bottomRight.X),
		MinY: math.Min(topLeft.Y, bottomRight.Y),
		MaxY: math.Max(topLeft.Y, bottomRight.Y),
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
