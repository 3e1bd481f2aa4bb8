// Package render turns a parsed toolpath into screen-space polylines
// and draws them to a PNG image or a Gio frame.
package render

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/arc"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/contour"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/gcode"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/viewport"
)

// DefaultArcStep is the longest chord, in pixels, used to draw arcs.
const DefaultArcStep = 2.0

// Polyline is one move projected to screen coordinates.
type Polyline struct {
	Type    gcode.MoveType
	Index   int // index of the move in the path
	Contour int // index of the owning contour, or -1
	Closed  bool
	Points  []geom.Position
}

// Options controls flattening.
type Options struct {
	ArcStep    float64 // max chord length in pixels, 0 for DefaultArcStep
	HideRapids bool
	// Cull drops moves whose world bounds lie outside the display.
	Cull bool
}

// Flatten projects every move of path through s. Arcs are sampled so
// that chords stay within ArcStep pixels. contours may be nil.
func Flatten(path gcode.Path, contours []contour.Contour, s viewport.State, opts Options) []Polyline {
	if !s.IsValid() {
		return nil
	}
	step := opts.ArcStep
	if !(step > 0) {
		step = DefaultArcStep
	}
	// Chord length in world units
	worldStep := step / s.Zoom

	var visible geom.Bounds
	if opts.Cull {
		visible = s.VisibleBounds()
	}

	lines := make([]Polyline, 0, len(path))
	for i, m := range path {
		if opts.HideRapids && m.Type == gcode.Rapid {
			continue
		}
		world, bounds := outline(m, worldStep)
		if opts.Cull && bounds.IsValid() && !bounds.Intersects(visible) {
			continue
		}

		pl := Polyline{Type: m.Type, Index: i, Contour: -1, Points: make([]geom.Position, len(world))}
		if ci := contour.IndexOf(contours, i); ci >= 0 && m.IsCutting() {
			pl.Contour = ci
			pl.Closed = contours[ci].Closed
		}
		for j, p := range world {
			x, y := viewport.WorldToScreen(p.X, p.Y, s)
			pl.Points[j] = geom.Position{X: x, Y: y}
		}
		lines = append(lines, pl)
	}
	return lines
}

// outline returns the world points of m and their bounds.
func outline(m gcode.Move, worldStep float64) ([]geom.Position, geom.Bounds) {
	if m.Type != gcode.Arc {
		pts := []geom.Position{m.Start(), m.End()}
		b, _ := geom.BoundsOf(pts...)
		return pts, b
	}
	a := m.ArcGeometry()
	p, _, err := arc.Parameters(a, math.MaxFloat64)
	if err != nil {
		pts := []geom.Position{m.Start(), m.End()}
		return pts, geom.NewBounds()
	}
	return arc.Sample(a, p, worldStep), arc.BoundsFor(a, p)
}
