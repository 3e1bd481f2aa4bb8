// Package arc computes circular arc geometry for G2/G3 moves: radius and
// angles, points on the arc, swept bounds and flattening.
//
// Angles are in radians, measured counterclockwise from +X in world
// coordinates. A clockwise arc sweeps toward decreasing angles.
package arc

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/geom"
)

const (
	// DefaultRadiusTolerance is the largest accepted difference, in world
	// units, between the start radius and the end radius of an arc
	// before a geometry warning is raised. Programs written with three
	// or four decimals routinely differ by a few microns.
	DefaultRadiusTolerance = 0.005

	// ZeroRadius is the radius below which an arc collapses to a point.
	ZeroRadius = 1e-9

	// AngleEpsilon is the angular slack used for span membership and for
	// deciding that start and end angles coincide.
	AngleEpsilon = 1e-9

	// CoincidentDistance is the distance below which the start and end
	// of a FullCircle arc are the same point.
	CoincidentDistance = 1e-7

	twoPi = 2 * math.Pi
)

// Arc describes one circular move. FullCircle asks for a 360 degree
// sweep when Start and End coincide; without it such an arc has no
// sweep and raises a warning.
type Arc struct {
	Start      geom.Position
	End        geom.Position
	Center     geom.Position
	Clockwise  bool
	FullCircle bool
}

// Params holds the derived arc parameters. Span is the unsigned swept
// angle in [0, 2π]; the direction is given by the arc.
type Params struct {
	Radius     float64
	StartAngle float64
	EndAngle   float64
	Span       float64
}

// Parameters computes the radius and angles of a. The start radius is
// canonical; an end radius that differs by more than tol produces a
// warning but the result still describes a single circle.
func Parameters(a Arc, tol float64) (Params, []diag.Warning, error) {
	if err := validate("arc.Parameters", a, tol); err != nil {
		return Params{}, nil, err
	}

	var warnings []diag.Warning
	radius := geom.Distance(a.Start, a.Center)
	if radius < ZeroRadius {
		warnings = append(warnings, diag.Geometryf(0, "zero-radius arc at (%.4f, %.4f) degenerates to a point", a.Center.X, a.Center.Y))
		return Params{Radius: 0}, warnings, nil
	}

	endRadius := geom.Distance(a.End, a.Center)
	if diff := math.Abs(endRadius - radius); diff > tol {
		warnings = append(warnings, diag.Geometryf(0, "end radius %.6g differs from start radius %.6g by %.6g", endRadius, radius, diff))
	}

	p := Params{
		Radius:     radius,
		StartAngle: math.Atan2(a.Start.Y-a.Center.Y, a.Start.X-a.Center.X),
		EndAngle:   math.Atan2(a.End.Y-a.Center.Y, a.End.X-a.Center.X),
	}
	p.Span = sweep(p.StartAngle, p.EndAngle, a.Clockwise)
	coincident := p.Span < AngleEpsilon || twoPi-p.Span < AngleEpsilon
	if a.FullCircle && geom.ApproxEqual(a.Start, a.End, CoincidentDistance) {
		coincident = true
	}
	if coincident {
		if a.FullCircle {
			p.Span = twoPi
		} else {
			p.Span = 0
			warnings = append(warnings, diag.Geometryf(0, "arc start and end coincide; zero-length span"))
		}
	}
	return p, warnings, nil
}

// PointOnArc returns the point at angle on the circle of the given
// centre and radius.
func PointOnArc(center geom.Position, radius, angle float64) geom.Position {
	sin, cos := math.Sincos(angle)
	return geom.Position{
		X: center.X + radius*cos,
		Y: center.Y + radius*sin,
	}
}

// AngleInSpan reports whether angle lies on the sweep from start to end
// in the given direction. All angles are normalised to [0, 2π) first.
func AngleInSpan(angle, start, end float64, clockwise bool) bool {
	return inSweep(angle, start, sweep(start, end, clockwise), clockwise)
}

// Bounds returns the bounding box of a: both endpoints plus every
// axis-aligned extreme (0, π/2, π, 3π/2) lying inside the sweep.
func Bounds(a Arc, tol float64) (geom.Bounds, []diag.Warning, error) {
	p, warnings, err := Parameters(a, tol)
	if err != nil {
		return geom.NewBounds(), nil, err
	}
	return BoundsFor(a, p), warnings, nil
}

// BoundsFor is Bounds with parameters already computed by Parameters.
func BoundsFor(a Arc, p Params) geom.Bounds {
	b := geom.NewBounds()
	b.Include(a.Start)
	b.Include(a.End)
	if p.Radius < ZeroRadius || p.Span == 0 {
		return b
	}
	for k := 0; k < 4; k++ {
		angle := float64(k) * math.Pi / 2
		if inSweep(angle, p.StartAngle, p.Span, a.Clockwise) {
			b.Include(PointOnArc(a.Center, p.Radius, angle))
		}
	}
	return b
}

// Length returns the arc length for p.
func Length(p Params) float64 {
	return p.Radius * p.Span
}

// Sample flattens a into points no more than maxStep apart along the
// arc. The first and last points are exactly a.Start and a.End.
func Sample(a Arc, p Params, maxStep float64) []geom.Position {
	if p.Radius < ZeroRadius || p.Span == 0 || !(maxStep > 0) {
		return []geom.Position{a.Start, a.End}
	}
	n := int(math.Ceil(Length(p) / maxStep))
	// Keep at least a few segments per quadrant so small arcs stay round.
	if floor := int(math.Ceil(p.Span / (math.Pi / 8))); n < floor {
		n = floor
	}
	if n > maxSamples {
		n = maxSamples
	}
	step := p.Span / float64(n)
	if a.Clockwise {
		step = -step
	}
	pts := make([]geom.Position, 0, n+1)
	pts = append(pts, a.Start)
	for i := 1; i < n; i++ {
		pts = append(pts, PointOnArc(a.Center, p.Radius, p.StartAngle+float64(i)*step))
	}
	return append(pts, a.End)
}

const maxSamples = 4096

// normalize maps angle into [0, 2π).
func normalize(angle float64) float64 {
	a := math.Mod(angle, twoPi)
	if a < 0 {
		a += twoPi
	}
	if a >= twoPi {
		a = 0
	}
	return a
}

// sweep returns the unsigned angle travelled from start to end.
func sweep(start, end float64, clockwise bool) float64 {
	if clockwise {
		return normalize(start - end)
	}
	return normalize(end - start)
}

func inSweep(angle, start, span float64, clockwise bool) bool {
	if span >= twoPi-AngleEpsilon {
		return true
	}
	var d float64
	if clockwise {
		d = normalize(start - angle)
	} else {
		d = normalize(angle - start)
	}
	return d <= span+AngleEpsilon || twoPi-d <= AngleEpsilon
}

func validate(op string, a Arc, tol float64) error {
	if err := diag.CheckFinite(op,
		[]string{"startX", "startY", "endX", "endY", "centerX", "centerY", "tolerance"},
		a.Start.X, a.Start.Y, a.End.X, a.End.Y, a.Center.X, a.Center.Y, tol); err != nil {
		return err
	}
	if tol < 0 {
		return &diag.ValidationError{Op: op, Arg: "tolerance", Value: tol}
	}
	return nil
}
