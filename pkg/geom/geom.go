// Package geom provides the 2D value types shared by the toolpath
// packages: positions in world units and axis-aligned bounds.
package geom

import "math"

// Position is a point in world coordinates (program units, usually mm).
// Y increases upward.
type Position struct {
	X float64
	Y float64
}

// Pt is shorthand for Position{X: x, Y: y}.
func Pt(x, y float64) Position {
	return Position{X: x, Y: y}
}

// Add returns p+q.
func (p Position) Add(q Position) Position {
	return Position{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Position) Sub(q Position) Position {
	return Position{X: p.X - q.X, Y: p.Y - q.Y}
}

// IsFinite reports whether both coordinates are finite.
func (p Position) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Position) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// ApproxEqual reports whether a and b are within eps of each other on
// both axes.
func ApproxEqual(a, b Position, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
