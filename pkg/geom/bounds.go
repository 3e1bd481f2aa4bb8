package geom

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/diag"
)

// Bounds is an axis-aligned rectangle in world coordinates.
//
// A Bounds is either valid (all fields finite, Min <= Max on both axes)
// or empty. The empty value produced by NewBounds has Min=+Inf and
// Max=-Inf so that the first Update establishes real extents.
type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// NewBounds returns an empty bounds.
func NewBounds() Bounds {
	return Bounds{
		MinX: math.Inf(1), MaxX: math.Inf(-1),
		MinY: math.Inf(1), MaxY: math.Inf(-1),
	}
}

// BoundsOf returns the bounds of the given points. Non-finite points
// are rejected.
func BoundsOf(pts ...Position) (Bounds, error) {
	b := NewBounds()
	for _, p := range pts {
		if err := b.Update(p.X, p.Y); err != nil {
			return NewBounds(), err
		}
	}
	return b, nil
}

// Update widens b to include (x, y).
func (b *Bounds) Update(x, y float64) error {
	if err := diag.CheckFinite("geom.Bounds.Update", []string{"x", "y"}, x, y); err != nil {
		return err
	}
	b.MinX = math.Min(b.MinX, x)
	b.MaxX = math.Max(b.MaxX, x)
	b.MinY = math.Min(b.MinY, y)
	b.MaxY = math.Max(b.MaxY, y)
	return nil
}

// Include is Update for a Position.
func (b *Bounds) Include(p Position) error {
	return b.Update(p.X, p.Y)
}

// Union widens b to include other. Empty bounds are ignored.
func (b *Bounds) Union(other Bounds) {
	if !other.IsValid() {
		return
	}
	if !b.IsValid() {
		*b = other
		return
	}
	b.MinX = math.Min(b.MinX, other.MinX)
	b.MaxX = math.Max(b.MaxX, other.MaxX)
	b.MinY = math.Min(b.MinY, other.MinY)
	b.MaxY = math.Max(b.MaxY, other.MaxY)
}

// IsValid reports whether both axes are finite with min <= max.
func (b Bounds) IsValid() bool {
	return isFinite(b.MinX) && isFinite(b.MaxX) && isFinite(b.MinY) && isFinite(b.MaxY) &&
		b.MinX <= b.MaxX && b.MinY <= b.MaxY
}

// IsEmpty is the negation of IsValid.
func (b Bounds) IsEmpty() bool {
	return !b.IsValid()
}

// Expand returns b padded by margin world units on every side. Empty
// bounds are returned unchanged.
func (b Bounds) Expand(margin float64) (Bounds, error) {
	if err := diag.CheckFinite("geom.Bounds.Expand", []string{"margin"}, margin); err != nil {
		return b, err
	}
	if margin < 0 {
		return b, &diag.ValidationError{Op: "geom.Bounds.Expand", Arg: "margin", Value: margin}
	}
	if !b.IsValid() {
		return b, nil
	}
	return Bounds{
		MinX: b.MinX - margin, MaxX: b.MaxX + margin,
		MinY: b.MinY - margin, MaxY: b.MaxY + margin,
	}, nil
}

// Width returns the X extent, or 0 for empty bounds.
func (b Bounds) Width() float64 {
	if !b.IsValid() {
		return 0
	}
	return b.MaxX - b.MinX
}

// Height returns the Y extent, or 0 for empty bounds.
func (b Bounds) Height() float64 {
	if !b.IsValid() {
		return 0
	}
	return b.MaxY - b.MinY
}

// Center returns the centre point of b.
func (b Bounds) Center() Position {
	return Position{
		X: (b.MinX + b.MaxX) / 2.0,
		Y: (b.MinY + b.MaxY) / 2.0,
	}
}

// Contains checks if a position is within the bounds.
func (b Bounds) Contains(p Position) bool {
	return p.X >= b.MinX && p.X <= b.MaxX &&
		p.Y >= b.MinY && p.Y <= b.MaxY
}

// Intersects checks if two bounds overlap.
func (b Bounds) Intersects(other Bounds) bool {
	return b.MinX <= other.MaxX && b.MaxX >= other.MinX &&
		b.MinY <= other.MaxY && b.MaxY >= other.MinY
}
