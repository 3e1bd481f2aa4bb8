package gcode

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/arc"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/geom"
)

// MoveType is the kind of motion a Move performs.
type MoveType int

const (
	Rapid MoveType = iota // G0
	Cut                   // G1
	Arc                   // G2 / G3
)

func (t MoveType) String() string {
	switch t {
	case Rapid:
		return "rapid"
	case Cut:
		return "cut"
	case Arc:
		return "arc"
	default:
		return "unknown"
	}
}

// Move is one interpreted path segment. Center and Clockwise are only
// meaningful for arcs. Line is the 1-based source line.
type Move struct {
	Type      MoveType
	X, Y      float64
	StartX    float64
	StartY    float64
	CenterX   float64
	CenterY   float64
	Clockwise bool
	Line      int
}

// Path is the ordered list of moves of a program. A new Path is built on
// every parse; existing paths are never modified.
type Path []Move

func (m Move) Start() geom.Position  { return geom.Position{X: m.StartX, Y: m.StartY} }
func (m Move) End() geom.Position    { return geom.Position{X: m.X, Y: m.Y} }
func (m Move) Center() geom.Position { return geom.Position{X: m.CenterX, Y: m.CenterY} }

// IsCutting reports whether the move removes material (G1, G2, G3).
func (m Move) IsCutting() bool {
	return m.Type == Cut || m.Type == Arc
}

// ArcGeometry returns the arc description of an arc move.
func (m Move) ArcGeometry() arc.Arc {
	return arc.Arc{
		Start:      m.Start(),
		End:        m.End(),
		Center:     m.Center(),
		Clockwise:  m.Clockwise,
		FullCircle: geom.ApproxEqual(m.Start(), m.End(), arc.CoincidentDistance),
	}
}

// Length returns the travelled distance of the move.
func (m Move) Length() float64 {
	if m.Type != Arc {
		return geom.Distance(m.Start(), m.End())
	}
	p, _, err := arc.Parameters(m.ArcGeometry(), math.MaxFloat64)
	if err != nil {
		return 0
	}
	return arc.Length(p)
}

// Length returns the summed length of all moves of the given types. With
// no types, all moves are counted.
func (p Path) Length(types ...MoveType) float64 {
	total := 0.0
	for _, m := range p {
		if len(types) > 0 && !containsType(types, m.Type) {
			continue
		}
		total += m.Length()
	}
	return total
}

func containsType(types []MoveType, t MoveType) bool {
	for _, tt := range types {
		if tt == t {
			return true
		}
	}
	return false
}
