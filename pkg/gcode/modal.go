package gcode

import (
	"math"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/arc"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/geom"
)

// OffsetMode selects how the I and J words of G2/G3 are interpreted.
// Controllers disagree on this, so it is chosen by the caller.
type OffsetMode int

const (
	// OffsetFollowDistance interprets I/J exactly like X/Y: absolute
	// under G90, relative to the arc start under G91.
	OffsetFollowDistance OffsetMode = iota
	// OffsetIncremental always treats I/J as relative to the arc start.
	OffsetIncremental
	// OffsetAbsolute always treats I/J as absolute centre coordinates.
	OffsetAbsolute
)

func (m OffsetMode) String() string {
	switch m {
	case OffsetFollowDistance:
		return "follow"
	case OffsetIncremental:
		return "incremental"
	case OffsetAbsolute:
		return "absolute"
	default:
		return "unknown"
	}
}

// ParseOffsetMode parses the names returned by OffsetMode.String.
func ParseOffsetMode(s string) (OffsetMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "follow":
		return OffsetFollowDistance, true
	case "incremental", "relative":
		return OffsetIncremental, true
	case "absolute":
		return OffsetAbsolute, true
	}
	return OffsetFollowDistance, false
}

// ModalState is the interpreter state carried from block to block.
// It is owned by whoever is walking the program and is never shared.
type ModalState struct {
	Absolute   bool       // G90 (true) / G91 (false)
	ArcOffsets OffsetMode // I/J interpretation, changed by G90.1 / G91.1
	Motion     MoveType   // last motion word
	Clockwise  bool       // G2 (true) or G3 (false) when Motion is Arc
	HasMotion  bool       // false until the first G0-G3
	X, Y       float64    // cursor position
}

// NewModalState returns the power-on state: absolute positioning, no
// motion mode, cursor at the origin.
func NewModalState(offsets OffsetMode) ModalState {
	return ModalState{Absolute: true, ArcOffsets: offsets}
}

// Position returns the cursor.
func (s ModalState) Position() geom.Position {
	return geom.Position{X: s.X, Y: s.Y}
}

// Step is the outcome of applying one block.
type Step struct {
	Move   Move
	Moved  bool        // Move is set
	Bounds geom.Bounds // bounds of Move when Moved
	Length float64     // length of Move when Moved
	Codes  []string    // normalised G and M codes seen in the block
	Words  int         // number of words in the block
}

// decoded holds the validated contents of a block before any state is
// changed.
type decoded struct {
	motion      MoveType
	clockwise   bool
	hasMotion   bool
	absolute    *bool
	arcAbsolute *bool
	x, y, i, j  *float64
	hasR        bool
	codes       []string
}

// Apply interprets b at source line line and advances s. A block that
// raises a syntax warning leaves s untouched. tol is the arc radius
// tolerance.
func (s *ModalState) Apply(b *Block, line int, tol float64) (Step, []diag.Warning) {
	d, w := decode(b, line)
	step := Step{Codes: d.codes, Words: len(b.Words)}
	if w != nil {
		return step, []diag.Warning{*w}
	}

	hasAxes := d.x != nil || d.y != nil
	hasOffsets := d.i != nil || d.j != nil
	motion, clockwise, hasMotion := s.Motion, s.Clockwise, s.HasMotion
	if d.hasMotion {
		motion, clockwise, hasMotion = d.motion, d.clockwise, true
	}
	if (hasAxes || hasOffsets) && !hasMotion {
		return step, []diag.Warning{diag.Syntaxf(line, "coordinates without an active motion mode")}
	}
	if motion == Arc && (hasAxes || hasOffsets) {
		if d.hasR {
			return step, []diag.Warning{diag.Syntaxf(line, "R-format arcs are not supported")}
		}
		if !hasOffsets {
			return step, []diag.Warning{diag.Syntaxf(line, "arc without I/J centre offsets")}
		}
	}

	// Modal words take effect before the motion of the same block.
	next := *s
	if d.absolute != nil {
		next.Absolute = *d.absolute
	}
	if d.arcAbsolute != nil {
		if *d.arcAbsolute {
			next.ArcOffsets = OffsetAbsolute
		} else {
			next.ArcOffsets = OffsetIncremental
		}
	}
	next.Motion, next.Clockwise, next.HasMotion = motion, clockwise, hasMotion
	// An arc with only I/J is a full circle; a linear move needs an axis.
	if !hasAxes && !(motion == Arc && hasOffsets) {
		*s = next
		return step, nil
	}

	start := next.Position()
	end := geom.Position{X: next.axis(next.X, d.x), Y: next.axis(next.Y, d.y)}
	if !end.IsFinite() {
		return step, []diag.Warning{diag.Syntaxf(line, "target position overflows")}
	}
	m := Move{
		Type:   motion,
		X:      end.X,
		Y:      end.Y,
		StartX: start.X,
		StartY: start.Y,
		Line:   line,
	}

	var warnings []diag.Warning
	switch motion {
	case Arc:
		m.Clockwise = clockwise
		center := next.center(start, d.i, d.j)
		m.CenterX, m.CenterY = center.X, center.Y
		a := m.ArcGeometry()
		p, ws, err := arc.Parameters(a, tol)
		if err != nil {
			return step, []diag.Warning{diag.Syntaxf(line, "%v", err)}
		}
		warnings = diag.AtLine(ws, line)
		step.Bounds = arc.BoundsFor(a, p)
		step.Length = arc.Length(p)
	default:
		step.Bounds = geom.NewBounds()
		step.Bounds.Include(end)
		step.Length = geom.Distance(start, end)
	}

	next.X, next.Y = end.X, end.Y
	*s = next
	step.Move = m
	step.Moved = true
	return step, warnings
}

// axis resolves a target coordinate for the current distance mode.
func (s *ModalState) axis(cur float64, v *float64) float64 {
	if v == nil {
		return cur
	}
	if s.Absolute {
		return *v
	}
	return cur + *v
}

// center resolves the arc centre from I/J. Missing offsets are zero in
// incremental form and the start coordinate in absolute form.
func (s *ModalState) center(start geom.Position, i, j *float64) geom.Position {
	absolute := s.ArcOffsets == OffsetAbsolute ||
		(s.ArcOffsets == OffsetFollowDistance && s.Absolute)
	c := start
	if absolute {
		if i != nil {
			c.X = *i
		}
		if j != nil {
			c.Y = *j
		}
		return c
	}
	if i != nil {
		c.X += *i
	}
	if j != nil {
		c.Y += *j
	}
	return c
}

func decode(b *Block, line int) (decoded, *diag.Warning) {
	var d decoded
	for k, w := range b.Words {
		letter := strings.ToUpper(w.Letter)
		if w.Value == nil {
			warn := diag.Syntaxf(line, "missing value for %s", letter)
			return d, &warn
		}
		if k > 0 && w.exponentOf(b.Words[k-1]) {
			prev := b.Words[k-1]
			warn := diag.Syntaxf(line, "exponent notation %s%s%s%s is not supported",
				strings.ToUpper(prev.Letter), *prev.Value, w.Letter, *w.Value)
			return d, &warn
		}
		v, err := strconv.ParseFloat(*w.Value, 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			warn := diag.Syntaxf(line, "non-finite value %s%s", letter, *w.Value)
			return d, &warn
		}
		switch letter {
		case "G":
			code := w.Code()
			d.codes = append(d.codes, code)
			if warn := d.applyG(code, line); warn != nil {
				return d, warn
			}
		case "M":
			d.codes = append(d.codes, w.Code())
		case "X":
			d.x = &v
		case "Y":
			d.y = &v
		case "I":
			d.i = &v
		case "J":
			d.j = &v
		case "R":
			d.hasR = true
		}
	}
	return d, nil
}

func (d *decoded) applyG(code string, line int) *diag.Warning {
	set := func(m MoveType, cw bool) *diag.Warning {
		if d.hasMotion {
			warn := diag.Syntaxf(line, "conflicting motion codes in one block")
			return &warn
		}
		d.motion, d.hasMotion, d.clockwise = m, true, cw
		return nil
	}
	t, f := true, false
	switch code {
	case "G0":
		return set(Rapid, false)
	case "G1":
		return set(Cut, false)
	case "G2":
		return set(Arc, true)
	case "G3":
		return set(Arc, false)
	case "G90":
		d.absolute = &t
	case "G91":
		d.absolute = &f
	case "G90.1":
		d.arcAbsolute = &t
	case "G91.1":
		d.arcAbsolute = &f
	}
	return nil
}
