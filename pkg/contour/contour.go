// Package contour groups a parsed toolpath into contours: maximal runs
// of moves that return to where they started.
package contour

import (
	"fmt"
	"math"
	"sort"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/arc"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/gcode"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/geom"
)

const (
	// DefaultEpsilon is the distance within which a run is considered
	// back at its start. Relative programs accumulate rounding error, so
	// exact comparison is never used.
	DefaultEpsilon = 1e-6

	// DefaultNearClosure is the gap below which an open run is reported
	// as an ambiguous closure.
	DefaultNearClosure = 1e-3
)

// Contour is a run of consecutive moves holding at least one cutting
// move. StartIndex and EndIndex are inclusive indexes into the path.
type Contour struct {
	StartIndex int
	EndIndex   int
	StartCoord geom.Position
	EndCoord   geom.Position
	Length     float64
	Closed     bool
}

// Moves returns the number of moves in c.
func (c Contour) Moves() int {
	return c.EndIndex - c.StartIndex + 1
}

// Gap returns the distance between the end and the start of c.
func (c Contour) Gap() float64 {
	return geom.Distance(c.StartCoord, c.EndCoord)
}

func (c Contour) String() string {
	state := "open"
	if c.Closed {
		state = "closed"
	}
	return fmt.Sprintf("%s contour moves %d-%d (%.4f, %.4f) length %.4f",
		state, c.StartIndex, c.EndIndex, c.StartCoord.X, c.StartCoord.Y, c.Length)
}

// Bounds returns the extent of the moves of c in path, arcs included.
func (c Contour) Bounds(path gcode.Path) geom.Bounds {
	b := geom.NewBounds()
	if c.StartIndex < 0 || c.EndIndex >= len(path) {
		return b
	}
	for _, m := range path[c.StartIndex : c.EndIndex+1] {
		if m.Type == gcode.Arc {
			if ab, _, err := arc.Bounds(m.ArcGeometry(), math.MaxFloat64); err == nil {
				b.Union(ab)
				continue
			}
		}
		mb, err := geom.BoundsOf(m.Start(), m.End())
		if err == nil {
			b.Union(mb)
		}
	}
	return b
}

// Options tunes closure detection.
type Options struct {
	// Epsilon is the closure tolerance. Zero, negative and NaN mean
	// DefaultEpsilon.
	Epsilon float64
	// NearClosure is the largest gap of an open run that raises an
	// ambiguous closure warning. Zero means DefaultNearClosure;
	// negative disables the warning.
	NearClosure float64
	// SplitAtRapids ends the current run at every rapid and keeps rapids
	// out of contours, grouping only uninterrupted cuts.
	SplitAtRapids bool
}

// DefaultOptions returns the default tolerances.
func DefaultOptions() Options {
	return Options{Epsilon: DefaultEpsilon, NearClosure: DefaultNearClosure}
}

func (o Options) withDefaults() Options {
	if !(o.Epsilon > 0) {
		o.Epsilon = DefaultEpsilon
	}
	if o.NearClosure == 0 || math.IsNaN(o.NearClosure) {
		o.NearClosure = DefaultNearClosure
	}
	return o
}

// run is the candidate contour being accumulated. outer starts at the
// first move of the run, inner at its first cutting move; they differ
// only when the run opens with rapids. last is inner as of the latest
// cutting move.
type run struct {
	active  bool
	cutting bool
	outer   Contour
	inner   Contour
	last    Contour
}

func (c *Contour) extend(i int, m gcode.Move) {
	c.EndIndex = i
	c.EndCoord = m.End()
	c.Length += m.Length()
}

// returned reports whether c travelled a nonzero distance and ended
// within eps of its start.
func (c Contour) returned(eps float64) bool {
	return c.Length > eps && geom.ApproxEqual(c.EndCoord, c.StartCoord, eps)
}

// closure returns the contour closed by the latest move, trying the
// first cut before the leading rapids.
func (r *run) closure(eps float64) (Contour, bool) {
	if r.inner.returned(eps) {
		return r.inner, true
	}
	if r.outer.StartIndex < r.inner.StartIndex && r.outer.returned(eps) {
		return r.outer, true
	}
	return Contour{}, false
}

// Detect splits path into contours in a single pass. Rapids stay in
// the current run unless opts.SplitAtRapids is set, but a contour holds
// at least one cutting move. A run closes on the first cutting move
// that brings the cursor back within Epsilon of where it started after
// a nonzero distance. A run
// that opens with rapids may close at the start of its first move or
// at the start of its first cut. A run that never closes is still
// reported, with Closed false, from its first to its last cutting move.
func Detect(path gcode.Path, opts Options) ([]Contour, []diag.Warning) {
	opts = opts.withDefaults()

	var (
		contours []Contour
		warnings []diag.Warning
		cur      run
	)
	flush := func() {
		if !cur.cutting {
			cur = run{}
			return
		}
		c := cur.last
		if gap := c.Gap(); opts.NearClosure > 0 && gap <= opts.NearClosure && c.Length > opts.Epsilon {
			warnings = append(warnings, diag.Geometryf(path[c.EndIndex].Line,
				"ambiguous contour closure: moves %d-%d end %.3g from their start", c.StartIndex, c.EndIndex, gap))
		}
		contours = append(contours, c)
		cur = run{}
	}

	for i, m := range path {
		cutting := m.IsCutting()
		if !cutting && opts.SplitAtRapids {
			flush()
			continue
		}
		if !cur.active {
			cur = run{active: true, outer: Contour{StartIndex: i, StartCoord: m.Start()}}
		}
		if cutting && !cur.cutting {
			cur.cutting = true
			cur.inner = Contour{StartIndex: i, StartCoord: m.Start()}
		}
		cur.outer.extend(i, m)
		if !cur.cutting {
			continue
		}
		cur.inner.extend(i, m)
		if !cutting {
			continue
		}
		cur.last = cur.inner

		if c, ok := cur.closure(opts.Epsilon); ok {
			c.Closed = true
			contours = append(contours, c)
			cur = run{}
		}
	}
	flush()

	diag.Logger().Debug("contour: detected contours",
		"moves", len(path),
		"contours", len(contours),
		"warnings", len(warnings))
	return contours, warnings
}

// DetectLines parses lines with gopts and detects contours on the
// resulting path. Parser warnings are returned ahead of contour
// warnings. The error is only non-nil for invalid parser options.
func DetectLines(lines []string, gopts gcode.Options, opts Options) ([]Contour, []diag.Warning, error) {
	res, err := gcode.ParseLines(lines, gopts)
	if err != nil {
		return nil, nil, fmt.Errorf("contour: %w", err)
	}
	contours, warnings := Detect(res.Path, opts)
	return contours, append(res.Warnings, warnings...), nil
}

// Closed returns only the closed contours of cs.
func Closed(cs []Contour) []Contour {
	var out []Contour
	for _, c := range cs {
		if c.Closed {
			out = append(out, c)
		}
	}
	return out
}

// IndexOf returns the index in cs of the contour containing the move at
// pathIndex, or -1.
func IndexOf(cs []Contour, pathIndex int) int {
	i := sort.Search(len(cs), func(i int) bool { return cs[i].EndIndex >= pathIndex })
	if i < len(cs) && cs[i].StartIndex <= pathIndex {
		return i
	}
	return -1
}
