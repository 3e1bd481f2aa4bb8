package contour

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/gcode"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detectLines(t *testing.T, lines []string) ([]Contour, []diag.Warning) {
	t.Helper()
	cs, ws, err := DetectLines(lines, gcode.DefaultOptions(), DefaultOptions())
	require.NoError(t, err)
	return cs, ws
}

func TestScenarioAbsoluteSquare(t *testing.T) {
	cs, ws := detectLines(t, []string{"G90", "G0 X0 Y0", "G1 X10 Y0", "G1 X10 Y10", "G1 X0 Y10", "G1 X0 Y0"})
	require.Empty(t, ws)
	require.Len(t, cs, 1)
	c := cs[0]
	assert.True(t, c.Closed)
	assert.InDelta(t, 40.0, c.Length, 1e-9)
	assert.Equal(t, geom.Pt(0, 0), c.StartCoord)
	assert.Equal(t, geom.Pt(0, 0), c.EndCoord)
	assert.Equal(t, 1, c.StartIndex)
	assert.Equal(t, 4, c.EndIndex)
	assert.Equal(t, 4, c.Moves())
}

func TestScenarioRelativeSquare(t *testing.T) {
	cs, ws := detectLines(t, []string{"G90", "G0 X0 Y0", "G91", "G1 X10 Y0", "G1 X0 Y10", "G1 X-10 Y0", "G1 X0 Y-10"})
	require.Empty(t, ws)
	require.Len(t, cs, 1)
	assert.True(t, cs[0].Closed)
	assert.True(t, geom.ApproxEqual(cs[0].EndCoord, geom.Pt(0, 0), DefaultEpsilon))
}

// polygonProgram writes a closed polygon through pts in either
// distance mode, using values with enough decimals to drift.
func polygonProgram(pts []geom.Position, relative bool) []string {
	lines := []string{"G90", fmt.Sprintf("G0 X%.6f Y%.6f", pts[0].X, pts[0].Y)}
	if relative {
		lines = append(lines, "G91")
	}
	prev := pts[0]
	for i := 1; i <= len(pts); i++ {
		p := pts[i%len(pts)]
		if relative {
			lines = append(lines, fmt.Sprintf("G1 X%.6f Y%.6f", p.X-prev.X, p.Y-prev.Y))
		} else {
			lines = append(lines, fmt.Sprintf("G1 X%.6f Y%.6f", p.X, p.Y))
		}
		prev = p
	}
	return lines
}

func TestClosedPolygonsYieldOneContour(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		n := 3 + rng.Intn(12)
		pts := make([]geom.Position, n)
		for i := range pts {
			angle := 2 * math.Pi * float64(i) / float64(n)
			r := 5 + rng.Float64()*20
			// Round to the program's 6 decimals so both modes describe the same polygon.
			pts[i] = geom.Pt(math.Round(r*math.Cos(angle)*1e6)/1e6, math.Round(r*math.Sin(angle)*1e6)/1e6)
		}
		for _, relative := range []bool{false, true} {
			cs, _ := detectLines(t, polygonProgram(pts, relative))
			require.Len(t, cs, 1, "trial %d relative=%v", trial, relative)
			assert.True(t, cs[0].Closed)
			assert.True(t, geom.ApproxEqual(cs[0].StartCoord, cs[0].EndCoord, DefaultEpsilon))
		}
	}
}

func TestTrailingOpenRunIsReported(t *testing.T) {
	cs, ws := detectLines(t, []string{
		"G0 X0 Y0",
		"G1 X5 Y0", "G1 X5 Y5", "G1 X0 Y0", // closed triangle
		"G1 X-3 Y0", "G1 X-3 Y-3", // lead-out that never returns
	})
	require.Empty(t, ws)
	require.Len(t, cs, 2)
	assert.True(t, cs[0].Closed)
	assert.False(t, cs[1].Closed)
	assert.Equal(t, 4, cs[1].StartIndex)
	assert.Equal(t, 5, cs[1].EndIndex)
	assert.Equal(t, geom.Pt(0, 0), cs[1].StartCoord)
	assert.Equal(t, geom.Pt(-3, -3), cs[1].EndCoord)
	assert.InDelta(t, 6.0, cs[1].Length, 1e-12)
	assert.Len(t, Closed(cs), 1)
}

func TestMixedRapidPolygonIsOneContour(t *testing.T) {
	cs, ws := detectLines(t, []string{"G90", "G0 X0 Y0", "G1 X10 Y0", "G0 X10 Y10", "G1 X0 Y10", "G1 X0 Y0"})
	require.Empty(t, ws)
	require.Len(t, cs, 1)
	c := cs[0]
	assert.True(t, c.Closed)
	assert.Equal(t, 1, c.StartIndex)
	assert.Equal(t, 4, c.EndIndex)
	assert.InDelta(t, 40.0, c.Length, 1e-9)
	assert.Equal(t, geom.Pt(0, 0), c.StartCoord)
}

func TestLeadingRapidEdgeCloses(t *testing.T) {
	// The first edge is a rapid, so the loop only closes on the start of
	// the run rather than on the first cut.
	cs, ws := detectLines(t, []string{"G0 X0 Y0", "G0 X10 Y0", "G1 X10 Y10", "G1 X0 Y10", "G1 X0 Y0"})
	require.Empty(t, ws)
	require.Len(t, cs, 1)
	assert.True(t, cs[0].Closed)
	assert.Equal(t, 0, cs[0].StartIndex)
	assert.Equal(t, 4, cs[0].EndIndex)
	assert.InDelta(t, 40.0, cs[0].Length, 1e-9)
}

var rapidSeparated = []string{
	"G0 X0 Y0", "G1 X2 Y0", "G1 X2 Y2", "G1 X0 Y0",
	"G0 X10 Y10", "G1 X12", "G0 X20 Y20",
	"G1 X22 Y20", "G1 X22 Y22", "G1 X20 Y20",
	"G0 X0 Y0",
}

func TestRapidsStayInRuns(t *testing.T) {
	cs, _ := detectLines(t, rapidSeparated)
	require.Len(t, cs, 2)
	assert.True(t, cs[0].Closed)
	assert.Equal(t, 1, cs[0].StartIndex)
	assert.Equal(t, 3, cs[0].EndIndex)

	open := cs[1]
	assert.False(t, open.Closed, "the run started at (10,10) never returns there")
	assert.Equal(t, 5, open.StartIndex)
	assert.Equal(t, 9, open.EndIndex, "trailing rapid is not part of the open run")
	assert.Equal(t, geom.Pt(10, 10), open.StartCoord)
	assert.Equal(t, geom.Pt(20, 20), open.EndCoord)
	assert.InDelta(t, 2+math.Hypot(8, 10)+4+2*math.Sqrt2, open.Length, 1e-9)
}

func TestSplitAtRapids(t *testing.T) {
	cs, _, err := DetectLines(rapidSeparated, gcode.DefaultOptions(), Options{SplitAtRapids: true})
	require.NoError(t, err)
	require.Len(t, cs, 3)
	assert.True(t, cs[0].Closed)
	assert.False(t, cs[1].Closed, "rapid interrupts an unfinished run")
	assert.Equal(t, 5, cs[1].StartIndex)
	assert.Equal(t, 5, cs[1].EndIndex)
	assert.True(t, cs[2].Closed)
	assert.Equal(t, 7, cs[2].StartIndex)
	assert.Equal(t, geom.Pt(20, 20), cs[2].StartCoord)

	cs, _, err = DetectLines([]string{"G0 X0 Y0", "G1 X10 Y0", "G0 X10 Y10", "G1 X0 Y10", "G1 X0 Y0"},
		gcode.DefaultOptions(), Options{SplitAtRapids: true})
	require.NoError(t, err)
	assert.Len(t, cs, 2)
	assert.Empty(t, Closed(cs))
}

func TestInvalidEpsilonFallsBackToDefault(t *testing.T) {
	lines := []string{"G0 X0 Y0", "G91", "G1 X0.1", "G1 X0.1", "G1 X0.1", "G1 Y1", "G1 X-0.3", "G1 Y-1"}
	for _, eps := range []float64{0, -1, math.NaN()} {
		cs, _, err := DetectLines(lines, gcode.DefaultOptions(), Options{Epsilon: eps})
		require.NoError(t, err)
		require.Len(t, cs, 1, "epsilon %v", eps)
		assert.True(t, cs[0].Closed, "epsilon %v", eps)
	}

	o := Options{Epsilon: math.NaN(), NearClosure: math.NaN()}.withDefaults()
	assert.Equal(t, DefaultEpsilon, o.Epsilon)
	assert.Equal(t, DefaultNearClosure, o.NearClosure)
	assert.Equal(t, -1.0, Options{NearClosure: -1}.withDefaults().NearClosure)
}

func TestFullCircleContour(t *testing.T) {
	cs, ws, err := DetectLines([]string{"G0 X5 Y0", "G2 I-5 J0"},
		gcode.Options{ArcOffsets: gcode.OffsetIncremental}, DefaultOptions())
	require.NoError(t, err)
	require.Empty(t, ws)
	require.Len(t, cs, 1)
	assert.True(t, cs[0].Closed)
	assert.InDelta(t, 10*math.Pi, cs[0].Length, 1e-9)
}

func TestArcAndLineContour(t *testing.T) {
	// D shape: diameter along X then a half circle back.
	cs, _, err := DetectLines([]string{"G0 X-5 Y0", "G1 X5 Y0", "G3 X-5 Y0 I-5 J0"},
		gcode.Options{ArcOffsets: gcode.OffsetIncremental}, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.True(t, cs[0].Closed)
	assert.InDelta(t, 10+5*math.Pi, cs[0].Length, 1e-9)
}

func TestNearClosureWarning(t *testing.T) {
	cs, ws := detectLines(t, []string{"G0 X0 Y0", "G1 X10 Y0", "G1 X10 Y10", "G1 X0.0004 Y0"})
	require.Len(t, cs, 1)
	assert.False(t, cs[0].Closed)
	require.Len(t, ws, 1)
	assert.Equal(t, diag.Geometry, ws[0].Kind)
	assert.Equal(t, 4, ws[0].Line)
	assert.Contains(t, ws[0].Reason, "ambiguous")

	cs, _, err := DetectLines([]string{"G0 X0 Y0", "G1 X10 Y0", "G1 X10 Y10", "G1 X0.0004 Y0"},
		gcode.DefaultOptions(), Options{Epsilon: 1e-3})
	require.NoError(t, err)
	assert.True(t, cs[0].Closed, "a looser epsilon closes the run")
}

func TestEpsilonAbsorbsDrift(t *testing.T) {
	lines := []string{"G0 X0 Y0", "G91"}
	for i := 0; i < 10; i++ {
		lines = append(lines, "G1 X0.1")
	}
	lines = append(lines, "G1 Y1", "G1 X-1", "G1 Y-1")
	cs, ws := detectLines(t, lines)
	require.Empty(t, ws)
	require.Len(t, cs, 1)
	assert.True(t, cs[0].Closed, "ten 0.1 steps do not sum to exactly 1")
}

func TestDetectEmpty(t *testing.T) {
	cs, ws := Detect(nil, DefaultOptions())
	assert.Empty(t, cs)
	assert.Empty(t, ws)

	cs, ws = detectLines(t, []string{"G0 X1 Y1", "G0 X2 Y2"})
	assert.Empty(t, cs, "rapids alone form no contour")
	assert.Empty(t, ws)
}

func TestZeroLengthMoveDoesNotClose(t *testing.T) {
	path := gcode.Path{
		{Type: gcode.Cut, X: 0, Y: 0},
		{Type: gcode.Cut, X: 1, Y: 0},
		{Type: gcode.Cut, StartX: 1, X: 0, Y: 0},
	}
	cs, _ := Detect(path, DefaultOptions())
	require.Len(t, cs, 1)
	assert.True(t, cs[0].Closed)
	assert.Equal(t, 0, cs[0].StartIndex)
	assert.Equal(t, 2, cs[0].EndIndex)
}

func TestIndexOf(t *testing.T) {
	cs := []Contour{{StartIndex: 1, EndIndex: 4}, {StartIndex: 6, EndIndex: 6}, {StartIndex: 8, EndIndex: 12}}
	assert.Equal(t, 0, IndexOf(cs, 1))
	assert.Equal(t, 0, IndexOf(cs, 4))
	assert.Equal(t, -1, IndexOf(cs, 5))
	assert.Equal(t, 1, IndexOf(cs, 6))
	assert.Equal(t, 2, IndexOf(cs, 10))
	assert.Equal(t, -1, IndexOf(cs, 0))
	assert.Equal(t, -1, IndexOf(cs, 13))
}

func TestContourBounds(t *testing.T) {
	res, err := gcode.ParseLines([]string{"G0 X-5 Y0", "G1 X5 Y0", "G3 X-5 Y0 I-5 J0", "G0 X50 Y50"},
		gcode.Options{ArcOffsets: gcode.OffsetIncremental})
	require.NoError(t, err)
	cs, _ := Detect(res.Path, DefaultOptions())
	require.Len(t, cs, 1)

	b := cs[0].Bounds(res.Path)
	assert.InDelta(t, -5.0, b.MinX, 1e-9)
	assert.InDelta(t, 5.0, b.MaxX, 1e-9)
	assert.InDelta(t, 0.0, b.MinY, 1e-9)
	assert.InDelta(t, 5.0, b.MaxY, 1e-9, "arc apex at 90 degrees")

	assert.False(t, Contour{StartIndex: 2, EndIndex: 9}.Bounds(res.Path).IsValid())
}
