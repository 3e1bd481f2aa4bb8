package ui

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"gioui.org/io/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/contour"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/gcode"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/viewport"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/watch"
)

const twoSquares = "G0 X0 Y0\nG1 X10\nG1 Y10\nG1 X0\nG1 Y0\nG0 X100 Y100\nG1 X102\nG1 Y102\nG1 X100\nG1 Y100\n"

func loaded(t *testing.T) (*AppState, StateSnapshot) {
	t.Helper()
	res, err := gcode.Parse(twoSquares, gcode.DefaultOptions())
	require.NoError(t, err)
	cs, ws := contour.Detect(res.Path, contour.DefaultOptions())
	s := NewState()
	s.Apply(watch.Update{File: "/tmp/two.nc", Result: res, Contours: cs, Warnings: ws})
	return s, s.Snapshot()
}

func TestKeyAction(t *testing.T) {
	assert.Equal(t, actZoomIn, keyAction("+"))
	assert.Equal(t, actZoomOut, keyAction("-"))
	assert.Equal(t, actFit, keyAction("F"))
	assert.Equal(t, actFit, keyAction(key.NameSpace))
	assert.Equal(t, actReset, keyAction("R"))
	assert.Equal(t, actQuit, keyAction(key.NameEscape))
	assert.Equal(t, actNone, keyAction("Z"))
}

func TestCycle(t *testing.T) {
	assert.Equal(t, 0, cycle(-1, 3, 1))
	assert.Equal(t, 2, cycle(1, 3, 1))
	assert.Equal(t, -1, cycle(2, 3, 1))
	assert.Equal(t, 2, cycle(-1, 3, -1))
	assert.Equal(t, -1, cycle(0, 3, -1))
	assert.Equal(t, -1, cycle(-1, 0, 1))
}

func TestPerformSelectsAndFits(t *testing.T) {
	state, snap := loaded(t)
	require.Len(t, snap.Contours, 2)
	v := viewport.New(400, 400, viewport.WithMargin(0))

	assert.False(t, perform(actNextContour, v, state, snap))
	assert.Equal(t, 0, state.Selected())
	assert.InDelta(t, 5.0, v.ScreenToWorld(200, 200).X, 1e-9)

	snap = state.Snapshot()
	perform(actNextContour, v, state, snap)
	assert.Equal(t, 1, state.Selected())
	c := v.ScreenToWorld(200, 200)
	assert.InDelta(t, 101.0, c.X, 1e-9)
	assert.InDelta(t, 101.0, c.Y, 1e-9)
	assert.InDelta(t, 400*viewport.FitPadding/2, v.Zoom(), 1e-9)

	perform(actClearSelection, v, state, state.Snapshot())
	assert.Equal(t, -1, state.Selected())

	perform(actFit, v, state, state.Snapshot())
	assert.Equal(t, viewport.ModeFitted, v.Mode())
	assert.InDelta(t, 51.0, v.ScreenToWorld(200, 200).X, 1e-9)

	perform(actReset, v, state, state.Snapshot())
	assert.Equal(t, viewport.ModeDefault, v.Mode())
	assert.True(t, perform(actQuit, v, state, state.Snapshot()))
}

func TestPerformWithoutDocument(t *testing.T) {
	state := NewState()
	v := viewport.New(100, 100)
	perform(actFit, v, state, state.Snapshot())
	perform(actNextContour, v, state, state.Snapshot())
	assert.Equal(t, viewport.ModeDefault, v.Mode())
	assert.Equal(t, -1, state.Selected())
}

func TestFitLogsFailure(t *testing.T) {
	defer diag.SetLogger(nil)
	var buf bytes.Buffer
	diag.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	_, snap := loaded(t)
	v := viewport.New(0, 0)
	fit(v, snap, -1)
	assert.Contains(t, buf.String(), "fit to bounds")
	assert.Contains(t, buf.String(), "display width")
	assert.Equal(t, viewport.ModeDefault, v.Mode())

	buf.Reset()
	empty, err := gcode.Parse("G90\n", gcode.DefaultOptions())
	require.NoError(t, err)
	fit(viewport.New(100, 100), StateSnapshot{Result: empty}, -1)
	assert.Empty(t, buf.String(), "an empty program is not an error")
}

func TestStateApply(t *testing.T) {
	state, snap := loaded(t)
	assert.Equal(t, 1, snap.Revision)
	assert.Contains(t, snap.Status, "two.nc: 10 moves, 2 contours (2 closed)")
	assert.Equal(t, geom.Bounds{MinX: 0, MaxX: 102, MinY: 0, MaxY: 102}, snap.Result.Bounds)

	state.Select(1)
	state.Apply(watch.Update{File: "/tmp/two.nc", Err: errors.New("boom")})
	snap = state.Snapshot()
	assert.Equal(t, 1, snap.Revision, "failed reload keeps the document")
	assert.Equal(t, 1, snap.Selected)
	assert.EqualError(t, snap.LastError, "boom")
	assert.Contains(t, snap.Logs[len(snap.Logs)-1], "boom")

	state.Select(7)
	assert.Equal(t, -1, state.Selected())
}

func TestStateLogLimit(t *testing.T) {
	s := NewState()
	for i := 0; i < 250; i++ {
		s.AppendLog("line")
	}
	assert.Len(t, s.Snapshot().Logs, 200)
}
