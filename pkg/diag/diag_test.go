package diag

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarningError(t *testing.T) {
	w := Syntaxf(7, "bad value %q", "ABC")
	assert.Equal(t, `line 7: syntax: bad value "ABC"`, w.Error())

	g := Geometryf(0, "zero radius")
	assert.Equal(t, "geometry: zero radius", g.Error())
}

func TestAtLineCopies(t *testing.T) {
	in := []Warning{Geometryf(0, "a"), Geometryf(0, "b")}
	out := AtLine(in, 12)
	require.Len(t, out, 2)
	assert.Equal(t, 12, out[0].Line)
	assert.Equal(t, 12, out[1].Line)
	assert.Equal(t, 0, in[0].Line, "input must not be modified")
}

func TestCount(t *testing.T) {
	ws := []Warning{Syntaxf(1, "x"), Geometryf(2, "y"), Syntaxf(3, "z")}
	assert.Equal(t, 2, Count(ws, Syntax))
	assert.Equal(t, 1, Count(ws, Geometry))
}

func TestCheckFinite(t *testing.T) {
	assert.NoError(t, CheckFinite("op", []string{"x", "y"}, 1, 2))

	err := CheckFinite("bounds.update", []string{"x", "y"}, 1, math.Inf(1))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "y", verr.Arg)
	assert.Equal(t, "bounds.update", verr.Op)

	err = CheckFinite("op", nil, math.NaN())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "argument")
}

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)

	assert.False(t, Logger().Enabled(context.Background(), slog.LevelError))

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	Logger().Debug("parsed", "lines", 3)
	assert.Contains(t, buf.String(), "lines=3")

	SetLogger(nil)
	assert.False(t, Logger().Enabled(context.Background(), slog.LevelError))
}
