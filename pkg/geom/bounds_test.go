package geom

import (
	"errors"
	"math"
	"testing"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoundsIsEmpty(t *testing.T) {
	b := NewBounds()
	assert.False(t, b.IsValid())
	assert.True(t, b.IsEmpty())
	assert.Zero(t, b.Width())
	assert.Zero(t, b.Height())
}

func TestBoundsUpdate(t *testing.T) {
	b := NewBounds()
	require.NoError(t, b.Update(3, -2))
	assert.True(t, b.IsValid())
	assert.Equal(t, Bounds{MinX: 3, MaxX: 3, MinY: -2, MaxY: -2}, b)

	require.NoError(t, b.Update(-1, 5))
	assert.Equal(t, Bounds{MinX: -1, MaxX: 3, MinY: -2, MaxY: 5}, b)
	assert.Equal(t, 4.0, b.Width())
	assert.Equal(t, 7.0, b.Height())
	assert.Equal(t, Pt(1, 1.5), b.Center())
}

func TestBoundsUpdateRejectsNonFinite(t *testing.T) {
	b := NewBounds()
	require.NoError(t, b.Update(1, 1))

	tests := []struct {
		name string
		x, y float64
	}{
		{"nan x", math.NaN(), 0},
		{"inf y", 0, math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.Update(tt.x, tt.y)
			var verr *diag.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, Bounds{MinX: 1, MaxX: 1, MinY: 1, MaxY: 1}, b, "bounds must not be partially updated")
		})
	}
}

func TestBoundsExpand(t *testing.T) {
	b, err := BoundsOf(Pt(0, 0), Pt(10, 4))
	require.NoError(t, err)

	e, err := b.Expand(1)
	require.NoError(t, err)
	assert.Equal(t, Bounds{MinX: -1, MaxX: 11, MinY: -1, MaxY: 5}, e)

	_, err = b.Expand(-1)
	assert.Error(t, err)
	_, err = b.Expand(math.NaN())
	assert.Error(t, err)

	empty, err := NewBounds().Expand(2)
	require.NoError(t, err)
	assert.False(t, empty.IsValid())
}

func TestBoundsUnion(t *testing.T) {
	a, _ := BoundsOf(Pt(0, 0), Pt(1, 1))
	b, _ := BoundsOf(Pt(-3, 2), Pt(-2, 4))

	u := NewBounds()
	u.Union(a)
	assert.Equal(t, a, u)
	u.Union(b)
	assert.Equal(t, Bounds{MinX: -3, MaxX: 1, MinY: 0, MaxY: 4}, u)
	u.Union(NewBounds())
	assert.Equal(t, Bounds{MinX: -3, MaxX: 1, MinY: 0, MaxY: 4}, u)
}

func TestBoundsContainsIntersects(t *testing.T) {
	a, _ := BoundsOf(Pt(0, 0), Pt(10, 10))
	b, _ := BoundsOf(Pt(5, 5), Pt(15, 15))
	c, _ := BoundsOf(Pt(20, 20), Pt(30, 30))

	assert.True(t, a.Contains(Pt(10, 0)))
	assert.False(t, a.Contains(Pt(10.01, 0)))
	assert.True(t, a.Intersects(b))
	assert.False(t, a.Intersects(c))
}

func TestDistanceAndApproxEqual(t *testing.T) {
	assert.InDelta(t, 5.0, Distance(Pt(0, 0), Pt(3, 4)), 1e-12)
	assert.True(t, ApproxEqual(Pt(1, 1), Pt(1+1e-9, 1-1e-9), 1e-6))
	assert.False(t, ApproxEqual(Pt(1, 1), Pt(1.1, 1), 1e-6))
	assert.True(t, Pt(1, 2).IsFinite())
	assert.False(t, Pt(math.Inf(1), 2).IsFinite())
}
