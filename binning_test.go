package occplot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinning_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, testBinning.Validate())
	require.NoError(t, DefaultConfig().Binning.Validate())

	bad := map[string]Binning{
		"zero bins":     {NX: 0, NY: 4, XMin: 0, XMax: 1, YMin: 0, YMax: 1},
		"too many bins": {NX: MaxBins + 1, NY: 4, XMin: 0, XMax: 1, YMin: 0, YMax: 1},
		"inverted x":    {NX: 4, NY: 4, XMin: 1, XMax: 0, YMin: 0, YMax: 1},
		"empty y":       {NX: 4, NY: 4, XMin: 0, XMax: 1, YMin: 1, YMax: 1},
	}
	for name, b := range bad {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, b.Validate(), ErrInvalidConfiguration)
		})
	}
}

func TestBinning_Find(t *testing.T) {
	t.Parallel()

	cases := []struct {
		x, y float64
		want Bin
		ok   bool
	}{
		{0.5, 0.5, Bin{0, 0}, true},
		{3.5, 0.5, Bin{3, 0}, true},
		{1.0, 2.0, Bin{1, 2}, true},
		{4.0, 4.0, Bin{3, 3}, true},
		{-0.1, 1, Bin{}, false},
		{1, 4.1, Bin{}, false},
		{math.NaN(), 1, Bin{}, false},
	}
	for _, c := range cases {
		got, ok := testBinning.Find(c.x, c.y)
		assert.Equal(t, c.ok, ok, "(%g,%g)", c.x, c.y)
		assert.Equal(t, c.want, got, "(%g,%g)", c.x, c.y)
	}
}

func TestBinning_CentersAndWidths(t *testing.T) {
	t.Parallel()

	b := Binning{NX: 400, NY: 400, XMin: -4.3, XMax: -3.9, YMin: 4.3, YMax: 4.7}
	assert.InDelta(t, 0.001, b.XWidth(), 1e-12)
	assert.InDelta(t, 0.001, b.YWidth(), 1e-12)
	assert.InDelta(t, -4.2995, b.XCenter(0), 1e-12)
	assert.InDelta(t, 4.6995, b.YCenter(399), 1e-12)
	assert.Equal(t, 160000, b.Len())
}

func TestBinning_ContainsIsStrict(t *testing.T) {
	t.Parallel()

	assert.True(t, testBinning.Contains(2, 2))
	assert.False(t, testBinning.Contains(0, 2))
	assert.False(t, testBinning.Contains(2, 4))
}

func TestCircle(t *testing.T) {
	t.Parallel()

	c := Circle{X: 1, Y: 1, R: 1}
	assert.True(t, c.Contains(2, 1), "boundary is inside")
	assert.True(t, c.Contains(1.5, 1.5))
	assert.False(t, c.Contains(2, 2))
	assert.InDelta(t, 5, Circle{}.Distance(3, 4), 1e-12)
}

func TestSelection_Pass(t *testing.T) {
	t.Parallel()

	b := DefaultConfig().Binning
	sel := DefaultSelection()
	center := PhotonHit{X: -4.16, Y: 4.527, Z: 100, IsCore: true}

	assert.True(t, sel.Pass(b, center))

	shallow := center
	shallow.Z = 80
	assert.False(t, sel.Pass(b, shallow), "z must exceed the threshold")

	halo := center
	halo.IsCore = false
	assert.False(t, sel.Pass(b, halo))

	outsideROI := center
	outsideROI.X += 0.05
	assert.False(t, sel.Pass(b, outsideROI))

	nearROIEdge := center
	nearROIEdge.Y += 0.039
	assert.True(t, sel.Pass(b, nearROIEdge))

	noROI := sel
	noROI.ROI.R = 0
	assert.True(t, noROI.Pass(b, outsideROI))

	outsideGrid := center
	outsideGrid.X = -4.3
	assert.False(t, noROI.Pass(b, outsideGrid), "grid edge is excluded")
}

func TestSelection_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultSelection().Validate())
	sel := DefaultSelection()
	sel.ROI.R = -1
	assert.ErrorIs(t, sel.Validate(), ErrInvalidConfiguration)
}
