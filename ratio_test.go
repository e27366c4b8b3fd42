package occplot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ratioFixture returns 4x4 grids where every cell saw 4 photons without dead
// time. With dead time the four cells around (2,2) keep 2, cell (0,1) keeps
// 3, cell (0,0) keeps none and the rest keep all 4.
func ratioFixture(t *testing.T) (noDead, dead *Grid) {
	t.Helper()
	noDead = NewGrid(testBinning)
	dead = NewGrid(testBinning)
	for iy := 0; iy < 4; iy++ {
		for ix := 0; ix < 4; ix++ {
			noDead.Add(Bin{IX: ix, IY: iy}, 4)
			switch {
			case (ix == 1 || ix == 2) && (iy == 1 || iy == 2):
				dead.Add(Bin{IX: ix, IY: iy}, 2)
			case ix == 0 && iy == 1:
				dead.Add(Bin{IX: ix, IY: iy}, 3)
			case ix == 0 && iy == 0:
			default:
				dead.Add(Bin{IX: ix, IY: iy}, 4)
			}
		}
	}
	return noDead, dead
}

func TestNewRatioGrid(t *testing.T) {
	t.Parallel()

	noDead, dead := ratioFixture(t)
	r, err := NewRatioGrid(noDead, dead)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, r.Ratio(1, 1), 1e-12)
	assert.InDelta(t, 0.75, r.Ratio(0, 1), 1e-12)
	assert.InDelta(t, 0, r.Ratio(0, 0), 1e-12)
	assert.InDelta(t, 1, r.Ratio(3, 3), 1e-12)

	assert.InDelta(t, 100*(1-51.0/64), RejectionRate(noDead, dead), 1e-9)
}

func TestNewRatioGrid_EmptyReferenceCell(t *testing.T) {
	t.Parallel()

	noDead := NewGrid(testBinning)
	dead := NewGrid(testBinning)
	dead.Add(Bin{IX: 2, IY: 2}, 3)
	r, err := NewRatioGrid(noDead, dead)
	require.NoError(t, err)
	assert.Zero(t, r.Ratio(2, 2))
	assert.Zero(t, RejectionRate(noDead, dead))

	_, err = NewRatioGrid(noDead, NewGrid(Binning{NX: 2, NY: 2, XMin: 0, XMax: 1, YMin: 0, YMax: 1}))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestRatioGrid_H2DRoundTrip(t *testing.T) {
	t.Parallel()

	noDead, dead := ratioFixture(t)
	r, err := NewRatioGrid(noDead, dead)
	require.NoError(t, err)

	back, err := RatioGridFromH2D(r.H2D())
	require.NoError(t, err)
	assert.InDeltaSlice(t, r.values, back.values, 1e-12)
}

func TestCircleRatio(t *testing.T) {
	t.Parallel()

	g := NewGrid(testBinning)
	for _, bin := range []Bin{{1, 1}, {2, 1}, {1, 2}, {2, 2}, {0, 0}} {
		g.Add(bin, 1)
	}
	assert.InDelta(t, 0.8, CircleRatio(g, Circle{X: 2, Y: 2, R: 1}), 1e-12)
	assert.InDelta(t, 1, CircleRatio(g, Circle{X: 2, Y: 2, R: 3}), 1e-12)
	assert.Zero(t, CircleRatio(g, Circle{X: 2, Y: 2, R: 0.5}))
	assert.Zero(t, CircleRatio(NewGrid(testBinning), Circle{X: 2, Y: 2, R: 3}))
}

func TestRadiusSearch_FindRadius(t *testing.T) {
	t.Parallel()

	g := NewGrid(testBinning)
	for _, bin := range []Bin{{1, 1}, {2, 1}, {1, 2}, {2, 2}, {0, 0}} {
		g.Add(bin, 1)
	}
	s := RadiusSearch{Start: 3, Min: 1, Step: 0.1}

	// the corner cell at distance 2.12 drops out first
	r, ratio := s.FindRadius(g, 2, 2, 0.8)
	assert.InDelta(t, 2.1, r, 1e-9)
	assert.InDelta(t, 0.8, ratio, 1e-12)

	// the search stops at the minimum radius
	r, ratio = s.FindRadius(g, 2, 2, 0.5)
	assert.GreaterOrEqual(t, r, 0.9-1e-9)
	assert.LessOrEqual(t, r, 1+1e-9)
	assert.InDelta(t, 0.8, ratio, 1e-12)

	// already below target at the start radius
	r, _ = s.FindRadius(g, 2, 2, 1)
	assert.InDelta(t, 3, r, 1e-12)

	def := DefaultRadiusSearch()
	assert.Equal(t, RadiusSearch{Start: 0.04, Min: 0.01, Step: 0.0001}, def)
}

func TestCollectRegions(t *testing.T) {
	t.Parallel()

	noDead, dead := ratioFixture(t)
	r, err := NewRatioGrid(noDead, dead)
	require.NoError(t, err)

	reg := CollectRegions(r, 2, 2, 1.6, 1.0)
	assert.Len(t, reg.All, 15, "the zero ratio cell is skipped")
	assert.Len(t, reg.Inner, 4)
	assert.Len(t, reg.Ring, 8)
	assert.Len(t, reg.Outer, 3)

	mean, rms := MeanRMS(reg.Inner)
	assert.InDelta(t, 0.5, mean, 1e-12)
	assert.InDelta(t, 0, rms, 1e-12)

	mean, rms = MeanRMS(reg.Ring)
	assert.InDelta(t, 0.96875, mean, 1e-12)
	assert.InDelta(t, math.Sqrt(0.0068359375), rms, 1e-12)

	mean, rms = MeanRMS(nil)
	assert.Zero(t, mean)
	assert.Zero(t, rms)

	h := RatioHist(reg.Ring, 50, 0.65, 1.1)
	assert.InDelta(t, 8, h.SumW(), 1e-12)
}

func TestRadialProfile(t *testing.T) {
	t.Parallel()

	noDead, dead := ratioFixture(t)
	r, err := NewRatioGrid(noDead, dead)
	require.NoError(t, err)

	pts := RadialPoints(r, 2, 2, 1.6)
	require.Len(t, pts, 12)
	for _, p := range pts {
		assert.LessOrEqual(t, p.Distance, 1.6)
		assert.Greater(t, p.Ratio, 0.0)
	}

	prof := RadialProfile(pts, 2, 0, 2)
	require.Len(t, prof, 2)

	assert.InDelta(t, 0.5, prof[0].Center, 1e-12)
	assert.Equal(t, 4, prof[0].N)
	assert.InDelta(t, 0.5, prof[0].Mean, 1e-12)
	assert.InDelta(t, 0, prof[0].StdErr, 1e-12)

	assert.InDelta(t, 1.5, prof[1].Center, 1e-12)
	assert.Equal(t, 8, prof[1].N)
	assert.InDelta(t, 0.96875, prof[1].Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(0.0068359375/8), prof[1].StdErr, 1e-12)
}

func TestRadialProfile_SingleAndEmptyBins(t *testing.T) {
	t.Parallel()

	prof := RadialProfile([]RadialPoint{{Distance: 0.5, Ratio: 0.9}}, 4, 0, 2)
	require.Len(t, prof, 4)
	assert.Equal(t, 1, prof[1].N)
	assert.InDelta(t, 0.9, prof[1].Mean, 1e-12)
	assert.Zero(t, prof[1].StdErr, "a single value has no error")
	for _, i := range []int{0, 2, 3} {
		assert.Zero(t, prof[i].N)
	}
}
