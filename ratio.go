package occplot

import (
	"fmt"
	"math"

	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RatioGrid holds the per-cell reception ratio deadtime/no-deadtime.
type RatioGrid struct {
	Binning Binning
	values  []float64
}

// NewRatioGrid divides dead by noDead cell by cell. Cells empty in noDead get
// ratio 0.
func NewRatioGrid(noDead, dead *Grid) (*RatioGrid, error) {
	if noDead.Binning != dead.Binning {
		return nil, fmt.Errorf("%w: binning %+v does not match %+v", ErrInvalidConfiguration, dead.Binning, noDead.Binning)
	}
	r := &RatioGrid{Binning: noDead.Binning, values: make([]float64, noDead.Binning.Len())}
	for i, n := range noDead.counts {
		if n > 0 {
			r.values[i] = float64(dead.counts[i]) / float64(n)
		}
	}
	return r, nil
}

// RatioGridFromH2D reads ratio values back from a histogram.
func RatioGridFromH2D(h *hbook.H2D) (*RatioGrid, error) {
	xyz := h.GridXYZ()
	nx, ny := xyz.Dims()
	b := Binning{NX: nx, NY: ny, XMin: h.XMin(), XMax: h.XMax(), YMin: h.YMin(), YMax: h.YMax()}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	r := &RatioGrid{Binning: b, values: make([]float64, b.Len())}
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			r.values[b.index(Bin{IX: ix, IY: iy})] = xyz.Z(ix, iy)
		}
	}
	return r, nil
}

func (rg *RatioGrid) Ratio(ix, iy int) float64 {
	return rg.values[rg.Binning.index(Bin{IX: ix, IY: iy})]
}

func (rg *RatioGrid) Dims() (c, r int)   { return rg.Binning.NX, rg.Binning.NY }
func (rg *RatioGrid) Z(c, r int) float64 { return rg.Ratio(c, r) }
func (rg *RatioGrid) X(c int) float64    { return rg.Binning.XCenter(c) }
func (rg *RatioGrid) Y(r int) float64    { return rg.Binning.YCenter(r) }

// H2D stores the ratios as bin weights.
func (rg *RatioGrid) H2D() *hbook.H2D {
	b := rg.Binning
	h := hbook.NewH2D(b.NX, b.XMin, b.XMax, b.NY, b.YMin, b.YMax)
	for iy := 0; iy < b.NY; iy++ {
		for ix := 0; ix < b.NX; ix++ {
			if v := rg.Ratio(ix, iy); v != 0 {
				h.Fill(b.XCenter(ix), b.YCenter(iy), v)
			}
		}
	}
	return h
}

// RejectionRate returns 100*(1 - sum(dead)/sum(noDead)).
func RejectionRate(noDead, dead *Grid) float64 {
	total := noDead.Total()
	if total == 0 {
		return 0
	}
	return 100 * (1 - float64(dead.Total())/float64(total))
}

// CircleRatio is the fraction of the grid content whose cell centres lie
// within c.
func CircleRatio(g *Grid, c Circle) float64 {
	total := g.Total()
	if total == 0 {
		return 0
	}
	var inside int64
	b := g.Binning
	for iy := 0; iy < b.NY; iy++ {
		for ix := 0; ix < b.NX; ix++ {
			n := g.Count(ix, iy)
			if n <= 0 {
				continue
			}
			if c.Distance(b.XCenter(ix), b.YCenter(iy)) <= c.R {
				inside += n
			}
		}
	}
	return float64(inside) / float64(total)
}

// RadiusSearch shrinks a circle from Start in steps of Step until the
// enclosed fraction drops to the target or the radius reaches Min.
type RadiusSearch struct {
	Start, Min, Step float64
}

func DefaultRadiusSearch() RadiusSearch {
	return RadiusSearch{Start: 0.04, Min: 0.01, Step: 0.0001}
}

// FindRadius returns the first radius, scanning down from s.Start, at which
// the circle around (x, y) encloses no more than target of the grid content.
func (s RadiusSearch) FindRadius(g *Grid, x, y, target float64) (radius, ratio float64) {
	c := Circle{X: x, Y: y, R: s.Start}
	ratio = CircleRatio(g, c)
	for k := 1; ratio > target && c.R > s.Min; k++ {
		c.R = s.Start - float64(k)*s.Step
		ratio = CircleRatio(g, c)
	}
	return c.R, ratio
}

// Regions splits positive ratio values by distance from a centre: Inner
// within r2, Ring between r2 and r1, Outer beyond r1.
type Regions struct {
	All, Outer, Ring, Inner []float64
}

func CollectRegions(r *RatioGrid, x, y, r1, r2 float64) Regions {
	var reg Regions
	c := Circle{X: x, Y: y}
	b := r.Binning
	for ix := 0; ix < b.NX; ix++ {
		for iy := 0; iy < b.NY; iy++ {
			v := r.Ratio(ix, iy)
			if v <= 0 {
				continue
			}
			d := c.Distance(b.XCenter(ix), b.YCenter(iy))
			reg.All = append(reg.All, v)
			switch {
			case d <= r2:
				reg.Inner = append(reg.Inner, v)
			case d <= r1:
				reg.Ring = append(reg.Ring, v)
			default:
				reg.Outer = append(reg.Outer, v)
			}
		}
	}
	return reg
}

// MeanRMS returns the mean and population standard deviation of xs, or zeros
// for an empty slice.
func MeanRMS(xs []float64) (mean, rms float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(xs, nil)
}

// RatioHist histograms ratio values.
func RatioHist(xs []float64, nbins int, lo, hi float64) *hbook.H1D {
	h := hbook.NewH1D(nbins, lo, hi)
	for _, v := range xs {
		h.Fill(v, 1)
	}
	return h
}

// RadialPoint is one cell's ratio against its distance from a centre.
type RadialPoint struct {
	Distance float64
	Ratio    float64
}

// RadialPoints lists positive ratios of cells within maxDistance of (x, y).
func RadialPoints(r *RatioGrid, x, y, maxDistance float64) []RadialPoint {
	var pts []RadialPoint
	c := Circle{X: x, Y: y}
	b := r.Binning
	for ix := 0; ix < b.NX; ix++ {
		for iy := 0; iy < b.NY; iy++ {
			v := r.Ratio(ix, iy)
			if v <= 0 {
				continue
			}
			d := c.Distance(b.XCenter(ix), b.YCenter(iy))
			if d > maxDistance {
				continue
			}
			pts = append(pts, RadialPoint{Distance: d, Ratio: v})
		}
	}
	return pts
}

// ProfileBin is the mean ratio of the points falling in one distance bin.
type ProfileBin struct {
	Center float64
	Mean   float64
	StdErr float64
	N      int
}

// RadialProfile averages points in nbins equal distance bins over [lo, hi).
// StdErr is the population standard deviation over sqrt(N), 0 for N < 2.
func RadialProfile(pts []RadialPoint, nbins int, lo, hi float64) []ProfileBin {
	edges := make([]float64, nbins+1)
	floats.Span(edges, lo, hi)

	prof := make([]ProfileBin, nbins)
	for i := range prof {
		prof[i].Center = (edges[i] + edges[i+1]) / 2

		var vals []float64
		for _, p := range pts {
			if p.Distance >= edges[i] && p.Distance < edges[i+1] {
				vals = append(vals, p.Ratio)
			}
		}
		prof[i].N = len(vals)
		if len(vals) == 0 {
			continue
		}
		mean, std := MeanRMS(vals)
		prof[i].Mean = mean
		if len(vals) > 1 {
			prof[i].StdErr = std / math.Sqrt(float64(len(vals)))
		}
	}
	return prof
}
