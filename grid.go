package occplot

import (
	"fmt"
	"math"
	"sort"

	"go-hep.org/x/hep/hbook"
)

// Grid is an occupancy grid: a non-negative photon count per cell.
// Grid implements plotter.GridXYZ so it can be drawn as a heat map directly.
type Grid struct {
	Binning Binning
	counts  []int64
}

func NewGrid(b Binning) *Grid {
	return &Grid{Binning: b, counts: make([]int64, b.Len())}
}

// Count returns the content of cell (ix, iy).
func (g *Grid) Count(ix, iy int) int64 {
	return g.counts[g.Binning.index(Bin{IX: ix, IY: iy})]
}

// Add increments cell bin by n.
func (g *Grid) Add(bin Bin, n int64) {
	g.counts[g.Binning.index(bin)] += n
}

// Merge adds other into g elementwise.
func (g *Grid) Merge(other *Grid) error {
	if other.Binning != g.Binning {
		return fmt.Errorf("occplot: cannot merge grid %+v into %+v", other.Binning, g.Binning)
	}
	for i, n := range other.counts {
		g.counts[i] += n
	}
	return nil
}

// Total returns the sum over all cells.
func (g *Grid) Total() int64 {
	var sum int64
	for _, n := range g.counts {
		sum += n
	}
	return sum
}

func (g *Grid) Clone() *Grid {
	c := NewGrid(g.Binning)
	copy(c.counts, g.counts)
	return c
}

func (g *Grid) Dims() (c, r int)   { return g.Binning.NX, g.Binning.NY }
func (g *Grid) Z(c, r int) float64 { return float64(g.Count(c, r)) }
func (g *Grid) X(c int) float64    { return g.Binning.XCenter(c) }
func (g *Grid) Y(r int) float64    { return g.Binning.YCenter(r) }

// Max returns the largest cell content.
func (g *Grid) Max() float64 {
	return float64(g.Peak().Count)
}

// PeakBin describes the most populated cell.
type PeakBin struct {
	Bin         Bin
	XLow, XHigh float64
	YLow, YHigh float64
	Count       int64
}

func (p PeakBin) XCenter() float64 { return (p.XLow + p.XHigh) / 2 }
func (p PeakBin) YCenter() float64 { return (p.YLow + p.YHigh) / 2 }

// Peak returns the first maximal cell, scanning rows from the bottom with
// x varying fastest.
func (g *Grid) Peak() PeakBin {
	var (
		best Bin
		max  int64 = -1
	)
	for iy := 0; iy < g.Binning.NY; iy++ {
		for ix := 0; ix < g.Binning.NX; ix++ {
			if n := g.Count(ix, iy); n > max {
				max = n
				best = Bin{IX: ix, IY: iy}
			}
		}
	}
	b := g.Binning
	return PeakBin{
		Bin:   best,
		XLow:  b.XMin + float64(best.IX)*b.XWidth(),
		XHigh: b.XMin + float64(best.IX+1)*b.XWidth(),
		YLow:  b.YMin + float64(best.IY)*b.YWidth(),
		YHigh: b.YMin + float64(best.IY+1)*b.YWidth(),
		Count: max,
	}
}

// FillFraction returns the percentage of cells with a positive count.
func (g *Grid) FillFraction() float64 {
	nonEmpty := 0
	for _, n := range g.counts {
		if n > 0 {
			nonEmpty++
		}
	}
	return 100 * float64(nonEmpty) / float64(len(g.counts))
}

// CountFrequency is the number of cells holding each count value.
type CountFrequency struct {
	Counts []int64 // ascending
	Cells  []int
}

// Frequencies tallies how many cells hold each count, empty cells included.
func (g *Grid) Frequencies() CountFrequency {
	tally := make(map[int64]int)
	for _, n := range g.counts {
		tally[n]++
	}
	var cf CountFrequency
	for n := range tally {
		cf.Counts = append(cf.Counts, n)
	}
	sort.Slice(cf.Counts, func(i, j int) bool { return cf.Counts[i] < cf.Counts[j] })
	for _, n := range cf.Counts {
		cf.Cells = append(cf.Cells, tally[n])
	}
	return cf
}

// Normalized returns cell frequencies divided by the largest frequency.
func (cf CountFrequency) Normalized() []float64 {
	max := 0
	for _, c := range cf.Cells {
		if c > max {
			max = c
		}
	}
	out := make([]float64, len(cf.Cells))
	if max == 0 {
		return out
	}
	for i, c := range cf.Cells {
		out[i] = float64(c) / float64(max)
	}
	return out
}

// MaxCount returns the largest count with a non-zero frequency.
func (cf CountFrequency) MaxCount() int64 {
	if len(cf.Counts) == 0 {
		return 0
	}
	return cf.Counts[len(cf.Counts)-1]
}

// Hist places the normalised frequency of each count n in the unit-wide bin
// centred on n, over [-0.5, maxCount+0.5].
func (cf CountFrequency) Hist(maxCount int64) *hbook.H1D {
	h := hbook.NewH1D(int(maxCount)+1, -0.5, float64(maxCount)+0.5)
	for i, f := range cf.Normalized() {
		if cf.Counts[i] > maxCount {
			continue
		}
		h.Fill(float64(cf.Counts[i]), f)
	}
	return h
}

// H2D converts the grid into an hbook histogram with one fill per non-empty
// cell, weighted by the cell count.
func (g *Grid) H2D() *hbook.H2D {
	b := g.Binning
	h := hbook.NewH2D(b.NX, b.XMin, b.XMax, b.NY, b.YMin, b.YMax)
	for iy := 0; iy < b.NY; iy++ {
		for ix := 0; ix < b.NX; ix++ {
			if n := g.Count(ix, iy); n > 0 {
				h.Fill(b.XCenter(ix), b.YCenter(iy), float64(n))
			}
		}
	}
	return h
}

// GridFromH2D rebuilds a grid from histogram bin contents, rounding each
// content to the nearest count.
func GridFromH2D(h *hbook.H2D) (*Grid, error) {
	xyz := h.GridXYZ()
	nx, ny := xyz.Dims()
	b := Binning{NX: nx, NY: ny, XMin: h.XMin(), XMax: h.XMax(), YMin: h.YMin(), YMax: h.YMax()}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	g := NewGrid(b)
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			z := xyz.Z(ix, iy)
			if z < 0 || math.IsNaN(z) {
				return nil, fmt.Errorf("%w: negative content %g in bin (%d,%d)", ErrUnreadableInput, z, ix, iy)
			}
			if n := int64(math.Round(z)); n > 0 {
				g.Add(Bin{IX: ix, IY: iy}, n)
			}
		}
	}
	return g, nil
}
