package occplot

import (
	"fmt"
	"math"
)

// Tally holds photon counters for an event, a file or a run.
type Tally struct {
	Events   int64
	Passed   int64 // photons passing the selection
	Accepted int64 // photons added to the grid
	Rejected int64 // photons dropped by dead time
}

func (t *Tally) add(o Tally) {
	t.Events += o.Events
	t.Passed += o.Passed
	t.Accepted += o.Accepted
	t.Rejected += o.Rejected
}

// RejectionPercent returns 100*rejected/(accepted+rejected), or 0 when no
// photon reached the dead-time stage.
func (t Tally) RejectionPercent() float64 {
	if t.Accepted+t.Rejected == 0 {
		return 0
	}
	return 100 * float64(t.Rejected) / float64(t.Accepted+t.Rejected)
}

// Accumulator fills an occupancy grid event by event while emulating a
// per-cell sensor dead time.
//
// Within an event, hits are visited in storage order. A hit landing in a cell
// that already accepted a photon at tPrev during the same event is rejected
// when |t-tPrev| < DeadTime, otherwise it is accepted and tPrev becomes t.
// The comparison partner is therefore the last accepted hit in storage
// order, which is not necessarily the chronologically previous one when the
// input is not time sorted. Dead time never carries over between events.
type Accumulator struct {
	binning  Binning
	sel      Selection
	deadTime float64

	grid  *Grid
	tally Tally

	last    map[int]float64
	pending map[int]int64
}

func NewAccumulator(b Binning, sel Selection, deadTime float64) (*Accumulator, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	if deadTime < 0 || math.IsNaN(deadTime) || math.IsInf(deadTime, 0) {
		return nil, fmt.Errorf("%w: dead time %g", ErrInvalidConfiguration, deadTime)
	}
	return &Accumulator{
		binning:  b,
		sel:      sel,
		deadTime: deadTime,
		grid:     NewGrid(b),
		last:     make(map[int]float64),
		pending:  make(map[int]int64),
	}, nil
}

// AddEvent runs one event through the selection and dead-time emulation and
// merges its accepted photons into the grid.
func (a *Accumulator) AddEvent(hits []PhotonHit) Tally {
	clear(a.last)
	clear(a.pending)

	ev := Tally{Events: 1}
	for _, h := range hits {
		if !a.sel.Pass(a.binning, h) {
			continue
		}
		bin, ok := a.binning.Find(h.X, h.Y)
		if !ok {
			continue
		}
		ev.Passed++

		key := a.binning.index(bin)
		if prev, seen := a.last[key]; seen && math.Abs(h.T-prev) < a.deadTime {
			ev.Rejected++
			continue
		}
		a.pending[key]++
		a.last[key] = h.T
	}

	for key, n := range a.pending {
		if n > 0 {
			a.grid.counts[key] += n
			ev.Accepted += n
		}
	}
	a.tally.add(ev)
	return ev
}

// Grid returns the accumulated grid. The accumulator keeps ownership; callers
// that continue filling should Clone it first.
func (a *Accumulator) Grid() *Grid { return a.grid }

func (a *Accumulator) Tally() Tally { return a.tally }

func (a *Accumulator) DeadTime() float64 { return a.deadTime }
