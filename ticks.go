package occplot

import (
	"math"
	"strconv"

	"gonum.org/v1/plot"
)

// PreciseTicks places round major ticks on narrow axes, such as a few
// millimetres of sensor expressed in cm, where the default ticker gives
// labels like 4.3000000001.
type PreciseTicks struct {
	NSuggestedTicks int
}

// tickEps absorbs rounding in tick arithmetic, relative to the tick spacing.
const tickEps = 1e-9

func (t PreciseTicks) Ticks(min, max float64) []plot.Tick {
	if t.NSuggestedTicks < 2 {
		t.NSuggestedTicks = 4
	}
	if !(max > min) || math.IsInf(max-min, 0) {
		return nil
	}

	span := max - min
	tens := math.Pow10(int(math.Floor(math.Log10(span))))
	n := span / tens
	for n < float64(t.NSuggestedTicks)-1-tickEps {
		tens /= 10
		n = span / tens
	}

	majorMult := int(n/float64(t.NSuggestedTicks-1) + tickEps)
	switch majorMult {
	case 0:
		majorMult = 1
	case 7:
		majorMult = 6
	case 9:
		majorMult = 8
	}
	majorDelta := float64(majorMult) * tens

	// digits needed to tell neighbouring labels apart
	prec := int(math.Ceil(-math.Log10(majorDelta) - tickEps))
	if prec < 0 {
		prec = 0
	}

	var ticks []plot.Tick
	for k := math.Ceil(min/majorDelta - tickEps); k*majorDelta <= max+tickEps*majorDelta; k++ {
		v := round(k*majorDelta, prec)
		ticks = append(ticks, plot.Tick{Value: v, Label: strconv.FormatFloat(v, 'f', prec, 64)})
	}

	minorDelta := majorDelta / 2
	switch majorMult {
	case 3, 6:
		minorDelta = majorDelta / 3
	case 5:
		minorDelta = majorDelta / 5
	}
	perMajor := int(math.Round(majorDelta / minorDelta))
	for k := math.Ceil(min/minorDelta - tickEps); k*minorDelta <= max+tickEps*minorDelta; k++ {
		if int(k)%perMajor == 0 {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: k * minorDelta})
	}
	return ticks
}

func round(x float64, prec int) float64 {
	if x == 0 {
		// no negative zero in labels
		return 0
	}
	pow := math.Pow10(prec)
	if math.IsInf(x*pow, 0) {
		return x
	}
	x = math.Round(x*pow) / pow
	if x == 0 {
		return 0
	}
	return x
}
