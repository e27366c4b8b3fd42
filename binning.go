package occplot

import (
	"fmt"
	"math"
)

// MaxBins bounds the resolution along either axis.
const MaxBins = 10000

// PhotonHit is one simulated photon arrival on the sensor plane.
type PhotonHit struct {
	X, Y, Z float64
	T       float64
	IsCore  bool
}

// Bin is a 0-based cell index of a Binning.
type Bin struct {
	IX, IY int
}

// Binning is a fixed-resolution grid over [XMin,XMax] x [YMin,YMax].
type Binning struct {
	NX   int     `koanf:"x_bins"`
	NY   int     `koanf:"y_bins"`
	XMin float64 `koanf:"x_min"`
	XMax float64 `koanf:"x_max"`
	YMin float64 `koanf:"y_min"`
	YMax float64 `koanf:"y_max"`
}

func (b Binning) Validate() error {
	if b.NX < 1 || b.NX > MaxBins || b.NY < 1 || b.NY > MaxBins {
		return fmt.Errorf("%w: bins %dx%d outside 1..%d", ErrInvalidConfiguration, b.NX, b.NY, MaxBins)
	}
	if !(b.XMin < b.XMax) || !(b.YMin < b.YMax) {
		return fmt.Errorf("%w: bounds x=[%g,%g] y=[%g,%g]", ErrInvalidConfiguration, b.XMin, b.XMax, b.YMin, b.YMax)
	}
	return nil
}

// Len returns the number of cells.
func (b Binning) Len() int {
	return b.NX * b.NY
}

// Contains reports strict membership in the open rectangle.
func (b Binning) Contains(x, y float64) bool {
	return x > b.XMin && x < b.XMax && y > b.YMin && y < b.YMax
}

// Find returns the cell holding (x, y). Points outside the closed rectangle
// are reported with ok == false.
func (b Binning) Find(x, y float64) (bin Bin, ok bool) {
	if x < b.XMin || x > b.XMax || y < b.YMin || y > b.YMax || math.IsNaN(x) || math.IsNaN(y) {
		return Bin{}, false
	}
	ix := int(float64(b.NX) * (x - b.XMin) / (b.XMax - b.XMin))
	iy := int(float64(b.NY) * (y - b.YMin) / (b.YMax - b.YMin))
	if ix >= b.NX {
		ix = b.NX - 1
	}
	if iy >= b.NY {
		iy = b.NY - 1
	}
	return Bin{IX: ix, IY: iy}, true
}

func (b Binning) index(bin Bin) int {
	return bin.IY*b.NX + bin.IX
}

func (b Binning) XWidth() float64 { return (b.XMax - b.XMin) / float64(b.NX) }
func (b Binning) YWidth() float64 { return (b.YMax - b.YMin) / float64(b.NY) }

// XCenter returns the centre of column ix.
func (b Binning) XCenter(ix int) float64 {
	return b.XMin + (float64(ix)+0.5)*b.XWidth()
}

// YCenter returns the centre of row iy.
func (b Binning) YCenter(iy int) float64 {
	return b.YMin + (float64(iy)+0.5)*b.YWidth()
}

// Circle is a closed disc in sensor-plane coordinates.
type Circle struct {
	X float64 `koanf:"center_x"`
	Y float64 `koanf:"center_y"`
	R float64 `koanf:"radius"`
}

func (c Circle) Contains(x, y float64) bool {
	dx := x - c.X
	dy := y - c.Y
	return dx*dx+dy*dy <= c.R*c.R
}

// Distance returns the distance of (x, y) from the circle centre.
func (c Circle) Distance(x, y float64) float64 {
	return math.Hypot(x-c.X, y-c.Y)
}
