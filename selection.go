package occplot

import "fmt"

// Selection is the static per-photon pre-filter applied before binning.
// A photon passes when it lies deeper than ZMin, carries the core flag (if
// RequireCore), falls strictly inside the grid rectangle and, when ROI has a
// positive radius, inside the ROI disc.
type Selection struct {
	ZMin        float64 `koanf:"z_min"`
	RequireCore bool    `koanf:"require_core"`
	ROI         Circle  `koanf:"roi"`
}

// DefaultSelection returns the cuts used for the rod43/layer42 sensor studies.
func DefaultSelection() Selection {
	return Selection{
		ZMin:        80,
		RequireCore: true,
		ROI:         Circle{X: -4.16, Y: 4.527, R: 0.04},
	}
}

func (s Selection) Validate() error {
	if s.ROI.R < 0 {
		return fmt.Errorf("%w: negative roi radius %g", ErrInvalidConfiguration, s.ROI.R)
	}
	return nil
}

// Pass applies the filter to one hit.
func (s Selection) Pass(b Binning, h PhotonHit) bool {
	if h.Z <= s.ZMin {
		return false
	}
	if s.RequireCore && !h.IsCore {
		return false
	}
	if !b.Contains(h.X, h.Y) {
		return false
	}
	if s.ROI.R > 0 && !s.ROI.Contains(h.X, h.Y) {
		return false
	}
	return true
}
